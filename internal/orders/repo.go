package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, user_id, status, payment_status,
	items, summary, shipping, payment_info, status_history, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, o *Order) error {
	items, summary, shipping, payinfo, history, err := marshalDocs(o)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, payment_status,
		                    items, summary, shipping, payment_info, status_history,
		                    created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.PaymentStatus,
		items, summary, shipping, payinfo, history, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation; order_number tabrakan -> caller generate ulang
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	return scanOrder(row)
}

func (r *Repo) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE order_number=$1`, orderNumber)
	return scanOrder(row)
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// List untuk admin; status kosong = semua.
func (r *Repo) List(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	args := []any{limit, offset}
	if status != "" {
		q += ` WHERE status=$3`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// SetPaymentSession menyimpan token/URL pembayaran hasil create transaction.
// Sengaja tidak menyentuh status: order yang gagal dapat token tetap queryable
// di unpaid/pending dan bisa di-retry.
func (r *Repo) SetPaymentSession(ctx context.Context, orderID string, info PaymentInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_info=$2, updated_at=$3 WHERE id=$1`,
		orderID, b, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ApplyPaymentResult adalah conditional write (CAS) milik reconciliation:
// hanya menulis kalau (payment_status, status) masih sama dengan yang dibaca.
// Return false tanpa error = kalah balapan; caller baca ulang lalu putuskan lagi.
func (r *Repo) ApplyPaymentResult(ctx context.Context, cur *Order,
	newPay PaymentStatus, newStatus OrderStatus, info PaymentInfo, entry *StatusChange) (bool, error) {

	history := cur.StatusHistory
	if entry != nil {
		history = append(append([]StatusChange{}, cur.StatusHistory...), *entry)
	}
	hb, err := json.Marshal(history)
	if err != nil {
		return false, err
	}
	ib, err := json.Marshal(info)
	if err != nil {
		return false, err
	}

	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET payment_status=$2, status=$3, payment_info=$4, status_history=$5, updated_at=$6
		WHERE id=$1 AND payment_status=$7 AND status=$8`,
		cur.ID, newPay, newStatus, ib, hb, time.Now().UTC(),
		cur.PaymentStatus, cur.Status)
	if err != nil {
		return false, fmt.Errorf("apply payment result: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// UpdateStatus untuk transisi manual (admin/customer). CAS di kolom status
// supaya dua admin yang balapan tidak saling menimpa.
func (r *Repo) UpdateStatus(ctx context.Context, cur *Order, to OrderStatus,
	entry StatusChange, trackingNumber string) (bool, error) {

	history := append(append([]StatusChange{}, cur.StatusHistory...), entry)
	hb, err := json.Marshal(history)
	if err != nil {
		return false, err
	}

	shipping := cur.Shipping
	if trackingNumber != "" {
		shipping.TrackingNumber = trackingNumber
	}
	sb, err := json.Marshal(shipping)
	if err != nil {
		return false, err
	}

	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$2, shipping=$3, status_history=$4, updated_at=$5
		WHERE id=$1 AND status=$6`,
		cur.ID, to, sb, hb, time.Now().UTC(), cur.Status)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ---- scan helpers ----

func marshalDocs(o *Order) (items, summary, shipping, payinfo, history []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return
	}
	if summary, err = json.Marshal(o.Summary); err != nil {
		return
	}
	if shipping, err = json.Marshal(o.Shipping); err != nil {
		return
	}
	if payinfo, err = json.Marshal(o.PaymentInfo); err != nil {
		return
	}
	history, err = json.Marshal(o.StatusHistory)
	return
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var items, summary, shipping, payinfo, history []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus,
		&items, &summary, &shipping, &payinfo, &history, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summary, &o.Summary); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payinfo, &o.PaymentInfo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]*Order, error) {
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/gateway"
	kafkax "github.com/rifqiarief/cetak3d-backend/internal/kafka"
	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/redisx"
)

// Store: subset repo order yang dibutuhkan engine (biar gampang di-fake di test).
type Store interface {
	GetByID(ctx context.Context, id string) (*orders.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*orders.Order, error)
	ApplyPaymentResult(ctx context.Context, cur *orders.Order,
		newPay orders.PaymentStatus, newStatus orders.OrderStatus,
		info orders.PaymentInfo, entry *orders.StatusChange) (bool, error)
}

type Gateway interface {
	CheckTransaction(ctx context.Context, orderNumber string) (gateway.TransactionStatus, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Locker menserialisasi reconciliation per order. Implementasi produksi
// pakai advisory lock redis; test pakai fake.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type RedisLocker struct{ RDB *redis.Client }

func (l RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lk, err := redisx.AcquireLock(ctx, l.RDB, key, redisx.TTLReconLock, 3*time.Second)
	if err != nil {
		return nil, err
	}
	return func() { _ = lk.Release(context.Background()) }, nil
}

// Result adalah keadaan final order setelah satu putaran reconciliation.
type Result struct {
	OrderID           string               `json:"order_id"`
	OrderNumber       string               `json:"order_number"`
	PaymentStatus     orders.PaymentStatus `json:"payment_status"`
	OrderStatus       orders.OrderStatus   `json:"order_status"`
	TransactionStatus string               `json:"transaction_status,omitempty"`
	Changed           bool                 `json:"changed"`
}

// Engine menyamakan state order internal dengan status transaksi di gateway.
// Semua jalur masuk (webhook push maupun verify pull) lewat apply() yang sama:
// lock per order -> baca ulang -> map -> guard idempoten & anti-regresi -> CAS.
type Engine struct {
	Store   Store
	Gateway Gateway
	Locker  Locker

	PubSettled Publisher
	PubFailed  Publisher
	PubFlagged Publisher

	// RDB opsional, cuma untuk refresh cache status; nil di test.
	RDB         *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// ReconcileNotification: jalur push. Signature SUDAH diverifikasi handler;
// field notifikasi dipakai langsung tapi tetap dijaga rank guard, jadi
// notifikasi basi/duplikat tidak pernah menurunkan state.
func (e *Engine) ReconcileNotification(ctx context.Context, n gateway.Notification) (Result, error) {
	o, err := e.Store.GetByNumber(ctx, n.OrderID)
	if err != nil {
		return Result{}, err
	}
	return e.apply(ctx, o, n.Status())
}

// ReconcileOrder: jalur pull (authoritative). Tanya status terkini ke gateway
// lalu samakan; dipakai endpoint verify setelah user balik dari halaman bayar.
func (e *Engine) ReconcileOrder(ctx context.Context, orderID string) (Result, error) {
	o, err := e.Store.GetByID(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	tx, err := e.Gateway.CheckTransaction(ctx, o.OrderNumber)
	if err != nil {
		// jangan sentuh state order kalau gateway tidak bisa dipercaya
		return Result{}, fmt.Errorf("%w: %v", orders.ErrGatewayVerification, err)
	}
	return e.apply(ctx, o, tx)
}

func (e *Engine) apply(ctx context.Context, o *orders.Order, tx gateway.TransactionStatus) (Result, error) {
	release, err := e.Locker.Acquire(ctx, fmt.Sprintf(redisx.KeyReconLock, o.OrderNumber))
	if err != nil {
		return Result{}, err
	}
	defer release()

	// baca ulang di dalam lock; snapshot sebelum lock bisa saja basi
	o, err = e.Store.GetByID(ctx, o.ID)
	if err != nil {
		return Result{}, err
	}

	newPay, mappedStatus, err := MapStatus(tx.TransactionStatus, tx.FraudStatus)
	if err != nil {
		if errors.Is(err, orders.ErrAmbiguousMapping) {
			e.flag(o, "status gateway tidak dikenali", tx)
		}
		return e.result(o, tx, false), err
	}

	for attempt := 0; attempt < 3; attempt++ {
		target := o.Status
		flagged := ""
		if mappedStatus != "" && mappedStatus != o.Status {
			switch {
			case orders.CanTransition(o.Status, mappedStatus, orders.ActorSystem):
				target = mappedStatus
			case orders.Terminal(o.Status) && newPay == orders.PaymentPaid:
				// settlement nyusul setelah order keburu canceled:
				// uang tercatat (paid) tapi status terminal tidak dibangkitkan lagi
				flagged = "settlement masuk setelah order " + string(o.Status)
			default:
				flagged = fmt.Sprintf("transisi %s -> %s tidak valid dari reconciliation", o.Status, mappedStatus)
			}
		}

		// idempoten: state sudah sama, jangan tulis ulang & jangan ulangi side effect
		if newPay == o.PaymentStatus && target == o.Status {
			return e.result(o, tx, false), nil
		}

		// anti-regresi: event basi (pending/failed setelah paid) tidak boleh nulis
		if orders.PaymentRank(newPay) < orders.PaymentRank(o.PaymentStatus) {
			e.Log.Debug("notifikasi basi diabaikan",
				zap.String("order_number", o.OrderNumber),
				zap.String("current", string(o.PaymentStatus)),
				zap.String("incoming", string(newPay)))
			return e.result(o, tx, false), nil
		}

		info := o.PaymentInfo
		if m := gateway.NormalizeMethod(tx.PaymentType); m != "" {
			info.PaymentMethod = m
		}
		if tx.TransactionID != "" {
			info.TransactionID = tx.TransactionID
		}
		if newPay == orders.PaymentPaid && info.PaidAt == nil {
			t := paidAt(tx.SettlementTime)
			info.PaidAt = &t
		}

		var entry *orders.StatusChange
		if target != o.Status {
			entry = &orders.StatusChange{Status: target, ChangedAt: time.Now().UTC(), ChangedBy: orders.ActorSystem}
		}

		ok, err := e.Store.ApplyPaymentResult(ctx, o, newPay, target, info, entry)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			// kalah CAS; baca ulang lalu evaluasi lagi (biasanya jadi no-op)
			o, err = e.Store.GetByID(ctx, o.ID)
			if err != nil {
				return Result{}, err
			}
			continue
		}

		o.PaymentStatus = newPay
		o.Status = target
		o.PaymentInfo = info
		if entry != nil {
			o.StatusHistory = append(o.StatusHistory, *entry)
		}

		e.afterWrite(ctx, o, tx, flagged)
		return e.result(o, tx, true), nil
	}

	return Result{}, fmt.Errorf("reconcile %s: CAS terus gagal", o.OrderNumber)
}

// afterWrite: side effect hanya jalan saat state BENERAN berubah.
func (e *Engine) afterWrite(ctx context.Context, o *orders.Order, tx gateway.TransactionStatus, flagged string) {
	payload := orders.PaymentResultPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		UserEmail:     o.Shipping.Email,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.Status,
		PaymentMethod: o.PaymentInfo.PaymentMethod,
		TransactionID: o.PaymentInfo.TransactionID,
		Amount:        o.Summary.TotalAmount,
	}
	switch o.PaymentStatus {
	case orders.PaymentPaid:
		e.publish(e.PubSettled, orders.EventPaymentSettled, o.ID, payload)
	case orders.PaymentFailed:
		e.publish(e.PubFailed, orders.EventPaymentFailed, o.ID, payload)
	case orders.PaymentRefunded:
		e.flag(o, "refund dari gateway, cek stok & pengembalian", tx)
	}
	if flagged != "" {
		e.flag(o, flagged, tx)
	}

	if e.RDB != nil {
		b, _ := json.Marshal(map[string]any{"status": o.Status, "payment_status": o.PaymentStatus})
		_ = e.RDB.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, o.ID), b, redisx.TTLStatusCache).Err()
	}
}

func (e *Engine) flag(o *orders.Order, reason string, tx gateway.TransactionStatus) {
	e.Log.Warn("order di-flag untuk review manual",
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", reason),
		zap.String("transaction_status", tx.TransactionStatus))
	e.publish(e.PubFlagged, orders.EventPaymentFlagged, o.ID, orders.PaymentFlaggedPayload{
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		Reason:            reason,
		TransactionStatus: tx.TransactionStatus,
		FraudStatus:       tx.FraudStatus,
	})
}

func (e *Engine) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (e *Engine) result(o *orders.Order, tx gateway.TransactionStatus, changed bool) Result {
	return Result{
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		PaymentStatus:     o.PaymentStatus,
		OrderStatus:       o.Status,
		TransactionStatus: tx.TransactionStatus,
		Changed:           changed,
	}
}

// paidAt: settlement_time Midtrans format "2006-01-02 15:04:05" (WIB).
// Kalau tidak bisa diparse, pakai waktu reconciliation.
func paidAt(settlement string) time.Time {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", settlement, loc); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/gateway"
	kafkax "github.com/rifqiarief/cetak3d-backend/internal/kafka"
	"github.com/rifqiarief/cetak3d-backend/internal/pricing"
)

// Store adalah kebutuhan service terhadap repo (di-fake di test).
type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, error)
	List(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, error)
	SetPaymentSession(ctx context.Context, orderID string, info PaymentInfo) error
	UpdateStatus(ctx context.Context, cur *Order, to OrderStatus, entry StatusChange, trackingNumber string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type SettingsSource interface {
	Current(ctx context.Context) (pricing.Settings, error)
}

type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req gateway.ChargeRequest) (gateway.Session, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service merangkai kalkulator harga, state machine, repo, dan gateway
// jadi satu alur order yang utuh.
type Service struct {
	Store       Store
	Settings    SettingsSource
	Gateway     PaymentGateway
	PubCreated  Publisher
	PubStatus   Publisher
	ServiceName string
	Log         *zap.Logger

	// Now dipisah supaya test deterministik; default time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type ItemInput struct {
	FileRef       string      `json:"file_ref"`
	FileName      string      `json:"file_name"`
	FileSizeBytes int64       `json:"file_size_bytes"`
	Quantity      int         `json:"quantity"`
	Configuration PrintConfig `json:"configuration"`
	Statistics    PrintStats  `json:"statistics"`
}

type ShippingInput struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	AddressLine   string `json:"address_line"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Courier       string `json:"courier"`
	ShippingCost  int64  `json:"shipping_cost"`
}

type CreateInput struct {
	Items         []ItemInput   `json:"items"`
	Shipping      ShippingInput `json:"shipping"`
	CustomerName  string        `json:"-"`
	CustomerEmail string        `json:"-"`
}

// Create: validasi -> snapshot settings -> hitung harga -> persist unpaid ->
// minta sesi pembayaran ke gateway -> simpan token.
//
// Kontrak atomicity: kalau gateway gagal SETELAH order tersimpan, order tetap
// ada di unpaid/pending tanpa token dan bisa di-retry lewat InitPayment;
// Create tidak pernah bikin order dobel untuk kegagalan gateway.
// Caller dikasih tahu lewat ErrGatewayUnavailable + order yang sudah jadi.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	// snapshot tarif saat ini; gagal baca -> pakai default, jangan blokir checkout
	settings, err := s.Settings.Current(ctx)
	if err != nil {
		s.Log.Warn("gagal baca pricing settings, pakai default", zap.Error(err))
		settings = pricing.DefaultSettings
	}

	pItems := make([]pricing.Item, len(in.Items))
	for i, it := range in.Items {
		pItems[i] = pricing.Item{
			Quantity:            it.Quantity,
			FilamentWeightGrams: it.Statistics.FilamentWeightGrams,
			PrintTimeMinutes:    it.Statistics.PrintTimeMinutes,
		}
	}
	priced, summary, err := pricing.Price(pItems, settings, in.Shipping.ShippingCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	o := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        StatusUnpaid,
		PaymentStatus: PaymentPending,
		Summary:       summary,
		Shipping: ShippingDetails{
			RecipientName: in.Shipping.RecipientName,
			Phone:         in.Shipping.Phone,
			Email:         firstNonEmpty(in.Shipping.Email, in.CustomerEmail),
			AddressLine:   in.Shipping.AddressLine,
			City:          in.Shipping.City,
			Province:      in.Shipping.Province,
			PostalCode:    in.Shipping.PostalCode,
			Courier:       in.Shipping.Courier,
		},
		StatusHistory: []StatusChange{{Status: StatusUnpaid, ChangedAt: now, ChangedBy: ActorCustomer}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.Items = make([]OrderItem, len(in.Items))
	for i, it := range in.Items {
		o.Items[i] = OrderItem{
			PrintItem: PrintItem{
				FileRef:       it.FileRef,
				FileName:      it.FileName,
				FileSizeBytes: it.FileSizeBytes,
				Quantity:      it.Quantity,
				Configuration: it.Configuration,
				Statistics:    it.Statistics,
			},
			Pricing: priced[i],
		}
	}

	// order number unik dijaga index DB; tabrakan (jarang) -> generate ulang
	for attempt := 0; ; attempt++ {
		o.OrderNumber = NewOrderNumber(s.now())
		o.PaymentInfo = PaymentInfo{GatewayOrderID: o.OrderNumber}
		err := s.Store.Create(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateNumber) && attempt < 3 {
			continue
		}
		return nil, err
	}

	s.publish(s.PubCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		ItemCount:   len(o.Items),
		TotalAmount: o.Summary.TotalAmount,
	})

	if err := s.attachPaymentSession(ctx, o, in.CustomerName, in.CustomerEmail); err != nil {
		s.Log.Error("create transaction gateway gagal, order tetap tersimpan",
			zap.String("order_number", o.OrderNumber), zap.Error(err))
		return o, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return o, nil
}

// InitPayment: re-init sesi pembayaran untuk order yang belum kebagian token
// (atau tokennya kedaluwarsa). Idempoten: token yang masih hidup di-reuse,
// tidak pernah ada dua transaksi aktif untuk satu order.
func (s *Service) InitPayment(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.getOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusUnpaid || o.PaymentStatus != PaymentPending {
		return nil, fmt.Errorf("%w: order %s sudah %s/%s",
			ErrInvalidTransition, o.OrderNumber, o.Status, o.PaymentStatus)
	}

	if o.PaymentInfo.SnapToken != "" && o.PaymentInfo.PaymentExpiry != nil &&
		s.now().Before(*o.PaymentInfo.PaymentExpiry) {
		return o, nil // token lama masih berlaku
	}

	if err := s.attachPaymentSession(ctx, o, "", ""); err != nil {
		return o, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return o, nil
}

func (s *Service) attachPaymentSession(ctx context.Context, o *Order, custName, custEmail string) error {
	items := make([]gateway.ItemDetail, 0, len(o.Items)+1)
	for _, it := range o.Items {
		items = append(items, gateway.ItemDetail{
			ID:    it.FileRef,
			Name:  it.FileName,
			Price: it.Pricing.SubtotalPerUnit,
			Qty:   int32(it.Quantity),
		})
	}
	if o.Summary.ShippingCost > 0 {
		items = append(items, gateway.ItemDetail{
			ID: "SHIPPING", Name: "Ongkos kirim", Price: o.Summary.ShippingCost, Qty: 1,
		})
	}

	gctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sess, err := s.Gateway.CreateTransaction(gctx, gateway.ChargeRequest{
		OrderNumber:   o.OrderNumber,
		GrossAmount:   o.Summary.TotalAmount,
		CustomerName:  custName,
		CustomerEmail: custEmail,
		Items:         items,
		ExpiryMinutes: 24 * 60,
	})
	if err != nil {
		return err
	}

	info := o.PaymentInfo
	info.GatewayOrderID = o.OrderNumber
	info.SnapToken = sess.Token
	info.PaymentURL = sess.RedirectURL
	info.PaymentExpiry = &sess.ExpiresAt
	if err := s.Store.SetPaymentSession(ctx, o.ID, info); err != nil {
		return err
	}
	o.PaymentInfo = info
	return nil
}

// Get: owner atau admin.
func (s *Service) Get(ctx context.Context, userID string, isAdmin bool, orderID string) (*Order, error) {
	o, err := s.Store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}
	return o.View(), nil
}

func (s *Service) ListMine(ctx context.Context, userID string, limit, offset int) ([]*Order, error) {
	out, err := s.Store.ListByUser(ctx, userID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	for i, o := range out {
		out[i] = o.View()
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, error) {
	if status != "" && !ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	return s.Store.List(ctx, status, clampLimit(limit), offset)
}

// UpdateStatus: transisi manual oleh admin (atau customer untuk cancel/done).
// Legalitas edge + actor dicek di tabel transisi; entry history selalu append.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, userID, orderID string,
	to OrderStatus, trackingNumber string) (*Order, error) {

	o, err := s.Store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor == ActorCustomer && o.UserID != userID {
		return nil, ErrForbidden
	}
	if !ValidOrderStatus(to) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, to)
	}
	if !CanTransition(o.Status, to, actor) {
		return nil, fmt.Errorf("%w: %s -> %s oleh %s", ErrInvalidTransition, o.Status, to, actor)
	}
	if trackingNumber != "" && to != StatusShipping {
		return nil, fmt.Errorf("%w: tracking number hanya saat transisi ke shipping", ErrInvalidInput)
	}

	entry := StatusChange{Status: to, ChangedAt: s.now(), ChangedBy: actor}
	ok, err := s.Store.UpdateStatus(ctx, o, to, entry, trackingNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		// status keburu berubah di tengah; minta caller lihat state terbaru
		return nil, fmt.Errorf("%w: order berubah, muat ulang", ErrInvalidTransition)
	}

	from := o.Status
	o.Status = to
	o.StatusHistory = append(o.StatusHistory, entry)
	if trackingNumber != "" {
		o.Shipping.TrackingNumber = trackingNumber
	}

	s.publish(s.PubStatus, EventStatusChanged, o.ID, StatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		From:        from,
		To:          to,
		ChangedBy:   actor,
	})
	return o, nil
}

func (s *Service) Delete(ctx context.Context, orderID string) error {
	return s.Store.Delete(ctx, orderID)
}

func (s *Service) getOwned(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.Store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func validateInput(in CreateInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items kosong", ErrInvalidInput)
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.FileRef) == "" || strings.TrimSpace(it.FileName) == "" {
			return fmt.Errorf("%w: item[%d] file tidak lengkap", ErrInvalidInput, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item[%d] quantity < 1", ErrInvalidInput, i)
		}
		if it.Statistics.FilamentWeightGrams < 0 || it.Statistics.PrintTimeMinutes < 0 {
			return fmt.Errorf("%w: item[%d] statistik slicing negatif", ErrInvalidInput, i)
		}
	}
	sh := in.Shipping
	if strings.TrimSpace(sh.RecipientName) == "" || strings.TrimSpace(sh.Phone) == "" ||
		strings.TrimSpace(sh.AddressLine) == "" || strings.TrimSpace(sh.City) == "" {
		return fmt.Errorf("%w: alamat pengiriman tidak lengkap", ErrInvalidInput)
	}
	if sh.ShippingCost < 0 {
		return fmt.Errorf("%w: shipping cost negatif", ErrInvalidInput)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

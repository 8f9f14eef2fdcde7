package reconcile

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/gateway"
	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/pricing"
)

// ---- fakes ----

type fakeStore struct {
	mu         sync.Mutex
	byID       map[string]*orders.Order
	applyCalls int
}

func newFakeStore(os ...*orders.Order) *fakeStore {
	s := &fakeStore{byID: map[string]*orders.Order{}}
	for _, o := range os {
		s.byID[o.ID] = clone(o)
	}
	return s
}

func clone(o *orders.Order) *orders.Order {
	c := *o
	c.StatusHistory = append([]orders.StatusChange{}, o.StatusHistory...)
	c.Items = append([]orders.OrderItem{}, o.Items...)
	return &c
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return clone(o), nil
}

func (s *fakeStore) GetByNumber(_ context.Context, n string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.byID {
		if o.OrderNumber == n {
			return clone(o), nil
		}
	}
	return nil, orders.ErrNotFound
}

// ApplyPaymentResult meniru semantik CAS repo: cuma nulis kalau
// (payment_status, status) masih sama dengan snapshot yang dibaca caller.
func (s *fakeStore) ApplyPaymentResult(_ context.Context, cur *orders.Order,
	newPay orders.PaymentStatus, newStatus orders.OrderStatus,
	info orders.PaymentInfo, entry *orders.StatusChange) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[cur.ID]
	if !ok {
		return false, orders.ErrNotFound
	}
	if o.PaymentStatus != cur.PaymentStatus || o.Status != cur.Status {
		return false, nil
	}
	o.PaymentStatus = newPay
	o.Status = newStatus
	o.PaymentInfo = info
	if entry != nil {
		o.StatusHistory = append(o.StatusHistory, *entry)
	}
	s.applyCalls++
	return true, nil
}

func (s *fakeStore) current(id string) *orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.byID[id])
}

type fakeGateway struct {
	tx  gateway.TransactionStatus
	err error
}

func (g *fakeGateway) CheckTransaction(context.Context, string) (gateway.TransactionStatus, error) {
	return g.tx, g.err
}

// fakeLocker pakai mutex beneran per key supaya test konkuren
// benar-benar terserialisasi seperti advisory lock redis.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []orders.Envelope
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	p.mu.Lock()
	p.events = append(p.events, env)
	p.mu.Unlock()
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// ---- fixtures ----

func testOrder() *orders.Order {
	now := time.Now().UTC()
	return &orders.Order{
		ID:            "11111111-2222-3333-4444-555555555555",
		OrderNumber:   "ORD-1748772000-042",
		UserID:        "user-1",
		Status:        orders.StatusUnpaid,
		PaymentStatus: orders.PaymentPending,
		Summary:       pricing.Summary{Subtotal: 65000, TotalAmount: 65000},
		Shipping:      orders.ShippingDetails{Email: "budi@example.com"},
		PaymentInfo:   orders.PaymentInfo{GatewayOrderID: "ORD-1748772000-042"},
		StatusHistory: []orders.StatusChange{
			{Status: orders.StatusUnpaid, ChangedAt: now, ChangedBy: orders.ActorCustomer},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type testEnv struct {
	engine  *Engine
	store   *fakeStore
	gw      *fakeGateway
	settled *fakePublisher
	failed  *fakePublisher
	flagged *fakePublisher
}

func newTestEnv(o *orders.Order) *testEnv {
	env := &testEnv{
		store:   newFakeStore(o),
		gw:      &fakeGateway{},
		settled: &fakePublisher{},
		failed:  &fakePublisher{},
		flagged: &fakePublisher{},
	}
	env.engine = &Engine{
		Store:       env.store,
		Gateway:     env.gw,
		Locker:      &fakeLocker{},
		PubSettled:  env.settled,
		PubFailed:   env.failed,
		PubFlagged:  env.flagged,
		ServiceName: "test",
		Log:         zap.NewNop(),
	}
	return env
}

func settlementNotif(orderNumber string) gateway.Notification {
	return gateway.Notification{
		OrderID:           orderNumber,
		TransactionID:     "trx-abc",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
		StatusCode:        "200",
		GrossAmount:       "65000.00",
		SettlementTime:    "2025-06-01 17:00:00",
	}
}

// ---- tests ----

func TestReconcileNotification_Settlement(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	res, err := env.engine.ReconcileNotification(context.Background(), settlementNotif(o.OrderNumber))
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, orders.PaymentPaid, res.PaymentStatus)
	assert.Equal(t, orders.StatusInReview, res.OrderStatus)

	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
	assert.Equal(t, orders.StatusInReview, cur.Status)
	assert.Equal(t, "e_wallet", cur.PaymentInfo.PaymentMethod)
	assert.Equal(t, "trx-abc", cur.PaymentInfo.TransactionID)
	require.NotNil(t, cur.PaymentInfo.PaidAt)

	// history nambah tepat satu entry, oleh system
	require.Len(t, cur.StatusHistory, 2)
	last := cur.StatusHistory[1]
	assert.Equal(t, orders.StatusInReview, last.Status)
	assert.Equal(t, orders.ActorSystem, last.ChangedBy)

	assert.Equal(t, 1, env.settled.count())
	assert.Equal(t, 0, env.failed.count())
}

func TestReconcileNotification_Idempoten(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)
	n := settlementNotif(o.OrderNumber)

	for i := 0; i < 5; i++ {
		res, err := env.engine.ReconcileNotification(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, orders.PaymentPaid, res.PaymentStatus)
		assert.Equal(t, i == 0, res.Changed, "cuma apply pertama yang nulis")
	}

	cur := env.store.current(o.ID)
	// satu transisi = satu entry history, bukan lima
	assert.Len(t, cur.StatusHistory, 2)
	// side effect (email event) juga cuma sekali
	assert.Equal(t, 1, env.settled.count())
	assert.Equal(t, 1, env.store.applyCalls)
}

func TestReconcileNotification_PendingBasiTidakMenimpaPaid(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	_, err := env.engine.ReconcileNotification(context.Background(), settlementNotif(o.OrderNumber))
	require.NoError(t, err)

	// notifikasi pending telat datang (out-of-order delivery)
	late := settlementNotif(o.OrderNumber)
	late.TransactionStatus = "pending"
	res, err := env.engine.ReconcileNotification(context.Background(), late)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
	assert.Equal(t, orders.StatusInReview, cur.Status)
	assert.Len(t, cur.StatusHistory, 2)
	assert.Equal(t, 1, env.settled.count())
}

func TestReconcileNotification_ExpireSetelahPaidDiabaikan(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	_, err := env.engine.ReconcileNotification(context.Background(), settlementNotif(o.OrderNumber))
	require.NoError(t, err)

	late := settlementNotif(o.OrderNumber)
	late.TransactionStatus = "expire"
	res, err := env.engine.ReconcileNotification(context.Background(), late)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
	assert.Equal(t, orders.StatusInReview, cur.Status)
	assert.Equal(t, 0, env.failed.count())
}

func TestReconcileNotification_Konkuren(t *testing.T) {
	// settlement dan pending balapan dalam urutan apa pun:
	// hasil akhir selalu paid/in-review, tidak pernah balik ke pending.
	for iter := 0; iter < 20; iter++ {
		o := testOrder()
		env := newTestEnv(o)

		pend := settlementNotif(o.OrderNumber)
		pend.TransactionStatus = "pending"

		var wg sync.WaitGroup
		for _, n := range []gateway.Notification{settlementNotif(o.OrderNumber), pend} {
			wg.Add(1)
			go func(n gateway.Notification) {
				defer wg.Done()
				_, err := env.engine.ReconcileNotification(context.Background(), n)
				assert.NoError(t, err)
			}(n)
		}
		wg.Wait()

		cur := env.store.current(o.ID)
		assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
		assert.Equal(t, orders.StatusInReview, cur.Status)
		assert.Len(t, cur.StatusHistory, 2)
		assert.Equal(t, 1, env.settled.count())
	}
}

func TestReconcileNotification_Expire(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	n := settlementNotif(o.OrderNumber)
	n.TransactionStatus = "expire"
	res, err := env.engine.ReconcileNotification(context.Background(), n)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentFailed, cur.PaymentStatus)
	assert.Equal(t, orders.StatusCanceled, cur.Status)
	assert.Equal(t, 1, env.failed.count())
	assert.Equal(t, 0, env.settled.count())
}

func TestReconcileNotification_Ambigu(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	n := settlementNotif(o.OrderNumber)
	n.TransactionStatus = "authorize"
	_, err := env.engine.ReconcileNotification(context.Background(), n)
	require.ErrorIs(t, err, orders.ErrAmbiguousMapping)

	// order tidak disentuh, tapi di-flag buat review manual
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPending, cur.PaymentStatus)
	assert.Equal(t, orders.StatusUnpaid, cur.Status)
	assert.Equal(t, 0, env.store.applyCalls)
	assert.Equal(t, 1, env.flagged.count())
}

func TestReconcileNotification_SettlementSetelahCanceled(t *testing.T) {
	// expire keburu membatalkan order, lalu settlement nyusul:
	// uang tercatat paid, status tetap canceled, di-flag manual review.
	o := testOrder()
	env := newTestEnv(o)

	exp := settlementNotif(o.OrderNumber)
	exp.TransactionStatus = "expire"
	_, err := env.engine.ReconcileNotification(context.Background(), exp)
	require.NoError(t, err)

	res, err := env.engine.ReconcileNotification(context.Background(), settlementNotif(o.OrderNumber))
	require.NoError(t, err)

	assert.True(t, res.Changed)
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
	assert.Equal(t, orders.StatusCanceled, cur.Status)
	assert.Equal(t, 1, env.flagged.count())
	// tidak ada entry history baru: status order tidak berubah
	assert.Len(t, cur.StatusHistory, 2) // unpaid + canceled
}

func TestReconcileNotification_Refund(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)

	_, err := env.engine.ReconcileNotification(context.Background(), settlementNotif(o.OrderNumber))
	require.NoError(t, err)

	n := settlementNotif(o.OrderNumber)
	n.TransactionStatus = "refund"
	res, err := env.engine.ReconcileNotification(context.Background(), n)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, orders.PaymentRefunded, res.PaymentStatus)
	// refund tidak mengubah status order
	assert.Equal(t, orders.StatusInReview, res.OrderStatus)
	assert.Equal(t, 1, env.flagged.count())
}

func TestReconcileNotification_OrderTidakAda(t *testing.T) {
	env := newTestEnv(testOrder())
	_, err := env.engine.ReconcileNotification(context.Background(), settlementNotif("ORD-999-999"))
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestReconcileOrder_Pull(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)
	env.gw.tx = gateway.TransactionStatus{
		OrderID:           o.OrderNumber,
		TransactionID:     "trx-pull",
		TransactionStatus: "settlement",
		PaymentType:       "bank_transfer",
		StatusCode:        "200",
		GrossAmount:       "65000.00",
	}

	res, err := env.engine.ReconcileOrder(context.Background(), o.ID)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, "settlement", res.TransactionStatus)
	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPaid, cur.PaymentStatus)
	assert.Equal(t, "bank_transfer", cur.PaymentInfo.PaymentMethod)
}

func TestReconcileOrder_GatewayErrorTidakMutasi(t *testing.T) {
	o := testOrder()
	env := newTestEnv(o)
	env.gw.err = assert.AnError

	_, err := env.engine.ReconcileOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, orders.ErrGatewayVerification)

	cur := env.store.current(o.ID)
	assert.Equal(t, orders.PaymentPending, cur.PaymentStatus)
	assert.Equal(t, orders.StatusUnpaid, cur.Status)
	assert.Equal(t, 0, env.store.applyCalls)
}

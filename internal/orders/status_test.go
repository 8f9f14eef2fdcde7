package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_JalurNormal(t *testing.T) {
	assert.True(t, CanTransition(StatusUnpaid, StatusInReview, ActorSystem))
	assert.True(t, CanTransition(StatusInReview, StatusPrinting, ActorAdmin))
	assert.True(t, CanTransition(StatusInReview, StatusDiscuss, ActorAdmin))
	assert.True(t, CanTransition(StatusDiscuss, StatusPrinting, ActorAdmin))
	assert.True(t, CanTransition(StatusPrinting, StatusShipping, ActorAdmin))
	assert.True(t, CanTransition(StatusShipping, StatusDelivery, ActorAdmin))
	assert.True(t, CanTransition(StatusDelivery, StatusDelivered, ActorAdmin))
	assert.True(t, CanTransition(StatusDelivered, StatusDone, ActorCustomer))
}

func TestCanTransition_ActorGating(t *testing.T) {
	// customer tidak boleh memajukan produksi
	assert.False(t, CanTransition(StatusInReview, StatusPrinting, ActorCustomer))
	assert.False(t, CanTransition(StatusPrinting, StatusShipping, ActorSystem))
	// unpaid -> in-review cuma hasil reconciliation
	assert.False(t, CanTransition(StatusUnpaid, StatusInReview, ActorAdmin))
}

func TestCanTransition_TidakBolehMundur(t *testing.T) {
	assert.False(t, CanTransition(StatusShipping, StatusPrinting, ActorAdmin))
	assert.False(t, CanTransition(StatusDelivered, StatusShipping, ActorAdmin))
	// lompat jauh juga ditolak
	assert.False(t, CanTransition(StatusUnpaid, StatusDelivered, ActorAdmin))
	assert.False(t, CanTransition(StatusUnpaid, StatusDelivered, ActorSystem))
}

func TestCanTransition_Canceled(t *testing.T) {
	assert.True(t, CanTransition(StatusUnpaid, StatusCanceled, ActorCustomer))
	assert.True(t, CanTransition(StatusUnpaid, StatusCanceled, ActorSystem))
	assert.True(t, CanTransition(StatusInReview, StatusCanceled, ActorAdmin))
	// setelah produksi jalan, tidak bisa cancel
	assert.False(t, CanTransition(StatusPrinting, StatusCanceled, ActorAdmin))
	assert.False(t, CanTransition(StatusShipping, StatusCanceled, ActorCustomer))
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusDone))
	assert.True(t, Terminal(StatusCanceled))
	assert.False(t, Terminal(StatusUnpaid))
	assert.False(t, Terminal(StatusDelivered))
}

func TestTrackingVisible(t *testing.T) {
	assert.False(t, TrackingVisible(StatusUnpaid))
	assert.False(t, TrackingVisible(StatusPrinting))
	assert.True(t, TrackingVisible(StatusShipping))
	assert.True(t, TrackingVisible(StatusDone))
}

func TestView_SembunyikanTracking(t *testing.T) {
	o := &Order{Status: StatusPrinting, Shipping: ShippingDetails{TrackingNumber: "JNE123"}}
	assert.Empty(t, o.View().Shipping.TrackingNumber)
	// aslinya tidak berubah
	assert.Equal(t, "JNE123", o.Shipping.TrackingNumber)

	o.Status = StatusShipping
	assert.Equal(t, "JNE123", o.View().Shipping.TrackingNumber)
}

func TestPaymentRank_Monoton(t *testing.T) {
	assert.Less(t, PaymentRank(PaymentPending), PaymentRank(PaymentFailed))
	assert.Less(t, PaymentRank(PaymentFailed), PaymentRank(PaymentPaid))
	assert.Less(t, PaymentRank(PaymentPaid), PaymentRank(PaymentRefunded))
}

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqiarief/cetak3d-backend/internal/orders"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		tx, fraud  string
		wantPay    orders.PaymentStatus
		wantStatus orders.OrderStatus // "" = tidak diubah
	}{
		{"capture", "accept", orders.PaymentPaid, orders.StatusInReview},
		{"settlement", "", orders.PaymentPaid, orders.StatusInReview},
		{"cancel", "", orders.PaymentFailed, orders.StatusCanceled},
		{"deny", "", orders.PaymentFailed, orders.StatusCanceled},
		{"expire", "", orders.PaymentFailed, orders.StatusCanceled},
		{"pending", "", orders.PaymentPending, ""},
		{"refund", "", orders.PaymentRefunded, ""},
	}
	for _, tc := range cases {
		t.Run(tc.tx, func(t *testing.T) {
			pay, status, err := MapStatus(tc.tx, tc.fraud)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPay, pay)
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestMapStatus_Ambigu(t *testing.T) {
	_, _, err := MapStatus("capture", "challenge")
	assert.ErrorIs(t, err, orders.ErrAmbiguousMapping)

	_, _, err = MapStatus("authorize", "")
	assert.ErrorIs(t, err, orders.ErrAmbiguousMapping)

	_, _, err = MapStatus("", "")
	assert.ErrorIs(t, err, orders.ErrAmbiguousMapping)
}

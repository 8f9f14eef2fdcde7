package reconcile

import (
	"fmt"

	"github.com/rifqiarief/cetak3d-backend/internal/orders"
)

// MapStatus menerjemahkan (transaction_status, fraud_status) Midtrans ke
// (paymentStatus, orderStatus) internal. orderStatus "" artinya tidak diubah.
// Status yang tidak dikenali TIDAK ditebak; order dibiarkan utuh dan
// di-flag untuk review manual.
func MapStatus(txStatus, fraudStatus string) (orders.PaymentStatus, orders.OrderStatus, error) {
	switch txStatus {
	case "capture":
		if fraudStatus == "accept" {
			return orders.PaymentPaid, orders.StatusInReview, nil
		}
		return "", "", fmt.Errorf("%w: capture dengan fraud_status=%q",
			orders.ErrAmbiguousMapping, fraudStatus)
	case "settlement":
		return orders.PaymentPaid, orders.StatusInReview, nil
	case "cancel", "deny", "expire":
		return orders.PaymentFailed, orders.StatusCanceled, nil
	case "pending":
		return orders.PaymentPending, "", nil
	case "refund":
		return orders.PaymentRefunded, "", nil
	}
	return "", "", fmt.Errorf("%w: transaction_status=%q", orders.ErrAmbiguousMapping, txStatus)
}

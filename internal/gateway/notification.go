package gateway

// Notification adalah payload webhook Midtrans. Field apa pun di sini
// baru boleh dipercaya setelah VerifySignature lolos.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SettlementTime    string `json:"settlement_time"`
	SignatureKey      string `json:"signature_key"`
}

func (n Notification) Status() TransactionStatus {
	return TransactionStatus{
		OrderID:           n.OrderID,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		PaymentType:       n.PaymentType,
		StatusCode:        n.StatusCode,
		GrossAmount:       n.GrossAmount,
		SettlementTime:    n.SettlementTime,
	}
}

// NormalizeMethod memetakan payment_type mentah Midtrans ke tiga kelas
// internal. Tipe yang tidak dikenal dibiarkan kosong, jangan nebak.
func NormalizeMethod(paymentType string) string {
	switch paymentType {
	case "bank_transfer", "echannel", "permata", "bca_va", "bni_va", "bri_va", "cimb_va":
		return "bank_transfer"
	case "credit_card":
		return "credit_card"
	case "gopay", "qris", "shopeepay", "dana", "ovo":
		return "e_wallet"
	}
	return ""
}

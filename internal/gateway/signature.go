package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// VerifySignature mengecek keaslian notifikasi webhook sesuai skema Midtrans:
// sha512(order_id + status_code + gross_amount + server_key).
// Wajib lolos SEBELUM satu field pun dari body dipercaya.
func VerifySignature(n Notification, serverKey string) bool {
	h := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	want := hex.EncodeToString(h[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}

package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(orderID, statusCode, gross, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + gross + serverKey))
	return hex.EncodeToString(h[:])
}

func TestVerifySignature(t *testing.T) {
	const key = "SB-Mid-server-abc123"
	n := Notification{
		OrderID:     "ORD-1748772000-042",
		StatusCode:  "200",
		GrossAmount: "65000.00",
	}
	n.SignatureKey = sign(n.OrderID, n.StatusCode, n.GrossAmount, key)

	assert.True(t, VerifySignature(n, key))

	// server key beda -> tolak
	assert.False(t, VerifySignature(n, "key-lain"))

	// field diubah setelah ditandatangani -> tolak
	tampered := n
	tampered.GrossAmount = "1.00"
	assert.False(t, VerifySignature(tampered, key))

	// signature kosong -> tolak
	n.SignatureKey = ""
	assert.False(t, VerifySignature(n, key))
}

func TestNormalizeMethod(t *testing.T) {
	cases := map[string]string{
		"bank_transfer": "bank_transfer",
		"echannel":      "bank_transfer",
		"permata":       "bank_transfer",
		"credit_card":   "credit_card",
		"gopay":         "e_wallet",
		"qris":          "e_wallet",
		"shopeepay":     "e_wallet",
		// tidak dikenal: biarkan kosong, jangan nebak
		"cstore":  "",
		"akulaku": "",
		"":        "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeMethod(raw), "payment_type=%q", raw)
	}
}

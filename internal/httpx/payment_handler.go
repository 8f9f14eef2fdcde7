package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/gateway"
	"github.com/rifqiarief/cetak3d-backend/internal/reconcile"
)

// PaymentHandler menerima notifikasi webhook dari Midtrans.
// Endpoint ini TIDAK pakai auth JWT; keasliannya dijamin signature gateway.
type PaymentHandler struct {
	Engine    *reconcile.Engine
	ServerKey string
	Log       *zap.Logger
}

func (h *PaymentHandler) Register(r *chi.Mux) {
	r.Post("/payments/midtrans/notify", h.notify)
}

type notifyResp struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	OrderStatus   string `json:"order_status,omitempty"`
}

func (h *PaymentHandler) notify(w http.ResponseWriter, r *http.Request) {
	var n gateway.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "json tidak valid")
		return
	}

	// verifikasi signature SEBELUM field lain dipercaya / state disentuh
	if !gateway.VerifySignature(n, h.ServerKey) {
		h.Log.Warn("signature webhook tidak cocok", zap.String("order_id", n.OrderID))
		writeError(w, http.StatusForbidden, "invalid_signature", "")
		return
	}

	res, err := h.Engine.ReconcileNotification(r.Context(), n)
	if err != nil {
		writeServiceError(w, r, h.Log, err, map[string]any{"order_id": n.OrderID})
		return
	}

	writeJSON(w, http.StatusOK, notifyResp{
		Success:       true,
		OrderID:       res.OrderID,
		PaymentStatus: string(res.PaymentStatus),
		OrderStatus:   string(res.OrderStatus),
	})
}

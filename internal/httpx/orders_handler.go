package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/reconcile"
)

type OrdersHandler struct {
	Svc       *orders.Service
	Engine    *reconcile.Engine
	JWTSecret string
	Log       *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(Authenticate(h.JWTSecret))
		r.Post("/", h.create)
		r.Get("/", h.listMine)
		r.Get("/{id}", h.get)
		r.Post("/{id}/payment", h.initPayment)
		r.Post("/{id}/verify", h.verifyPayment)
		r.Post("/{id}/cancel", h.cancel)
		r.Post("/{id}/confirm", h.confirm)
	})

	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(Authenticate(h.JWTSecret), RequireAdmin)
		r.Get("/", h.listAll)
		r.Patch("/{id}/status", h.updateStatus)
		r.Delete("/{id}", h.delete)
	})
}

type createOrderResp struct {
	OrderID      string `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	PaymentToken string `json:"payment_token,omitempty"`
	PaymentURL   string `json:"payment_url,omitempty"`
	TotalAmount  int64  `json:"total_amount"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())

	var in orders.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "json tidak valid")
		return
	}
	in.CustomerEmail = c.Email

	o, err := h.Svc.Create(r.Context(), c.UserID, in)
	if err != nil {
		details := map[string]any{}
		// order sudah tersimpan tapi gateway gagal: kasih identitas order
		// supaya client bisa retry lewat POST /orders/{id}/payment
		if o != nil {
			details["order_id"] = o.ID
			details["order_number"] = o.OrderNumber
		}
		writeServiceError(w, r, h.Log, err, details)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResp{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		PaymentToken: o.PaymentInfo.SnapToken,
		PaymentURL:   o.PaymentInfo.PaymentURL,
		TotalAmount:  o.Summary.TotalAmount,
	})
}

func (h *OrdersHandler) initPayment(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())
	o, err := h.Svc.InitPayment(r.Context(), c.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, createOrderResp{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		PaymentToken: o.PaymentInfo.SnapToken,
		PaymentURL:   o.PaymentInfo.PaymentURL,
		TotalAmount:  o.Summary.TotalAmount,
	})
}

// verifyPayment: jalur pull setelah user redirect balik dari halaman bayar.
// Hanya pemilik order; hasilnya state terkini menurut gateway.
func (h *OrdersHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	// cek kepemilikan dulu, jangan bocorin order orang lewat verify
	if _, err := h.Svc.Get(r.Context(), c.UserID, false, id); err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}

	res, err := h.Engine.ReconcileOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())
	o, err := h.Svc.Get(r.Context(), c.UserID, c.IsAdmin(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())
	limit, offset := paging(r)
	out, err := h.Svc.ListMine(r.Context(), c.UserID, limit, offset)
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, orders.StatusCanceled)
}

// confirm: customer menandai pesanan selesai (delivered -> done).
func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, orders.StatusDone)
}

func (h *OrdersHandler) customerTransition(w http.ResponseWriter, r *http.Request, to orders.OrderStatus) {
	c := ClaimsFrom(r.Context())
	o, err := h.Svc.UpdateStatus(r.Context(), orders.ActorCustomer, c.UserID, chi.URLParam(r, "id"), to, "")
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, o.View())
}

// ---- admin ----

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	status := orders.OrderStatus(r.URL.Query().Get("status"))
	out, err := h.Svc.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type updateStatusReq struct {
	Status         orders.OrderStatus `json:"status"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFrom(r.Context())
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "json tidak valid")
		return
	}
	o, err := h.Svc.UpdateStatus(r.Context(), orders.ActorAdmin, c.UserID,
		chi.URLParam(r, "id"), req.Status, req.TrackingNumber)
	if err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.Log, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

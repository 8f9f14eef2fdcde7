package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/redisx"
)

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode string, detail string) {
	body := errorBody{Error: errCode}
	if detail != "" {
		body.Details = map[string]any{"message": detail}
	}
	writeJSON(w, code, body)
}

// writeServiceError memetakan taksonomi error bisnis ke kode HTTP.
// Error tak dikenal = 500 opaque; detail internal cuma masuk log,
// jangan bocor ke client.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, details map[string]any) {
	var code int
	var errCode string
	switch {
	case errors.Is(err, orders.ErrInvalidInput):
		code, errCode = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, orders.ErrUnauthenticated):
		code, errCode = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, orders.ErrForbidden):
		code, errCode = http.StatusForbidden, "forbidden"
	case errors.Is(err, orders.ErrNotFound):
		code, errCode = http.StatusNotFound, "not_found"
	case errors.Is(err, orders.ErrInvalidTransition):
		code, errCode = http.StatusConflict, "invalid_transition"
	case errors.Is(err, redisx.ErrLockHeld):
		code, errCode = http.StatusConflict, "reconciliation_in_progress"
	case errors.Is(err, orders.ErrAmbiguousMapping):
		code, errCode = http.StatusUnprocessableEntity, "ambiguous_gateway_status"
	case errors.Is(err, orders.ErrGatewayUnavailable):
		code, errCode = http.StatusBadGateway, "gateway_unavailable"
	case errors.Is(err, orders.ErrGatewayVerification):
		code, errCode = http.StatusBadGateway, "gateway_verification_failed"
	default:
		reqID := middleware.GetReqID(r.Context())
		log.Error("internal error", zap.String("request_id", reqID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "internal",
			Details: map[string]any{"request_id": reqID},
		})
		return
	}

	body := errorBody{Error: errCode, Details: details}
	if body.Details == nil {
		body.Details = map[string]any{}
	}
	if code >= 400 && err != nil && code != http.StatusInternalServerError {
		body.Details["message"] = err.Error()
	}
	writeJSON(w, code, body)
}

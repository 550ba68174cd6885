package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

type OrdersHandler struct {
	Orders OrderActions
}

type orderActionRequest struct {
	OrderID string `json:"order_id"`
	Action  string `json:"action"`
	Reason  string `json:"reason"`
}

var orderActions = map[string]model.OrderStatus{
	"accept":  model.OrderAccepted,
	"decline": model.OrderDeclined,
}

// Action lets a supplier accept or decline its portion of an order without a chat turn.
func (h *OrdersHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req orderActionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	if req.OrderID == "" || req.Action == "" {
		jsonError(w, http.StatusBadRequest, "order_id and action are required")
		return
	}
	status, ok := orderActions[req.Action]
	if !ok {
		jsonError(w, http.StatusBadRequest, `action must be either "accept" or "decline"`)
		return
	}

	u := UserFrom(r.Context())
	result, err := h.Orders.Transition(r.Context(), u, req.OrderID, status, strings.TrimSpace(req.Reason))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrForbidden):
			jsonError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, model.ErrNotFound):
			jsonError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, model.ErrValidation),
			errors.Is(err, model.ErrInvalidTransition),
			errors.Is(err, model.ErrConflict):
			jsonError(w, http.StatusBadRequest, err.Error())
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).Str("order_id", req.OrderID).Msg("order action")
			jsonError(w, http.StatusInternalServerError, "Failed to process order action")
		}
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success":          true,
		"message":          "Order " + string(result.SupplierStatus) + " successfully",
		"order_status":     result.SupplierStatus,
		"aggregate_status": result.OrderStatus,
	})
}

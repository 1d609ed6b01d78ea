package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/service/orders"
)

const defaultEarningsWindow = 30 * 24 * time.Hour

type OrderController struct {
	aggregator *orders.Aggregator
	now        func() time.Time
}

func NewOrderController(aggregator *orders.Aggregator) *OrderController {
	return &OrderController{aggregator: aggregator, now: time.Now}
}

func (h *OrderController) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.aggregator.Orders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, FromOrder))
}

func (h *OrderController) Sync(w http.ResponseWriter, r *http.Request) {
	list, err := h.aggregator.FetchAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, FromOrder))
}

func (h *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	platformOrderID := chi.URLParam(r, "id")

	var req UpdateOrderStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := platform.Platform(req.Platform)
	if err := h.aggregator.UpdateOrderStatus(r.Context(), platformOrderID, order.Status(req.Status), p); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.aggregator.Order(r.Context(), p, platformOrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "order not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, FromOrder(o))
}

// Earnings summarizes ?from..?to, defaulting to the last 30 days.
func (h *OrderController) Earnings(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	q := r.URL.Query()

	from, err := parseTime(q.Get("from"), "from", now.Add(-defaultEarningsWindow))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseTime(q.Get("to"), "to", now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if to.Before(from) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "to must not precede from", Code: "validation_error"})
		return
	}

	earnings, err := h.aggregator.Earnings(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

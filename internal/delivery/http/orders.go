package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

var (
	errMissingGuestCookie = fmt.Errorf("a valid %s header is required: %w", HeaderGuestCookie, entity.ErrInvalidArgument)
	errAdminKeyRequired   = fmt.Errorf("admin key required: %w", entity.ErrForbidden)
)

type SetStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var details entity.CheckoutDetails
	if r.ContentLength != 0 && !decodeBody(w, r, &details) {
		return
	}

	order, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.Order, error) {
		return h.orders.CreateOrder(ctx, userID, details)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.Order, error) {
		return h.orders.CancelOrder(ctx, orderID, userID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, r, errAdminKeyRequired)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SetStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.Order, error) {
		return h.orders.AdvanceStatus(ctx, orderID, to)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.orders.GetOrder(r.Context(), orderID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.orders.OrderHistory(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleOrderStatistics(w http.ResponseWriter, r *http.Request) {
	userID, err := h.user(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.orders.Statistics(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAdminListOrders lists orders across users, optionally filtered by
// ?status=.
func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, r, errAdminKeyRequired)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := entity.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.orders.ListOrdersByStatus(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleStoreStatistics(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, r, errAdminKeyRequired)
		return
	}

	stats, err := h.orders.StoreStatistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

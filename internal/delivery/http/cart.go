package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/identity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

type CartResponse struct {
	Lines     []entity.CartLine `json:"lines"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

type AddItemRequest struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	lines, err := h.carts.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.carts.Total(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	if lines == nil {
		lines = []entity.CartLine{}
	}
	writeJSON(w, http.StatusOK, CartResponse{Lines: lines, Total: total, ItemCount: count})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	line, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.CartLine, error) {
		return h.carts.Add(ctx, owner, req.ProductID, req.Size, req.Quantity)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lineID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	line, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.CartLine, error) {
		return h.carts.UpdateQuantity(ctx, owner, lineID, req.Quantity)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lineID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.carts.Remove(r.Context(), owner, lineID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.carts.Clear(r.Context(), owner); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleValidateCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.carts.Validate(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleMigrateCart merges the guest cart named by the guest cookie into the
// cart of the user named by the bearer token.
func (h *Handler) handleMigrateCart(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	user, err := h.resolver.ResolveUser(r.Context(), creds.BearerToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, _ := user.UserID()
	if !identity.ValidGuestCookie(creds.GuestCookie) {
		writeError(w, r, errMissingGuestCookie)
		return
	}
	if _, err := h.resolver.ResolveGuest(r.Context(), creds.GuestCookie); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := service.RetryTransient(r.Context(), h.retry, func(ctx context.Context) (entity.MigrationResult, error) {
		return h.migration.MigrateGuestCart(ctx, creds.GuestCookie, userID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

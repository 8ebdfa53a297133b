package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/identity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Request headers and cookie carrying credentials.
const (
	HeaderGuestCookie = "X-Guest-Cookie"
	HeaderAdminKey    = "X-Admin-Key"
	GuestCookieName   = "guest_cookie"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	resolver  *identity.Resolver
	carts     *service.CartService
	orders    *service.OrderService
	migration *service.MigrationService
	retry     service.RetryPolicy
	adminKey  string
}

// NewHandler creates a Handler. An empty adminKey disables the admin routes.
func NewHandler(
	resolver *identity.Resolver,
	carts *service.CartService,
	orders *service.OrderService,
	migration *service.MigrationService,
	retry service.RetryPolicy,
	adminKey string,
) *Handler {
	return &Handler{
		resolver:  resolver,
		carts:     carts,
		orders:    orders,
		migration: migration,
		retry:     retry,
		adminKey:  adminKey,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/guest-cookie", h.handleIssueGuestCookie)

	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.handleRemoveItem)
	mux.HandleFunc("GET /api/cart/validate", h.handleValidateCart)
	mux.HandleFunc("POST /api/cart/migrate", h.handleMigrateCart)

	mux.HandleFunc("POST /api/orders", h.handleCreateOrder)
	mux.HandleFunc("GET /api/orders", h.handleListOrders)
	mux.HandleFunc("GET /api/orders/stats", h.handleOrderStatistics)
	mux.HandleFunc("GET /api/orders/{id}", h.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.handleCancelOrder)
	mux.HandleFunc("GET /api/orders/{id}/events", h.handleOrderHistory)

	mux.HandleFunc("GET /api/admin/orders", h.handleAdminListOrders)
	mux.HandleFunc("GET /api/admin/orders/stats", h.handleStoreStatistics)
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", h.handleSetOrderStatus)
}

func credentials(r *http.Request) identity.Credentials {
	var creds identity.Credentials
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			creds.BearerToken = strings.TrimSpace(token)
		}
	}
	creds.GuestCookie = r.Header.Get(HeaderGuestCookie)
	if creds.GuestCookie == "" {
		if c, err := r.Cookie(GuestCookieName); err == nil {
			creds.GuestCookie = c.Value
		}
	}
	return creds
}

func (h *Handler) owner(r *http.Request) (entity.OwnerKey, error) {
	return h.resolver.Resolve(r.Context(), credentials(r))
}

// user resolves the request to a signed-in user. Guests get
// ErrAuthorizationDenied.
func (h *Handler) user(r *http.Request) (int64, error) {
	owner, err := h.owner(r)
	if err != nil {
		return 0, err
	}
	return identity.RequireUser(owner)
}

func (h *Handler) isAdmin(r *http.Request) bool {
	if h.adminKey == "" {
		return false
	}
	key := r.Header.Get(HeaderAdminKey)
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) == 1
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", raw, entity.ErrInvalidArgument)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, entity.ErrInvalidArgument)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   entity.KindInvalidArgument,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

type errorResponse struct {
	Error     entity.Kind `json:"error"`
	Message   string      `json:"message"`
	ProductID int64       `json:"product_id,omitempty"`
	Size      string      `json:"size,omitempty"`
	Available *int        `json:"available,omitempty"`
	Requested int         `json:"requested,omitempty"`
}

func statusFor(kind entity.Kind) int {
	switch kind {
	case entity.KindUnauthenticated:
		return http.StatusUnauthorized
	case entity.KindAuthorizationDenied, entity.KindForbidden:
		return http.StatusForbidden
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindInsufficientInventory, entity.KindEmptyCart, entity.KindInvalidState, entity.KindConflict:
		return http.StatusConflict
	case entity.KindInvalidArgument:
		return http.StatusUnprocessableEntity
	case entity.KindLockTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and a {"error", "message"} body.
// Internal errors are logged and their text is not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := entity.KindOf(err)
	status := statusFor(kind)
	resp := errorResponse{Error: kind, Message: err.Error()}

	switch kind {
	case entity.KindInternal:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		resp.Message = "internal server error"
	case entity.KindLockTimeout:
		slog.Warn("Request timed out waiting for a lock", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
	case entity.KindInsufficientInventory:
		var ie *entity.InsufficientInventoryError
		if errors.As(err, &ie) {
			available := ie.Available
			resp.ProductID, resp.Size, resp.Available, resp.Requested = ie.ProductID, ie.Size, &available, ie.Requested
		}
	default:
		slog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind, "err", err)
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleIssueGuestCookie(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.resolver.IssueGuestCookie(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    cookie.Value,
		Path:     "/",
		Expires:  cookie.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, cookie)
}

// EnableCORS is a middleware to allow the browser frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderGuestCookie+", "+HeaderAdminKey)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

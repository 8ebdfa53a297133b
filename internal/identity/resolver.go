package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Credentials are the raw values presented with a request. Either may be empty.
type Credentials struct {
	BearerToken string
	GuestCookie string
}

// GuestSessions tracks issued guest cookies and their expiry.
type GuestSessions interface {
	Register(ctx context.Context, cookie string, ttl time.Duration) error
	Active(ctx context.Context, cookie string) (bool, error)
}

// Resolver turns credentials into an OwnerKey.
type Resolver struct {
	tokens   *TokenIssuer
	users    repository.UserRepository
	sessions GuestSessions
	guestTTL time.Duration
	now      func() time.Time
}

// NewResolver creates a Resolver. sessions may be nil, in which case any
// well-formed guest cookie is accepted.
func NewResolver(tokens *TokenIssuer, users repository.UserRepository, sessions GuestSessions, guestTTL time.Duration) *Resolver {
	if guestTTL <= 0 {
		guestTTL = DefaultGuestCookieTTL
	}
	return &Resolver{
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		guestTTL: guestTTL,
		now:      time.Now,
	}
}

// Resolve prefers a valid bearer token and falls back to the guest cookie.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (entity.OwnerKey, error) {
	if creds.BearerToken != "" {
		owner, err := r.ResolveUser(ctx, creds.BearerToken)
		if err == nil {
			return owner, nil
		}
		if !errors.Is(err, entity.ErrUnauthenticated) {
			return entity.OwnerKey{}, err
		}
		slog.Debug("Bearer token rejected, trying guest cookie", "error", err)
	}

	if creds.GuestCookie != "" {
		return r.ResolveGuest(ctx, creds.GuestCookie)
	}
	return entity.OwnerKey{}, fmt.Errorf("no usable credentials: %w", entity.ErrUnauthenticated)
}

// ResolveUser resolves a bearer token to a UserID key. The user must still exist.
func (r *Resolver) ResolveUser(ctx context.Context, bearerToken string) (entity.OwnerKey, error) {
	userID, err := r.tokens.Verify(bearerToken)
	if err != nil {
		return entity.OwnerKey{}, fmt.Errorf("%w: %w", entity.ErrUnauthenticated, err)
	}
	exists, err := r.users.Exists(ctx, userID)
	if err != nil {
		return entity.OwnerKey{}, fmt.Errorf("failed to resolve user %d: %w", userID, err)
	}
	if !exists {
		return entity.OwnerKey{}, fmt.Errorf("user %d no longer exists: %w", userID, entity.ErrUnauthenticated)
	}
	return entity.UserOwner(userID), nil
}

// ResolveGuest checks the cookie format and, when sessions are tracked, that
// the cookie is still registered.
func (r *Resolver) ResolveGuest(ctx context.Context, cookie string) (entity.OwnerKey, error) {
	if !ValidGuestCookie(cookie) {
		return entity.OwnerKey{}, fmt.Errorf("malformed guest cookie: %w", entity.ErrUnauthenticated)
	}
	if r.sessions != nil {
		active, err := r.sessions.Active(ctx, cookie)
		if err != nil {
			return entity.OwnerKey{}, fmt.Errorf("failed to check guest session: %w", err)
		}
		if !active {
			return entity.OwnerKey{}, fmt.Errorf("guest cookie expired or unknown: %w", entity.ErrUnauthenticated)
		}
	}
	return entity.GuestOwner(cookie), nil
}

// RequireUser returns the user ID of owner, or ErrAuthorizationDenied for a
// guest key.
func RequireUser(owner entity.OwnerKey) (int64, error) {
	if id, ok := owner.UserID(); ok {
		return id, nil
	}
	if owner.IsGuest() {
		return 0, entity.ErrAuthorizationDenied
	}
	return 0, entity.ErrUnauthenticated
}

// IssueGuestCookie creates a new guest cookie and registers it.
func (r *Resolver) IssueGuestCookie(ctx context.Context) (GuestCookie, error) {
	cookie, err := NewGuestCookie(r.guestTTL, r.now())
	if err != nil {
		return GuestCookie{}, err
	}
	if r.sessions != nil {
		if err := r.sessions.Register(ctx, cookie.Value, r.guestTTL); err != nil {
			return GuestCookie{}, fmt.Errorf("failed to register guest cookie: %w", err)
		}
	}
	slog.Info("Guest cookie issued", "owner", entity.GuestOwner(cookie.Value).String())
	return cookie, nil
}

package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	GuestCookiePrefix = "guest_"
	guestCookieBody   = 32
	GuestCookieLength = len(GuestCookiePrefix) + guestCookieBody

	DefaultGuestCookieTTL = 30 * 24 * time.Hour
)

const cookieAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GuestCookie is an issued anonymous session credential.
type GuestCookie struct {
	Value     string    `json:"cookie"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewGuestCookie generates a cookie valid for ttl from now.
func NewGuestCookie(ttl time.Duration, now time.Time) (GuestCookie, error) {
	var b strings.Builder
	b.Grow(GuestCookieLength)
	b.WriteString(GuestCookiePrefix)

	size := big.NewInt(int64(len(cookieAlphabet)))
	for i := 0; i < guestCookieBody; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return GuestCookie{}, fmt.Errorf("failed to generate guest cookie: %w", err)
		}
		b.WriteByte(cookieAlphabet[n.Int64()])
	}
	return GuestCookie{Value: b.String(), ExpiresAt: now.Add(ttl)}, nil
}

// ValidGuestCookie checks the cookie format only.
func ValidGuestCookie(cookie string) bool {
	if len(cookie) != GuestCookieLength || !strings.HasPrefix(cookie, GuestCookiePrefix) {
		return false
	}
	for _, c := range cookie[len(GuestCookiePrefix):] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

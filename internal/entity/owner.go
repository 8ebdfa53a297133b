package entity

import (
	"fmt"
	"strconv"
)

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerUser
	ownerGuest
)

// OwnerKey identifies who a cart belongs to: either a user ID or a guest
// cookie, never both. The zero value owns nothing and is not Valid.
type OwnerKey struct {
	kind   ownerKind
	userID int64
	cookie string
}

// UserOwner returns the key of an authenticated user.
func UserOwner(userID int64) OwnerKey {
	if userID <= 0 {
		return OwnerKey{}
	}
	return OwnerKey{kind: ownerUser, userID: userID}
}

// GuestOwner returns the key of an anonymous visitor holding cookie.
// The cookie format is checked by the identity layer, not here.
func GuestOwner(cookie string) OwnerKey {
	if cookie == "" {
		return OwnerKey{}
	}
	return OwnerKey{kind: ownerGuest, cookie: cookie}
}

// Valid reports whether exactly one variant is set.
func (k OwnerKey) Valid() bool {
	return k.kind == ownerUser || k.kind == ownerGuest
}

// IsGuest reports whether k is a guest cookie key.
func (k OwnerKey) IsGuest() bool {
	return k.kind == ownerGuest
}

// UserID returns the user ID and true for a user key.
func (k OwnerKey) UserID() (int64, bool) {
	return k.userID, k.kind == ownerUser
}

// GuestCookie returns the cookie and true for a guest key.
func (k OwnerKey) GuestCookie() (string, bool) {
	return k.cookie, k.kind == ownerGuest
}

// String is safe to log: guest cookies are truncated.
func (k OwnerKey) String() string {
	switch k.kind {
	case ownerUser:
		return "user:" + strconv.FormatInt(k.userID, 10)
	case ownerGuest:
		c := k.cookie
		if len(c) > 12 {
			c = c[:12] + "..."
		}
		return "guest:" + c
	default:
		return "none"
	}
}

// GoString keeps full cookies out of %#v output as well.
func (k OwnerKey) GoString() string {
	return fmt.Sprintf("entity.OwnerKey(%s)", k.String())
}

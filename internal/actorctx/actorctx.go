package actorctx

import (
	"context"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/user"
)

type ctxKey string

const keyIdentity ctxKey = "identity"

// Identity is the caller derived from a verified access token.
type Identity struct {
	UserID    int64
	Username  string
	Role      user.Role
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool {
	return i.Role == user.RoleAdmin
}

// CanAccess reports whether the caller may read or change a row owned by ownerID.
func (i Identity) CanAccess(ownerID int64) bool {
	return i.IsAdmin() || i.UserID == ownerID
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(keyIdentity).(Identity)

	return v, ok && v.Username != ""
}

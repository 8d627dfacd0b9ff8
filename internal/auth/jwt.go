package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

// ErrTokenInvalid covers every rejected token: expired, tampered, wrong
// algorithm, wrong type or plain garbage.
var ErrTokenInvalid = errors.New("invalid or expired token")

// Claims carries the username in the registered "sub" claim.
type Claims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

func NewManager(secret, issuer string, accessTTL time.Duration) *Manager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}

	return &Manager{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) TTL() time.Duration {
	return m.accessTTL
}

// Issue signs a time-bound access token binding the username and role.
func (m *Manager) Issue(u user.User) (token string, expiresAt time.Time, err error) {
	now := m.now()
	expiresAt = now.Add(m.accessTTL)

	claims := Claims{
		UserID:    strconv.FormatInt(u.ID, 10),
		Role:      string(u.Role),
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)

	return
}

// Verify checks signature, expiry and token type and returns the embedded identity.
func (m *Manager) Verify(tokenStr string) (actorctx.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		return actorctx.Identity{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return actorctx.Identity{}, ErrTokenInvalid
	}

	if claims.TokenType != tokenTypeAccess || claims.Subject == "" || claims.ID == "" {
		return actorctx.Identity{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)

	if err != nil {
		return actorctx.Identity{}, ErrTokenInvalid
	}

	role := user.Role(claims.Role)
	if !role.IsValid() {
		return actorctx.Identity{}, ErrTokenInvalid
	}

	return actorctx.Identity{
		UserID:    userID,
		Username:  claims.Subject,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/domain/user"
)

var (
	// ErrAuthenticationFailed is returned for unknown identifiers, inactive
	// accounts and wrong passwords alike.
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrUnauthenticated      = errors.New("user not authenticated")
	// ErrAuthUnavailable means the token could not be checked against the
	// revocation store. The token itself may well be valid.
	ErrAuthUnavailable      = errors.New("authentication backend unavailable")
)

// CredentialStore is the persistence the service needs. Both the postgres and
// the in-memory users repos satisfy it.
type CredentialStore interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, u user.User) (user.User, error)
	FindByUsername(ctx context.Context, username string) (user.User, bool, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, bool, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(u user.User) (string, time.Time, error)
	Verify(token string) (actorctx.Identity, error)
}

// Observer receives auth outcomes for metrics. Optional.
type Observer interface {
	ObserveAuth(op, result string)
}

type Service struct {
	users    CredentialStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	denylist Denylist
	observer Observer
	log      *slog.Logger

	// compared against on unknown identifiers so both login failure paths cost a hash check
	dummyHash string
}

type AuthResult struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
}

func NewService(users CredentialStore, hasher PasswordHasher, tokens TokenIssuer, denylist Denylist, observer Observer, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	if denylist == nil {
		denylist = NewMemoryDenylist()
	}

	dummy, err := hasher.Hash("skincare-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		denylist:  denylist,
		observer:  observer,
		log:       log,
		dummyHash: dummy,
	}, nil
}

func (s *Service) observe(op, result string) {
	if s.observer != nil {
		s.observer.ObserveAuth(op, result)
	}
}

// Register creates a USER account and signs the caller in.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (AuthResult, error) {
	if len(req.Password) > user.MaxPasswordBytes {
		return AuthResult{}, user.ErrPasswordTooLong
	}

	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return AuthResult{}, err
	}
	if taken {
		s.observe("register", "duplicate_username")
		return AuthResult{}, user.ErrDuplicateUsername
	}

	taken, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if taken {
		s.observe("register", "duplicate_email")
		return AuthResult{}, user.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password failed: %w", err)
	}

	// a concurrent registration can still win between the checks and the insert;
	// the store maps the unique violation to the same duplicate errors.
	saved, err := s.users.Save(ctx, user.New(req, hash))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			s.observe("register", "duplicate_username")
		case errors.Is(err, user.ErrDuplicateEmail):
			s.observe("register", "duplicate_email")
		}
		return AuthResult{}, err
	}

	res, err := s.issue(saved)
	if err != nil {
		return AuthResult{}, err
	}

	s.observe("register", "ok")
	s.log.InfoContext(ctx, "user_registered", "user_id", saved.ID, "username", saved.Username)

	return res, nil
}

// Login verifies credentials. Every failure is ErrAuthenticationFailed.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (AuthResult, error) {
	u, found, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return AuthResult{}, err
	}

	if !found {
		_ = s.hasher.Verify(password, s.dummyHash)
		s.observe("login", "failed")
		return AuthResult{}, ErrAuthenticationFailed
	}

	if !s.hasher.Verify(password, u.PasswordHash) || !u.Active {
		s.observe("login", "failed")
		return AuthResult{}, ErrAuthenticationFailed
	}

	res, err := s.issue(u)
	if err != nil {
		return AuthResult{}, err
	}

	s.observe("login", "ok")

	return res, nil
}

// Authenticate turns a presented token into the caller identity.
func (s *Service) Authenticate(ctx context.Context, token string) (actorctx.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return actorctx.Identity{}, ErrUnauthenticated
	}

	revoked, err := s.denylist.IsRevoked(ctx, id.TokenID)
	if err != nil {
		return actorctx.Identity{}, fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}
	if revoked {
		return actorctx.Identity{}, ErrUnauthenticated
	}

	return id, nil
}

// CurrentUser loads the profile of the identity embedded in token.
func (s *Service) CurrentUser(ctx context.Context, token string) (user.Profile, error) {
	id, err := s.Authenticate(ctx, token)
	if err != nil {
		return user.Profile{}, err
	}

	return s.Profile(ctx, id)
}

// Profile loads the profile of an already verified identity. A missing record
// means the account vanished after the token was issued.
func (s *Service) Profile(ctx context.Context, id actorctx.Identity) (user.Profile, error) {
	u, found, err := s.users.FindByUsername(ctx, id.Username)
	if err != nil {
		return user.Profile{}, err
	}
	if !found {
		s.log.WarnContext(ctx, "token_user_missing", "username", id.Username, "user_id", id.UserID)
		return user.Profile{}, user.ErrNotFound
	}

	return u.Profile(), nil
}

// Logout revokes token until it expires. Tokens that do not verify are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}

	if err := s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return err
	}

	s.observe("logout", "ok")

	return nil
}

func (s *Service) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Service) CheckEmailAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Service) issue(u user.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token failed: %w", err)
	}

	return AuthResult{
		Token:     token,
		Type:      "Bearer",
		ExpiresAt: expiresAt,
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
	}, nil
}

package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/skincareplus/internal/config"
	"github.com/geocoder89/skincareplus/internal/domain/user"
)

type adminStore interface {
	FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, bool, error)
	Save(ctx context.Context, u user.User) (user.User, error)
}

type passwordHasher interface {
	Hash(plain string) (string, error)
}

// EnsureAdminUser creates the configured ADMIN account once. Existing accounts
// with the same username or email are left untouched.
func EnsureAdminUser(ctx context.Context, store adminStore, hasher passwordHasher, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}

	// check if the user exists
	for _, id := range []string{username, cfg.AdminEmail} {
		_, found, err := store.FindByUsernameOrEmail(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup admin: %w", err)
		}
		if found {
			return nil
		}
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.User{
		Username:     username,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Active:       true,
	}

	saved, err := store.Save(ctx, u)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.InfoContext(ctx, "admin_user_seeded", "user_id", saved.ID, "username", saved.Username)

	return nil
}

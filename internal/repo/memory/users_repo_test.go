package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/stretchr/testify/require"
)

func newUser(username, email string) user.User {
	return user.User{Username: username, Email: email, PasswordHash: "x", Role: user.RoleUser, Active: true}
}

func TestUsersRepo_SaveAssignsIDAndTimestamps(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	u, err := r.Save(ctx, newUser("jane_doe", "jane@example.com"))
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.False(t, u.CreatedAt.IsZero())
	require.Equal(t, u.CreatedAt, u.UpdatedAt)

	found, ok, err := r.FindByUsername(ctx, "jane_doe")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u.ID, found.ID)
}

func TestUsersRepo_Uniqueness(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	_, err := r.Save(ctx, newUser("jane_doe", "jane@example.com"))
	require.NoError(t, err)

	_, err = r.Save(ctx, newUser("jane_doe", "other@example.com"))
	require.ErrorIs(t, err, user.ErrDuplicateUsername)

	_, err = r.Save(ctx, newUser("someone", "jane@example.com"))
	require.ErrorIs(t, err, user.ErrDuplicateEmail)

	// case-sensitive
	_, err = r.Save(ctx, newUser("Jane_Doe", "JANE@example.com"))
	require.NoError(t, err)
}

func TestUsersRepo_UpdateKeepsCreatedAt(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	u, err := r.Save(ctx, newUser("jane_doe", "jane@example.com"))
	require.NoError(t, err)

	u.Active = false
	updated, err := r.Save(ctx, u)
	require.NoError(t, err)
	require.Equal(t, u.ID, updated.ID)
	require.Equal(t, u.CreatedAt, updated.CreatedAt)
	require.False(t, updated.Active)
}

func TestUsersRepo_FindByUsernameOrEmail(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	saved, err := r.Save(ctx, newUser("jane_doe", "jane@example.com"))
	require.NoError(t, err)

	for _, id := range []string{"jane_doe", "jane@example.com"} {
		u, ok, err := r.FindByUsernameOrEmail(ctx, id)
		require.NoError(t, err)
		require.True(t, ok, id)
		require.Equal(t, saved.ID, u.ID)
	}

	_, ok, err := r.FindByUsernameOrEmail(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUsersRepo_ListFilters(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	oily := user.SkinOily
	a := newUser("alice", "alice@example.com")
	a.SkinType = &oily
	b := newUser("bob", "bob@example.com")
	b.Role = user.RoleAdmin
	c := newUser("carol", "carol@example.com")
	c.Active = false

	for _, u := range []user.User{a, b, c} {
		_, err := r.Save(ctx, u)
		require.NoError(t, err)
	}

	admin := user.RoleAdmin
	got, err := r.List(ctx, user.ListFilter{Role: &admin})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "bob", got[0].Username)

	got, err = r.List(ctx, user.ListFilter{SkinType: &oily})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Username)

	inactive := false
	got, err = r.List(ctx, user.ListFilter{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "carol", got[0].Username)

	got, err = r.List(ctx, user.ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "bob", got[0].Username)
}

func TestUsersRepo_ConcurrentSameUsernameOneWinner(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		dupCount int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Save(ctx, newUser("racer", fmt.Sprintf("racer%d@example.com", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, user.ErrDuplicateUsername):
				dupCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, n-1, dupCount)
}

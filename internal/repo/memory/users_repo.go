package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/user"
)

// UsersRepo keeps users in process. Uniqueness is enforced inside Save under the
// write lock, so concurrent registrations behave like the unique constraints in postgres.
type UsersRepo struct {
	mu     sync.RWMutex
	items  map[int64]user.User
	nextID int64
	now    func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *UsersRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUsernameLocked(username)
	return ok, nil
}

func (r *UsersRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmailLocked(email)
	return ok, nil
}

func (r *UsersRepo) Save(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.byUsernameLocked(u.Username); ok && other.ID != u.ID {
		return user.User{}, user.ErrDuplicateUsername
	}
	if other, ok := r.byEmailLocked(u.Email); ok && other.ID != u.ID {
		return user.User{}, user.ErrDuplicateEmail
	}

	now := r.now()

	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
		u.CreatedAt = now
	} else {
		existing, ok := r.items[u.ID]
		if !ok {
			return user.User{}, user.ErrNotFound
		}
		u.CreatedAt = existing.CreatedAt
	}
	u.UpdatedAt = now

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) FindByUsername(_ context.Context, username string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byUsernameLocked(username)
	return u, ok, nil
}

// FindByUsernameOrEmail prefers a username match over an email match.
func (r *UsersRepo) FindByUsernameOrEmail(_ context.Context, identifier string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.byUsernameLocked(identifier); ok {
		return u, true, nil
	}
	u, ok := r.byEmailLocked(identifier)
	return u, ok, nil
}

func (r *UsersRepo) FindByID(_ context.Context, id int64) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	return u, ok, nil
}

func (r *UsersRepo) List(_ context.Context, f user.ListFilter) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.SkinType != nil && (u.SkinType == nil || *u.SkinType != *f.SkinType) {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []user.User{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	return out, nil
}

func (r *UsersRepo) byUsernameLocked(username string) (user.User, bool) {
	for _, u := range r.items {
		if u.Username == username {
			return u, true
		}
	}
	return user.User{}, false
}

func (r *UsersRepo) byEmailLocked(email string) (user.User, bool) {
	for _, u := range r.items {
		if u.Email == email {
			return u, true
		}
	}
	return user.User{}, false
}

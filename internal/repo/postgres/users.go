package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, full_name, phone, skin_type, date_of_birth, role, is_active, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Phone,
		&u.SkinType,
		&u.DateOfBirth,
		&u.Role,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// mapUserWriteErr turns the unique constraint violations on users into the
// domain duplicate errors.
func mapUserWriteErr(err error) error {
	switch violatedConstraint(err) {
	case "users_username_key":
		return user.ErrDuplicateUsername
	case "users_email_key":
		return user.ErrDuplicateEmail
	}
	return err
}

func (r *UsersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool

	err := r.observe("users.exists_by_username", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	})

	return exists, err
}

func (r *UsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.exists_by_email", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	})

	return exists, err
}

// Save inserts u when it has no id yet and updates it otherwise.
func (r *UsersRepo) Save(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == 0 {
		return r.insert(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *UsersRepo) insert(ctx context.Context, u user.User) (out user.User, err error) {
	err = r.observe("users.insert", func() error {
		out, err = scanUser(r.pool.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, full_name, phone, skin_type, date_of_birth, role, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING `+userColumns,
			u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.SkinType, u.DateOfBirth, string(u.Role), u.Active,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserWriteErr(err)
	}

	return out, nil
}

func (r *UsersRepo) update(ctx context.Context, u user.User) (out user.User, err error) {
	err = r.observe("users.update", func() error {
		out, err = scanUser(r.pool.QueryRow(ctx, `
			UPDATE users
			SET username = $2,
				email = $3,
				password_hash = $4,
				full_name = $5,
				phone = $6,
				skin_type = $7,
				date_of_birth = $8,
				role = $9,
				is_active = $10,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.SkinType, u.DateOfBirth, string(u.Role), u.Active,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapUserWriteErr(err)
	}

	return out, nil
}

func (r *UsersRepo) findOne(ctx context.Context, op, where string, arg any) (user.User, bool, error) {
	var u user.User

	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, false, nil
		}
		return user.User{}, false, err
	}

	return u, true, nil
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, bool, error) {
	return r.findOne(ctx, "users.find_by_username", `username = $1`, username)
}

// FindByUsernameOrEmail prefers the row whose username matches when the
// identifier is one user's username and another user's email.
func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, bool, error) {
	return r.findOne(ctx, "users.find_by_username_or_email",
		`username = $1 OR email = $1 ORDER BY (username = $1) DESC LIMIT 1`, identifier)
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.User, bool, error) {
	return r.findOne(ctx, "users.find_by_id", `id = $1`, id)
}

func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.Role != nil {
		conds = append(conds, fmt.Sprintf("role = $%d", argsPosition))
		args = append(args, string(*f.Role))
		argsPosition++
	}

	if f.SkinType != nil {
		conds = append(conds, fmt.Sprintf("skin_type = $%d", argsPosition))
		args = append(args, *f.SkinType)
		argsPosition++
	}

	if f.Active != nil {
		conds = append(conds, fmt.Sprintf("is_active = $%d", argsPosition))
		args = append(args, *f.Active)
		argsPosition++
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, limit, f.Offset)

	output := make([]user.User, 0, limit)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

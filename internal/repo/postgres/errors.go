package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// violatedConstraint returns the constraint name of a unique or foreign key
// violation, or "" for any other error.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && (pgErr.Code == codeUniqueViolation || pgErr.Code == codeForeignKeyViolation) {
		return pgErr.ConstraintName
	}
	return ""
}

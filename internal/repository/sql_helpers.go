package repository

import (
	"errors"

	recap_errors "recap-mail/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// mapError translates driver errors into the shared sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return recap_errors.ErrNotFound
	case isUniqueViolation(err):
		return recap_errors.ErrAlreadyExists
	default:
		return err
	}
}

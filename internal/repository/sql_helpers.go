package repository

import (
	"errors"

	flowboard_errors "flowboard/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver-level errors onto the package sentinels so
// callers never see gorm or postgres internals.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return flowboard_errors.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return flowboard_errors.ErrAlreadyExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return flowboard_errors.ErrAlreadyExists
	}
	return err
}

package database

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ahrie-ai/backend/internal/apperr"
)

// Postgres SQLSTATE classes the services care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// Classify maps driver and gorm errors onto apperr codes. Anything unrecognised becomes INTERNAL.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(err, apperr.CodeNotFound, message)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(err, apperr.CodeConflict, message)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, message)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(err, apperr.CodeConflict, message)
		case pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
			return apperr.Wrap(err, apperr.CodeInvalidArgument, message)
		}
	}
	return apperr.Wrap(err, apperr.CodeInternal, message)
}

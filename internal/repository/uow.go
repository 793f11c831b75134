package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	customError "github.com/ankunda/credit-engine/pkg/errors"
)

// Postgres SQLSTATE codes that mean the transaction lost a lock race and
// should be retried whole.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

type sqlxUnitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork wraps a sqlx database in the transactional unit of work
// used for every coupled ledger/meter mutation.
func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlxUnitOfWork{db: db}
}

func (u *sqlxUnitOfWork) Within(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return translateConflict(err)
	}

	if err := tx.Commit(); err != nil {
		return translateConflict(err)
	}
	return nil
}

func translateConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return customError.WrapConcurrencyConflict(err)
		}
	}
	return err
}

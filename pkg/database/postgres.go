package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/biodivhub/biodiv-api/pkg/config"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, letting
// repositories run inside or outside a caller-owned transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// WithTransaction runs fn inside a transaction scoped to the request: commit on
// nil, rollback on error or panic. The rollback on every non-commit exit path is
// the connection-release guarantee write handlers rely on.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return TranslateError(err)
	}

	if err = tx.Commit(); err != nil {
		_ = tx.Rollback()
		return TranslateError(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// revisionConflictCode is the SQLSTATE raised by the tr_revision_count trigger
// when the expected revision_count does not match the stored row.
const revisionConflictCode = pq.ErrorCode("40001")

// TranslateError maps driver-level failures onto typed domain errors. The
// revision trigger signal becomes ErrStaleRevision; everything else passes
// through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == revisionConflictCode {
		return appErrors.Wrap(err, appErrors.ErrStaleRevision.Code, appErrors.ErrStaleRevision.Status, appErrors.ErrStaleRevision.Message)
	}

	return err
}

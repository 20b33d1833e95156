package pgsql

import (
	"context"
	"errors"
	"net/http"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes the repositories react to.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewStorageError("failed to rollback transaction", err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapWriteError maps unique violations to ErrDuplicate and everything else to a storage error.
func wrapWriteError(err error, message string) error {
	if pgErrorCode(err) == pgUniqueViolation {
		return apperrors.NewAppError(http.StatusConflict, message+": already exists", apperrors.ErrDuplicate)
	}
	return apperrors.NewStorageError(message, err)
}

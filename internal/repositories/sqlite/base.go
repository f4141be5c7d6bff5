package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/repositories"
)

// baseRepository provides the query helpers shared by the SQLite repositories
type baseRepository struct {
	db     *sqlx.DB
	entity repositories.Entity
	logger *logrus.Logger
}

func newBaseRepository(db *sqlx.DB, entity repositories.Entity, logger *logrus.Logger) baseRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return baseRepository{db: db, entity: entity, logger: logger}
}

// logQuery logs a query with its execution time
func (r *baseRepository) logQuery(operation string, query string, args []any, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"entity":    r.entity,
		"query":     query,
		"args":      args,
		"duration":  duration,
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Query failed")
	} else {
		r.logger.WithFields(fields).Debug("Query executed")
	}
}

// get runs a single-row query into dest. sql.ErrNoRows is returned as is.
func (r *baseRepository) get(ctx context.Context, q sqlx.QueryerContext, dest any, operation, query string, args ...any) error {
	start := time.Now()
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	r.logQuery(operation, query, args, time.Since(start), err)
	return err
}

// selectAll runs a multi-row query into dest
func (r *baseRepository) selectAll(ctx context.Context, dest any, operation, query string, args ...any) error {
	start := time.Now()
	err := r.db.SelectContext(ctx, dest, query, args...)
	r.logQuery(operation, query, args, time.Since(start), err)
	if err != nil {
		return repositories.NewRepositoryError(operation, string(r.entity), "", err)
	}
	return nil
}

// exec runs a statement and returns the driver error unwrapped
func (r *baseRepository) exec(ctx context.Context, q sqlx.ExecerContext, operation, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := q.ExecContext(ctx, query, args...)
	r.logQuery(operation, query, args, time.Since(start), err)
	return result, err
}

// withTx runs fn in a transaction, committing when it returns nil. Errors
// from fn are returned unchanged.
func (r *baseRepository) withTx(ctx context.Context, operation string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return repositories.TransactionError("begin", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.WithError(rbErr).WithField("operation", operation).Error("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return repositories.TransactionError("commit", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func encodeList(list []int64) (string, error) {
	if list == nil {
		list = []int64{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode membership list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]int64, error) {
	list := []int64{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode membership list: %w", err)
	}
	return list, nil
}

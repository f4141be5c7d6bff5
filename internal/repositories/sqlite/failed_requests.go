package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// FailedRequestRepository implements repositories.FailedRequestRepository on SQLite
type FailedRequestRepository struct {
	baseRepository
}

// NewFailedRequestRepository creates a new SQLite failed request repository
func NewFailedRequestRepository(db *sqlx.DB, logger *logrus.Logger) *FailedRequestRepository {
	return &FailedRequestRepository{baseRepository: newBaseRepository(db, repositories.EntityFailedRequest, logger)}
}

// Create stores a failed request
func (r *FailedRequestRepository) Create(ctx context.Context, req *models.FailedRequest) error {
	query := `INSERT INTO failed_requests (request_id, status_code, description, request, received_at)
		VALUES (:request_id, :status_code, :description, :request, :received_at)`

	start := time.Now()
	_, err := r.db.NamedExecContext(ctx, query, req)
	r.logQuery("create", query, []any{req.RequestID}, time.Since(start), err)
	if isUniqueViolation(err) {
		return repositories.DuplicateError(string(r.entity), "request_id", req.RequestID)
	}
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), req.RequestID, err)
	}
	return nil
}

// GetByID retrieves a failed request
func (r *FailedRequestRepository) GetByID(ctx context.Context, requestID string) (*models.FailedRequest, error) {
	var req models.FailedRequest
	err := r.get(ctx, r.db, &req, "get",
		`SELECT request_id, status_code, description, request, received_at FROM failed_requests WHERE request_id = ?`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NotFoundError(string(r.entity), requestID)
	}
	if err != nil {
		return nil, repositories.NewRepositoryError("get", string(r.entity), requestID, err)
	}
	return &req, nil
}

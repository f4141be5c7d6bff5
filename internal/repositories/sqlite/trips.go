package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

type tripRow struct {
	TripID           int64  `db:"trip_id"`
	AdminID          int64  `db:"admin_id"`
	StartDate        int64  `db:"start_date"`
	EndDate          int64  `db:"end_date"`
	Location         string `db:"location"`
	Title            string `db:"title"`
	Description      string `db:"description"`
	AwaitingApproval string `db:"awaiting_approval"`
	Approved         string `db:"approved"`
}

func (row *tripRow) toModel() (*models.Trip, error) {
	awaiting, err := decodeList(row.AwaitingApproval)
	if err != nil {
		return nil, err
	}
	approved, err := decodeList(row.Approved)
	if err != nil {
		return nil, err
	}
	return &models.Trip{
		TripID:           row.TripID,
		AdminID:          row.AdminID,
		StartDate:        row.StartDate,
		EndDate:          row.EndDate,
		Location:         row.Location,
		Title:            row.Title,
		Description:      row.Description,
		AwaitingApproval: awaiting,
		Approved:         approved,
	}, nil
}

const tripColumns = "trip_id, admin_id, start_date, end_date, location, title, description, awaiting_approval, approved"

// TripRepository implements repositories.TripRepository on SQLite
type TripRepository struct {
	baseRepository
}

// NewTripRepository creates a new SQLite trip repository
func NewTripRepository(db *sqlx.DB, logger *logrus.Logger) *TripRepository {
	return &TripRepository{baseRepository: newBaseRepository(db, repositories.EntityTrip, logger)}
}

// Create stores a new trip
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	id := strconv.FormatInt(trip.TripID, 10)

	awaiting, err := encodeList(trip.AwaitingApproval)
	if err != nil {
		return err
	}
	approved, err := encodeList(trip.Approved)
	if err != nil {
		return err
	}

	query := `INSERT INTO trips (` + tripColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.exec(ctx, r.db, "create", query,
		trip.TripID, trip.AdminID, trip.StartDate, trip.EndDate,
		trip.Location, trip.Title, trip.Description, awaiting, approved)
	if isUniqueViolation(err) {
		return repositories.DuplicateError(string(r.entity), "trip_id", id)
	}
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), id, err)
	}
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	key := strconv.FormatInt(id, 10)

	var row tripRow
	err := r.get(ctx, r.db, &row, "get", `SELECT `+tripColumns+` FROM trips WHERE trip_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NotFoundError(string(r.entity), key)
	}
	if err != nil {
		return nil, repositories.NewRepositoryError("get", string(r.entity), key, err)
	}
	return row.toModel()
}

// Delete removes a trip
func (r *TripRepository) Delete(ctx context.Context, id int64) error {
	key := strconv.FormatInt(id, 10)

	result, err := r.exec(ctx, r.db, "delete", `DELETE FROM trips WHERE trip_id = ?`, id)
	if err != nil {
		return repositories.NewRepositoryError("delete", string(r.entity), key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("delete", string(r.entity), key, err)
	}
	if rowsAffected == 0 {
		return repositories.NotFoundError(string(r.entity), key)
	}
	return nil
}

// Exists reports whether the trip ID is taken
func (r *TripRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.get(ctx, r.db, &exists, "exists", `SELECT EXISTS(SELECT 1 FROM trips WHERE trip_id = ?)`, id)
	if err != nil {
		return false, repositories.NewRepositoryError("exists", string(r.entity), strconv.FormatInt(id, 10), err)
	}
	return exists, nil
}

// ListByLocation returns the trips to a location
func (r *TripRepository) ListByLocation(ctx context.Context, location string) ([]*models.Trip, error) {
	return r.list(ctx, "list_by_location", `SELECT `+tripColumns+` FROM trips WHERE location = ? ORDER BY trip_id`, location)
}

// ListByAdmin returns the trips created by a user
func (r *TripRepository) ListByAdmin(ctx context.Context, adminID int64) ([]*models.Trip, error) {
	return r.list(ctx, "list_by_admin", `SELECT `+tripColumns+` FROM trips WHERE admin_id = ? ORDER BY trip_id`, adminID)
}

// List returns every trip
func (r *TripRepository) List(ctx context.Context) ([]*models.Trip, error) {
	return r.list(ctx, "list", `SELECT `+tripColumns+` FROM trips ORDER BY trip_id`)
}

func (r *TripRepository) list(ctx context.Context, operation, query string, args ...any) ([]*models.Trip, error) {
	var rows []tripRow
	if err := r.selectAll(ctx, &rows, operation, query, args...); err != nil {
		return nil, err
	}

	trips := make([]*models.Trip, 0, len(rows))
	for i := range rows {
		trip, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

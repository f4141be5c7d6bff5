package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

type userRow struct {
	UserID           int64  `db:"user_id"`
	Email            string `db:"email"`
	Password         string `db:"password"`
	AwaitingApproval string `db:"awaiting_approval"`
	Approved         string `db:"approved"`
}

func (row *userRow) toModel() (*models.User, error) {
	awaiting, err := decodeList(row.AwaitingApproval)
	if err != nil {
		return nil, err
	}
	approved, err := decodeList(row.Approved)
	if err != nil {
		return nil, err
	}
	return &models.User{
		UserID:           row.UserID,
		Email:            row.Email,
		PasswordHash:     row.Password,
		AwaitingApproval: awaiting,
		Approved:         approved,
	}, nil
}

const userColumns = "user_id, email, password, awaiting_approval, approved"

// UserRepository implements repositories.UserRepository on SQLite
type UserRepository struct {
	baseRepository
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(db *sqlx.DB, logger *logrus.Logger) *UserRepository {
	return &UserRepository{baseRepository: newBaseRepository(db, repositories.EntityUser, logger)}
}

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	id := strconv.FormatInt(user.UserID, 10)
	if user.UserID == models.CacheRecordID {
		return repositories.DuplicateError(string(r.entity), "user_id", id)
	}

	awaiting, err := encodeList(user.AwaitingApproval)
	if err != nil {
		return err
	}
	approved, err := encodeList(user.Approved)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err = r.exec(ctx, r.db, "create", query, user.UserID, user.Email, user.PasswordHash, awaiting, approved)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "users.email") {
			return repositories.DuplicateError(string(r.entity), "email", user.Email)
		}
		return repositories.DuplicateError(string(r.entity), "user_id", id)
	}
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), id, err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "get", `SELECT `+userColumns+` FROM users WHERE user_id = ?`, strconv.FormatInt(id, 10), id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "get_by_email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email, email)
}

func (r *UserRepository) getOne(ctx context.Context, operation, query, key string, arg any) (*models.User, error) {
	var row userRow
	err := r.get(ctx, r.db, &row, operation, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NotFoundError(string(r.entity), key)
	}
	if err != nil {
		return nil, repositories.NewRepositoryError(operation, string(r.entity), key, err)
	}
	return row.toModel()
}

// Exists reports whether the user ID is taken. The cache record ID is
// always reserved.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if id == models.CacheRecordID {
		return true, nil
	}

	var exists bool
	err := r.get(ctx, r.db, &exists, "exists", `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)`, id)
	if err != nil {
		return false, repositories.NewRepositoryError("exists", string(r.entity), strconv.FormatInt(id, 10), err)
	}
	return exists, nil
}

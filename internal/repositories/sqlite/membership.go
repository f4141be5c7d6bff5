package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// MembershipStore implements repositories.MembershipStore. Lists are JSON
// arrays in the awaiting_approval and approved columns, rewritten inside a
// transaction on every change.
type MembershipStore struct {
	baseRepository
}

// NewMembershipStore creates a new SQLite membership store
func NewMembershipStore(db *sqlx.DB, logger *logrus.Logger) *MembershipStore {
	return &MembershipStore{baseRepository: newBaseRepository(db, repositories.EntityUser, logger)}
}

type listLocation struct {
	table  string
	key    string
	column string
	other  string
}

func locate(ref repositories.ListRef) (listLocation, error) {
	var loc listLocation
	switch ref.Entity {
	case repositories.EntityUser:
		loc.table, loc.key = "users", "user_id"
	case repositories.EntityTrip:
		loc.table, loc.key = "trips", "trip_id"
	default:
		return loc, repositories.NewRepositoryError("list", string(ref.Entity), strconv.FormatInt(ref.ID, 10),
			fmt.Errorf("%w: no membership lists on %s", repositories.ErrUnsupported, ref.Entity))
	}

	switch ref.List {
	case models.ListAwaitingApproval:
		loc.column, loc.other = string(models.ListAwaitingApproval), string(models.ListApproved)
	case models.ListApproved:
		loc.column, loc.other = string(models.ListApproved), string(models.ListAwaitingApproval)
	default:
		return loc, repositories.NewRepositoryError("list", string(ref.Entity), strconv.FormatInt(ref.ID, 10),
			fmt.Errorf("%w: unknown list %q", repositories.ErrUnsupported, ref.List))
	}
	return loc, nil
}

type listPair struct {
	List  string `db:"list"`
	Other string `db:"other"`
}

// readPair loads the referenced list and its sibling
func (m *MembershipStore) readPair(ctx context.Context, q sqlx.QueryerContext, ref repositories.ListRef, loc listLocation) ([]int64, []int64, error) {
	id := strconv.FormatInt(ref.ID, 10)
	query := fmt.Sprintf(`SELECT %s AS list, %s AS other FROM %s WHERE %s = ?`, loc.column, loc.other, loc.table, loc.key)

	var pair listPair
	err := m.get(ctx, q, &pair, "read_list", query, ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, repositories.NotFoundError(string(ref.Entity), id)
	}
	if err != nil {
		return nil, nil, repositories.NewRepositoryError("read_list", string(ref.Entity), id, err)
	}

	list, err := decodeList(pair.List)
	if err != nil {
		return nil, nil, err
	}
	other, err := decodeList(pair.Other)
	if err != nil {
		return nil, nil, err
	}
	return list, other, nil
}

func (m *MembershipStore) writeList(ctx context.Context, tx *sqlx.Tx, ref repositories.ListRef, loc listLocation, list []int64) error {
	encoded, err := encodeList(list)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, loc.table, loc.column, loc.key)
	if _, err := m.exec(ctx, tx, "write_list", query, encoded, ref.ID); err != nil {
		return repositories.NewRepositoryError("write_list", string(ref.Entity), strconv.FormatInt(ref.ID, 10), err)
	}
	return nil
}

// ReadList returns the current contents of a list
func (m *MembershipStore) ReadList(ctx context.Context, ref repositories.ListRef) ([]int64, error) {
	loc, err := locate(ref)
	if err != nil {
		return nil, err
	}
	list, _, err := m.readPair(ctx, m.db, ref, loc)
	return list, err
}

// RemoveFromList removes the first occurrence of value
func (m *MembershipStore) RemoveFromList(ctx context.Context, ref repositories.ListRef, value int64) error {
	loc, err := locate(ref)
	if err != nil {
		return err
	}

	return m.withTx(ctx, "remove", func(tx *sqlx.Tx) error {
		list, _, err := m.readPair(ctx, tx, ref, loc)
		if err != nil {
			return err
		}
		i := models.IndexOf(list, value)
		if i < 0 {
			return repositories.ValueAbsentError(string(ref.Entity), strconv.FormatInt(ref.ID, 10), string(ref.List), value)
		}
		list = append(list[:i:i], list[i+1:]...)
		return m.writeList(ctx, tx, ref, loc, list)
	})
}

// AppendAll applies every append or none of them
func (m *MembershipStore) AppendAll(ctx context.Context, appends ...repositories.ListAppend) error {
	locs := make([]listLocation, len(appends))
	for i, a := range appends {
		loc, err := locate(a.Ref)
		if err != nil {
			return err
		}
		locs[i] = loc
	}

	return m.withTx(ctx, "append", func(tx *sqlx.Tx) error {
		for i, a := range appends {
			list, other, err := m.readPair(ctx, tx, a.Ref, locs[i])
			if repositories.IsNotFound(err) {
				return repositories.ConditionError("append", string(a.Ref.Entity), strconv.FormatInt(a.Ref.ID, 10))
			}
			if err != nil {
				return err
			}
			if models.IndexOf(list, a.Value) >= 0 || models.IndexOf(other, a.Value) >= 0 {
				return repositories.ConditionError("append", string(a.Ref.Entity), strconv.FormatInt(a.Ref.ID, 10))
			}
			if err := m.writeList(ctx, tx, a.Ref, locs[i], append(list, a.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// IDCacheRepository implements repositories.IDCacheRepository on the id_cache table.
// Insertion order is kept by the autoincrement position column.
type IDCacheRepository struct {
	baseRepository
}

// NewIDCacheRepository creates a new SQLite ID cache repository
func NewIDCacheRepository(db *sqlx.DB, logger *logrus.Logger) *IDCacheRepository {
	return &IDCacheRepository{baseRepository: newBaseRepository(db, repositories.EntityIDCache, logger)}
}

// CachedIDs returns the cached IDs in insertion order
func (r *IDCacheRepository) CachedIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := r.selectAll(ctx, &ids, "list", `SELECT user_id FROM id_cache ORDER BY position`); err != nil {
		return nil, err
	}
	return ids, nil
}

// AppendCachedID adds id to the end of the cache
func (r *IDCacheRepository) AppendCachedID(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, r.db, "append", `INSERT INTO id_cache (user_id) VALUES (?)`, id)
	if isUniqueViolation(err) {
		return repositories.ConditionError("append", string(r.entity), strconv.FormatInt(models.CacheRecordID, 10))
	}
	if err != nil {
		return repositories.NewRepositoryError("append", string(r.entity), strconv.FormatInt(id, 10), err)
	}
	return nil
}

// PopCachedID removes and returns the oldest cached ID
func (r *IDCacheRepository) PopCachedID(ctx context.Context) (int64, error) {
	var id int64
	err := r.withTx(ctx, "pop", func(tx *sqlx.Tx) error {
		var row struct {
			Position int64 `db:"position"`
			UserID   int64 `db:"user_id"`
		}
		err := r.get(ctx, tx, &row, "pop", `SELECT position, user_id FROM id_cache ORDER BY position LIMIT 1`)
		if errors.Is(err, sql.ErrNoRows) {
			return repositories.NewRepositoryError("pop", string(r.entity), strconv.FormatInt(models.CacheRecordID, 10), repositories.ErrCacheEmpty)
		}
		if err != nil {
			return repositories.NewRepositoryError("pop", string(r.entity), "", err)
		}
		if _, err := r.exec(ctx, tx, "pop", `DELETE FROM id_cache WHERE position = ?`, row.Position); err != nil {
			return repositories.NewRepositoryError("pop", string(r.entity), strconv.FormatInt(row.UserID, 10), err)
		}
		id = row.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

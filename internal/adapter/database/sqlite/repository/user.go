package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"usersapi/internal/adapter/database/sqlbuilder"
	"usersapi/internal/adapter/database/sqlite"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
	tel "usersapi/internal/core/telemetry"
)

const entity = "user"

type UserRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
}

func NewUserRepository(db *sqlite.DB, telemetry port.Telemetry) port.UserRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &UserRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (ur *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	start := time.Now()
	ctx, span := ur.telemetry.StartRepositorySpan(ctx, "create", entity, nil)
	defer span.End()

	now := time.Now().UTC()
	user.ID = 0
	user.UUID = uuid.New()
	user.BirthDate = domain.DateOnly(user.BirthDate)
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := ur.db.BeginTx(ctx, nil)
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, "create", entity, time.Since(start), err)
		return domain.User{}, err
	}
	defer tx.Rollback()

	stmt, args, err := sqlbuilder.Insert(*ur.db.QueryBuilder, user).ToSql()
	if err != nil {
		return domain.User{}, err
	}

	ur.telemetry.RecordRepositoryQuery(ctx, "create", entity, stmt, args)

	if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
		err = translateError(err)
		slog.ErrorContext(ctx, "Error creating user", "error", err)
		ur.telemetry.RecordRepositoryOperation(ctx, "create", entity, time.Since(start), err)
		return domain.User{}, err
	}

	saved, err := ur.getByUUID(ctx, tx, user.UUID.String(), false)
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, "create", entity, time.Since(start), err)
		return domain.User{}, err
	}

	err = tx.Commit()
	ur.telemetry.RecordRepositoryOperation(ctx, "create", entity, time.Since(start), err)

	return saved, err
}

func (ur *UserRepository) Find(ctx context.Context, filter domain.Filter, skip, limit int, sortField domain.Field, sortDirection domain.SortDirection) ([]domain.User, error) {
	start := time.Now()
	ctx, span := ur.telemetry.StartRepositorySpan(ctx, "find", entity, map[string]interface{}{
		"skip":  skip,
		"limit": limit,
	})
	defer span.End()

	query, err := sqlbuilder.Select(*ur.db.QueryBuilder, filter, skip, limit, sortField, sortDirection)
	if err != nil {
		return nil, err
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	ur.telemetry.RecordRepositoryQuery(ctx, "find", entity, stmt, args)

	rows, err := ur.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, "find", entity, time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)

	for rows.Next() {
		u, err := sqlbuilder.ScanUser(rows)
		if err != nil {
			ur.telemetry.RecordRepositoryOperation(ctx, "find", entity, time.Since(start), err)
			return nil, err
		}
		users = append(users, u)
	}

	err = rows.Err()
	ur.telemetry.RecordRepositoryOperation(ctx, "find", entity, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return users, nil
}

func (ur *UserRepository) GetByUUID(ctx context.Context, uid string) (domain.User, error) {
	return ur.getByUUID(ctx, ur.db, uid, true)
}

func (ur *UserRepository) UpdateIfNotDeleted(ctx context.Context, uid string, patch domain.UserPatch) (domain.User, error) {
	return ur.mutateLive(ctx, "update", uid, sqlbuilder.PatchSet(patch, time.Now().UTC()))
}

func (ur *UserRepository) SoftDeleteIfNotDeleted(ctx context.Context, uid string) (domain.User, error) {
	return ur.mutateLive(ctx, "soft_delete", uid, map[string]any{
		"is_deleted": true,
		"updated_at": time.Now().UTC(),
	})
}

func (ur *UserRepository) Ping(ctx context.Context) error {
	return ur.db.PingContext(ctx)
}

// mutateLive updates a live row and reads it back in the same transaction.
func (ur *UserRepository) mutateLive(ctx context.Context, operation string, uid string, set map[string]any) (domain.User, error) {
	start := time.Now()
	ctx, span := ur.telemetry.StartRepositorySpan(ctx, operation, entity, map[string]interface{}{"user_uuid": uid})
	defer span.End()

	tx, err := ur.db.BeginTx(ctx, nil)
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)
		return domain.User{}, err
	}
	defer tx.Rollback()

	stmt, args, err := sqlbuilder.UpdateLive(*ur.db.QueryBuilder, uid, set).ToSql()
	if err != nil {
		return domain.User{}, err
	}

	ur.telemetry.RecordRepositoryQuery(ctx, operation, entity, stmt, args)

	result, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		err = translateError(err)
		ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)
		return domain.User{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)
		return domain.User{}, err
	}

	if affected == 0 {
		ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), domain.ErrNotFound)
		return domain.User{}, domain.ErrNotFound
	}

	saved, err := ur.getByUUID(ctx, tx, uid, false)
	if err != nil {
		ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)
		return domain.User{}, err
	}

	err = tx.Commit()
	ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)

	return saved, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (ur *UserRepository) getByUUID(ctx context.Context, q queryer, uid string, liveOnly bool) (domain.User, error) {
	where := sq.Eq{"uuid": uid}
	if liveOnly {
		where["is_deleted"] = false
	}

	stmt, args, err := ur.db.QueryBuilder.Select(sqlbuilder.Columns...).
		From(sqlbuilder.Table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.User{}, err
	}

	u, err := sqlbuilder.ScanUser(q.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}

	if err != nil {
		slog.ErrorContext(ctx, "Error getting user by uuid", "error", err)
		return domain.User{}, err
	}

	return u, nil
}

func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

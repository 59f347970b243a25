package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	database "usersapi/internal/adapter/database/postgres"
	"usersapi/internal/adapter/database/sqlbuilder"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
	tel "usersapi/internal/core/telemetry"
)

const (
	entity = "user"

	uniqueViolation = "23505"
)

var returning = "RETURNING " + strings.Join(sqlbuilder.Columns, ", ")

type UserRepository struct {
	db        *database.DB
	telemetry port.Telemetry
}

func NewUserRepository(db *database.DB, telemetry port.Telemetry) port.UserRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &UserRepository{db: db, telemetry: telemetry}
}

func (ur *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	start := time.Now()
	ctx, span := ur.telemetry.StartRepositorySpan(ctx, "create", entity, nil)
	defer span.End()

	now := time.Now().UTC()
	user.UUID = uuid.New()
	user.BirthDate = domain.DateOnly(user.BirthDate)
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now

	stmt, args, err := sqlbuilder.Insert(*ur.db.QueryBuilder, user).Suffix(returning).ToSql()
	if err != nil {
		return domain.User{}, err
	}

	ur.telemetry.RecordRepositoryQuery(ctx, "create", entity, stmt, args)

	saved, err := sqlbuilder.ScanUser(ur.db.QueryRow(ctx, stmt, args...))
	err = translateError(err)
	ur.telemetry.RecordRepositoryOperation(ctx, "create", entity, time.Since(start), err)

	if err != nil {
		slog.ErrorContext(ctx, "Error creating user", "error", err)
		return domain.User{}, err
	}

	return saved, nil
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

	rows, err := ur.db.Query(ctx, stmt, args...)
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
	if _, err := uuid.Parse(uid); err != nil {
		return domain.User{}, domain.ErrNotFound
	}

	stmt, args, err := ur.db.QueryBuilder.Select(sqlbuilder.Columns...).
		From(sqlbuilder.Table).
		Where(sq.Eq{"uuid": uid, "is_deleted": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.User{}, err
	}

	u, err := sqlbuilder.ScanUser(ur.db.QueryRow(ctx, stmt, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}

	return u, err
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
	return ur.db.Pool.Ping(ctx)
}

// mutateLive guards, writes and reads back in a single UPDATE ... RETURNING.
func (ur *UserRepository) mutateLive(ctx context.Context, operation string, uid string, set map[string]any) (domain.User, error) {
	start := time.Now()
	ctx, span := ur.telemetry.StartRepositorySpan(ctx, operation, entity, map[string]interface{}{"user_uuid": uid})
	defer span.End()

	if _, err := uuid.Parse(uid); err != nil {
		return domain.User{}, domain.ErrNotFound
	}

	stmt, args, err := sqlbuilder.UpdateLive(*ur.db.QueryBuilder, uid, set).Suffix(returning).ToSql()
	if err != nil {
		return domain.User{}, err
	}

	ur.telemetry.RecordRepositoryQuery(ctx, operation, entity, stmt, args)

	saved, err := sqlbuilder.ScanUser(ur.db.QueryRow(ctx, stmt, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
	}
	err = translateError(err)
	ur.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), err)

	if err != nil {
		return domain.User{}, err
	}

	return saved, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// Package sqlbuilder holds the users table mapping shared by the SQL stores.
package sqlbuilder

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"usersapi/internal/core/domain"
)

const Table = "users"

var Columns = []string{
	"id",
	"uuid",
	"first_name",
	"last_name",
	"email",
	"phone",
	"status",
	"marketing_source",
	"birth_date",
	"is_deleted",
	"created_at",
	"updated_at",
}

var fieldColumns = map[domain.Field]string{
	domain.FieldFirstName:       "first_name",
	domain.FieldLastName:        "last_name",
	domain.FieldEmail:           "email",
	domain.FieldPhone:           "phone",
	domain.FieldStatus:          "status",
	domain.FieldMarketingSource: "marketing_source",
	domain.FieldBirthDate:       "birth_date",
	domain.FieldCreatedAt:       "created_at",
	domain.FieldUpdatedAt:       "updated_at",
	domain.FieldIsDeleted:       "is_deleted",
}

// Column maps a canonical field to its column name.
func Column(f domain.Field) (string, error) {
	col, ok := fieldColumns[f]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, f)
	}
	return col, nil
}

// Where turns an equality filter into a squirrel predicate.
func Where(filter domain.Filter) (sq.Eq, error) {
	eq := sq.Eq{}

	for field, value := range filter {
		col, err := Column(field)
		if err != nil {
			return nil, err
		}
		eq[col] = value
	}

	return eq, nil
}

// Select builds a filtered page ordered by sortField, ties broken by id.
func Select(b sq.StatementBuilderType, filter domain.Filter, skip, limit int, sortField domain.Field, dir domain.SortDirection) (sq.SelectBuilder, error) {
	where, err := Where(filter)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	sortCol, err := Column(sortField)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	order := "ASC"
	if dir == domain.SortDesc {
		order = "DESC"
	}

	query := b.Select(Columns...).
		From(Table).
		Where(where).
		OrderBy(sortCol+" "+order, "id ASC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	if skip > 0 {
		query = query.Offset(uint64(skip))
	}

	return query, nil
}

func Insert(b sq.StatementBuilderType, u domain.User) sq.InsertBuilder {
	return b.Insert(Table).
		Columns(Columns[1:]...).
		Values(
			u.UUID.String(),
			u.FirstName,
			u.LastName,
			u.Email,
			u.Phone,
			u.Status,
			u.MarketingSource,
			u.BirthDate,
			u.IsDeleted,
			u.CreatedAt,
			u.UpdatedAt,
		)
}

// UpdateLive applies set to the live row with the given uuid. A deleted row is
// never matched, so the guard and the write happen in one statement.
func UpdateLive(b sq.StatementBuilderType, uid string, set map[string]any) sq.UpdateBuilder {
	return b.Update(Table).
		SetMap(set).
		Where(sq.Eq{"uuid": uid, "is_deleted": false})
}

// PatchSet returns the column assignments of a patch. updated_at is always bumped.
func PatchSet(p domain.UserPatch, now time.Time) map[string]any {
	set := map[string]any{"updated_at": now}

	for field, value := range p.Values() {
		if t, ok := value.(time.Time); ok {
			value = domain.DateOnly(t)
		}
		set[fieldColumns[field]] = value
	}

	return set
}

// Row is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type Row interface {
	Scan(dest ...any) error
}

// ScanUser reads one row selected with Columns.
func ScanUser(row Row) (domain.User, error) {
	var (
		u   domain.User
		uid string
	)

	err := row.Scan(
		&u.ID,
		&uid,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Phone,
		&u.Status,
		&u.MarketingSource,
		&u.BirthDate,
		&u.IsDeleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	parsed, err := uuid.Parse(strings.TrimSpace(uid))
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user uuid %q: %w", uid, err)
	}

	u.UUID = parsed
	u.BirthDate = domain.DateOnly(u.BirthDate.UTC())
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return u, nil
}

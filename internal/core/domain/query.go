package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field is the canonical, store-independent name of a user attribute.
type Field string

const (
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldStatus          Field = "status"
	FieldMarketingSource Field = "marketingSource"
	FieldBirthDate       Field = "birthDate"
	FieldCreatedAt       Field = "createdAt"
	FieldUpdatedAt       Field = "updatedAt"
	FieldIsDeleted       Field = "isDeleted"
)

// RequiredFields are the seven attributes every persisted user carries.
var RequiredFields = []Field{
	FieldBirthDate,
	FieldEmail,
	FieldFirstName,
	FieldLastName,
	FieldMarketingSource,
	FieldPhone,
	FieldStatus,
}

var sortableFields = map[Field]bool{
	FieldFirstName:       true,
	FieldLastName:        true,
	FieldEmail:           true,
	FieldPhone:           true,
	FieldStatus:          true,
	FieldMarketingSource: true,
	FieldBirthDate:       true,
	FieldCreatedAt:       true,
	FieldUpdatedAt:       true,
}

func IsSortable(f Field) bool {
	return sortableFields[f]
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts asc/desc, ascending/descending and 1/-1.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "1":
		return SortAsc, nil
	case "desc", "descending", "-1":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: sort must be asc or desc, got %q", ErrInvalidQuery, s)
	}
}

const (
	DefaultPage   = 1
	DefaultLimit  = 10
	DefaultSortBy = FieldCreatedAt
	DefaultSort   = SortAsc
)

// QuerySpec is a listing request: optional exact-match predicates on the
// required fields plus pagination and sort.
type QuerySpec struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Status          *string
	MarketingSource *string
	BirthDate       *time.Time

	Page   int
	Limit  int
	SortBy Field
	Sort   SortDirection
}

func NewQuerySpec() QuerySpec {
	return QuerySpec{
		Page:   DefaultPage,
		Limit:  DefaultLimit,
		SortBy: DefaultSortBy,
		Sort:   DefaultSort,
	}
}

func (q QuerySpec) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}

	if q.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidQuery, q.Limit)
	}

	if !IsSortable(q.SortBy) {
		return fmt.Errorf("%w: unknown sortBy field %q", ErrInvalidQuery, q.SortBy)
	}

	if q.Sort != SortAsc && q.Sort != SortDesc {
		return fmt.Errorf("%w: sort must be asc or desc, got %q", ErrInvalidQuery, q.Sort)
	}

	return nil
}

// Filter is an equality-predicate expression over canonical fields.
type Filter map[Field]any

// Page holds the pagination and sort half of a QuerySpec.
type Page struct {
	Number int
	Limit  int
	SortBy Field
	Sort   SortDirection
}

// Skip is the zero-based offset of the first record on the page.
func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}

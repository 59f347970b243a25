package service

import (
	"context"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
)

// BuildFilter splits a listing request into the store filter and the page
// parameters. Soft-deleted users are always excluded.
func BuildFilter(q domain.QuerySpec) (domain.Filter, domain.Page) {
	filter := domain.Filter{}

	if q.FirstName != nil {
		filter[domain.FieldFirstName] = *q.FirstName
	}

	if q.LastName != nil {
		filter[domain.FieldLastName] = *q.LastName
	}

	if q.Email != nil {
		filter[domain.FieldEmail] = *q.Email
	}

	if q.Phone != nil {
		filter[domain.FieldPhone] = *q.Phone
	}

	if q.Status != nil {
		filter[domain.FieldStatus] = *q.Status
	}

	if q.MarketingSource != nil {
		filter[domain.FieldMarketingSource] = *q.MarketingSource
	}

	if q.BirthDate != nil {
		filter[domain.FieldBirthDate] = domain.DateOnly(*q.BirthDate)
	}

	page := domain.Page{
		Number: q.Page,
		Limit:  q.Limit,
		SortBy: q.SortBy,
		Sort:   q.Sort,
	}

	return excludeDeleted(filter), page
}

func excludeDeleted(filter domain.Filter) domain.Filter {
	filter[domain.FieldIsDeleted] = false
	return filter
}

// QueryEngine runs a listing request against the store.
type QueryEngine struct {
	repo port.UserRepository
}

func NewQueryEngine(repo port.UserRepository) *QueryEngine {
	return &QueryEngine{repo: repo}
}

// Find validates q before touching the store and returns store errors unchanged.
func (e *QueryEngine) Find(ctx context.Context, q domain.QuerySpec) ([]domain.User, domain.Page, error) {
	if err := q.Validate(); err != nil {
		return nil, domain.Page{}, err
	}

	filter, page := BuildFilter(q)

	users, err := e.repo.Find(ctx, filter, page.Skip(), page.Limit, page.SortBy, page.Sort)
	if err != nil {
		return nil, page, err
	}

	return users, page, nil
}

package request

import (
	"fmt"
	"strconv"
	"strings"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/validation"
)

type CreateUserRequest struct {
	FirstName       string `json:"firstName,omitempty" validate:"required,max=255"`
	LastName        string `json:"lastName,omitempty" validate:"required,max=255"`
	Email           string `json:"email,omitempty" validate:"required,email,max=255"`
	Phone           string `json:"phone,omitempty" validate:"required,us_phone"`
	Status          string `json:"status,omitempty" validate:"required,max=100"`
	MarketingSource string `json:"marketingSource,omitempty" validate:"required,max=100"`
	BirthDate       string `json:"birthDate,omitempty" validate:"required,iso_date"`
}

// ToUser maps the request onto a domain user, parsing the birth date.
func (r CreateUserRequest) ToUser() (domain.User, error) {
	birthDate, err := validation.ParseDate(r.BirthDate)
	if err != nil {
		return domain.User{}, domain.NewValidationError(string(domain.FieldBirthDate), "must be a valid date")
	}

	return domain.User{
		FirstName:       strings.TrimSpace(r.FirstName),
		LastName:        strings.TrimSpace(r.LastName),
		Email:           strings.TrimSpace(r.Email),
		Phone:           strings.TrimSpace(r.Phone),
		Status:          strings.TrimSpace(r.Status),
		MarketingSource: strings.TrimSpace(r.MarketingSource),
		BirthDate:       birthDate,
	}, nil
}

// UpdateUserRequest fields are optional; a present field must be well formed.
type UpdateUserRequest struct {
	FirstName       *string `json:"firstName,omitempty" validate:"omitnil,required,max=255"`
	LastName        *string `json:"lastName,omitempty" validate:"omitnil,required,max=255"`
	Email           *string `json:"email,omitempty" validate:"omitnil,required,email,max=255"`
	Phone           *string `json:"phone,omitempty" validate:"omitnil,required,us_phone"`
	Status          *string `json:"status,omitempty" validate:"omitnil,required,max=100"`
	MarketingSource *string `json:"marketingSource,omitempty" validate:"omitnil,required,max=100"`
	BirthDate       *string `json:"birthDate,omitempty" validate:"omitnil,required,iso_date"`
}

func (r UpdateUserRequest) ToPatch() (domain.UserPatch, error) {
	patch := domain.UserPatch{
		FirstName:       trimmed(r.FirstName),
		LastName:        trimmed(r.LastName),
		Email:           trimmed(r.Email),
		Phone:           trimmed(r.Phone),
		Status:          trimmed(r.Status),
		MarketingSource: trimmed(r.MarketingSource),
	}

	if r.BirthDate != nil {
		birthDate, err := validation.ParseDate(*r.BirthDate)
		if err != nil {
			return domain.UserPatch{}, domain.NewValidationError(string(domain.FieldBirthDate), "must be a valid date")
		}
		patch.BirthDate = &birthDate
	}

	return patch, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.TrimSpace(*s)
	return &v
}

// ListUsersQuery binds the listing query string. Pagination values are kept
// as strings so malformed numbers surface as invalid query errors.
type ListUsersQuery struct {
	FirstName       *string `form:"firstName"`
	LastName        *string `form:"lastName"`
	Email           *string `form:"email"`
	Phone           *string `form:"phone"`
	Status          *string `form:"status"`
	MarketingSource *string `form:"marketingSource"`
	BirthDate       *string `form:"birthDate"`

	Page   *string `form:"page"`
	Limit  *string `form:"limit"`
	SortBy *string `form:"sortBy"`
	Sort   *string `form:"sort"`
}

// ToQuerySpec applies defaults for absent parameters and rejects malformed ones.
func (q ListUsersQuery) ToQuerySpec(defaultLimit int) (domain.QuerySpec, error) {
	qs := domain.NewQuerySpec()
	if defaultLimit > 0 {
		qs.Limit = defaultLimit
	}

	qs.FirstName = q.FirstName
	qs.LastName = q.LastName
	qs.Email = q.Email
	qs.Phone = q.Phone
	qs.Status = q.Status
	qs.MarketingSource = q.MarketingSource

	if q.BirthDate != nil {
		birthDate, err := validation.ParseDate(*q.BirthDate)
		if err != nil {
			return domain.QuerySpec{}, fmt.Errorf("%w: birthDate %q is not a date", domain.ErrInvalidQuery, *q.BirthDate)
		}
		qs.BirthDate = &birthDate
	}

	if q.Page != nil {
		page, err := strconv.Atoi(strings.TrimSpace(*q.Page))
		if err != nil {
			return domain.QuerySpec{}, fmt.Errorf("%w: page %q is not a number", domain.ErrInvalidQuery, *q.Page)
		}
		qs.Page = page
	}

	if q.Limit != nil {
		limit, err := strconv.Atoi(strings.TrimSpace(*q.Limit))
		if err != nil {
			return domain.QuerySpec{}, fmt.Errorf("%w: limit %q is not a number", domain.ErrInvalidQuery, *q.Limit)
		}
		qs.Limit = limit
	}

	if q.SortBy != nil {
		qs.SortBy = domain.Field(strings.TrimSpace(*q.SortBy))
	}

	if q.Sort != nil {
		sort, err := domain.ParseSortDirection(*q.Sort)
		if err != nil {
			return domain.QuerySpec{}, err
		}
		qs.Sort = sort
	}

	return qs, qs.Validate()
}

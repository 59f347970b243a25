package response

import (
	"time"

	"usersapi/internal/core/domain"
)

const dateLayout = "2006-01-02"

type UserResponse struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Status          string    `json:"status"`
	MarketingSource string    `json:"marketingSource"`
	BirthDate       string    `json:"birthDate"`
	IsDeleted       bool      `json:"isDeleted"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:              u.UUID.String(),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Phone:           u.Phone,
		Status:          u.Status,
		MarketingSource: u.MarketingSource,
		BirthDate:       u.BirthDate.UTC().Format(dateLayout),
		IsDeleted:       u.IsDeleted,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// PageResponse is one page of a listing together with the parameters that produced it.
type PageResponse struct {
	Data   []UserResponse `json:"data"`
	Limit  int            `json:"limit"`
	Page   int            `json:"page"`
	Sort   string         `json:"sort"`
	SortBy string         `json:"sortBy"`
}

func NewPageResponse(users []domain.User, page domain.Page) *PageResponse {
	data := make([]UserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, NewUserResponse(u))
	}

	return &PageResponse{
		Data:   data,
		Limit:  page.Limit,
		Page:   page.Number,
		Sort:   string(page.Sort),
		SortBy: string(page.SortBy),
	}
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors"`
	Details any               `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

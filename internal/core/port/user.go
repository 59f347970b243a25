package port

import (
	"context"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/model/response"
)

// UserRepository is the persistence boundary. Implementations assign the
// identifier and audit timestamps on Create and must check the not-deleted
// guard atomically with every mutation.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Find(ctx context.Context, filter domain.Filter, skip, limit int, sortField domain.Field, sortDirection domain.SortDirection) ([]domain.User, error)
	GetByUUID(ctx context.Context, uuid string) (domain.User, error)
	UpdateIfNotDeleted(ctx context.Context, uuid string, patch domain.UserPatch) (domain.User, error)
	SoftDeleteIfNotDeleted(ctx context.Context, uuid string) (domain.User, error)
	Ping(ctx context.Context) error
}

type UserService interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	List(ctx context.Context, query domain.QuerySpec) (*response.PageResponse, error)
	Update(ctx context.Context, uuid string, patch domain.UserPatch) (domain.User, error)
	Delete(ctx context.Context, uuid string) (domain.User, error)
	Import(ctx context.Context, records []domain.RawUserRecord) domain.ImportOutcome
	Health(ctx context.Context) error
}

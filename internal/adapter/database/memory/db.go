// Package memory is a process-local user store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
)

type userRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*domain.User
}

func NewUserRepository() port.UserRepository {
	return &userRepository{
		users: make(map[string]*domain.User),
	}
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveEmailTaken(user.Email, "") {
		return domain.User{}, domain.ErrConflict
	}

	now := time.Now().UTC()
	r.nextID++

	user.ID = r.nextID
	user.UUID = uuid.New()
	user.BirthDate = domain.DateOnly(user.BirthDate)
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := user
	r.users[user.UUID.String()] = &stored

	return user, nil
}

func (r *userRepository) Find(ctx context.Context, filter domain.Filter, skip, limit int, sortField domain.Field, sortDirection domain.SortDirection) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]domain.User, 0)
	for _, u := range r.users {
		if matches(*u, filter) {
			matched = append(matched, *u)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(value(matched[i], sortField), value(matched[j], sortField))
		if c == 0 {
			return matched[i].ID < matched[j].ID
		}
		if sortDirection == domain.SortDesc {
			return c > 0
		}
		return c < 0
	})

	if skip >= len(matched) {
		return []domain.User{}, nil
	}

	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *userRepository) GetByUUID(ctx context.Context, uid string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[uid]
	if !ok || u.IsDeleted {
		return domain.User{}, domain.ErrNotFound
	}

	return *u, nil
}

func (r *userRepository) UpdateIfNotDeleted(ctx context.Context, uid string, patch domain.UserPatch) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[uid]
	if !ok || u.IsDeleted {
		return domain.User{}, domain.ErrNotFound
	}

	if patch.Email != nil && r.liveEmailTaken(*patch.Email, uid) {
		return domain.User{}, domain.ErrConflict
	}

	patch.Apply(u)
	u.BirthDate = domain.DateOnly(u.BirthDate)
	u.UpdatedAt = time.Now().UTC()

	return *u, nil
}

func (r *userRepository) SoftDeleteIfNotDeleted(ctx context.Context, uid string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[uid]
	if !ok || u.IsDeleted {
		return domain.User{}, domain.ErrNotFound
	}

	u.IsDeleted = true
	u.UpdatedAt = time.Now().UTC()

	return *u, nil
}

func (r *userRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// liveEmailTaken must be called with mu held.
func (r *userRepository) liveEmailTaken(email, exceptUUID string) bool {
	for id, u := range r.users {
		if id != exceptUUID && !u.IsDeleted && u.Email == email {
			return true
		}
	}
	return false
}

func matches(u domain.User, filter domain.Filter) bool {
	for field, want := range filter {
		if compare(value(u, field), want) != 0 {
			return false
		}
	}
	return true
}

func value(u domain.User, f domain.Field) any {
	switch f {
	case domain.FieldFirstName:
		return u.FirstName
	case domain.FieldLastName:
		return u.LastName
	case domain.FieldEmail:
		return u.Email
	case domain.FieldPhone:
		return u.Phone
	case domain.FieldStatus:
		return u.Status
	case domain.FieldMarketingSource:
		return u.MarketingSource
	case domain.FieldBirthDate:
		return u.BirthDate
	case domain.FieldCreatedAt:
		return u.CreatedAt
	case domain.FieldUpdatedAt:
		return u.UpdatedAt
	case domain.FieldIsDeleted:
		return u.IsDeleted
	default:
		return nil
	}
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	default:
		if a == b {
			return 0
		}
		return 1
	}
}

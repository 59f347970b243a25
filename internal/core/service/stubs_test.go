package service_test

import (
	"context"
	"errors"
	"sync"

	"usersapi/internal/adapter/database/memory"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
)

var errStoreDown = errors.New("store unavailable: connection refused")

// spyRepo records calls and can fail selected operations.
type spyRepo struct {
	port.UserRepository

	mu          sync.Mutex
	createCalls int
	findCalls   int
	lastSkip    int
	lastLimit   int
	lastFilter  domain.Filter
	failCreate  func(u domain.User) error
	findErr     error
}

func newSpyRepo() *spyRepo {
	return &spyRepo{UserRepository: memory.NewUserRepository()}
}

func (r *spyRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	r.createCalls++
	fail := r.failCreate
	r.mu.Unlock()

	if fail != nil {
		if err := fail(u); err != nil {
			return domain.User{}, err
		}
	}

	return r.UserRepository.Create(ctx, u)
}

func (r *spyRepo) Find(ctx context.Context, filter domain.Filter, skip, limit int, sortField domain.Field, sortDirection domain.SortDirection) ([]domain.User, error) {
	r.mu.Lock()
	r.findCalls++
	r.lastSkip = skip
	r.lastLimit = limit
	r.lastFilter = filter
	r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}

	return r.UserRepository.Find(ctx, filter, skip, limit, sortField, sortDirection)
}

func (r *spyRepo) creates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls
}

// gatedRepo can park one Find after it has read the store, so a caller can
// interleave a mutation between the read and the caller's use of the result.
type gatedRepo struct {
	port.UserRepository

	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{UserRepository: memory.NewUserRepository()}
}

func (r *gatedRepo) holdNextFind() (entered <-chan struct{}, release chan<- struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entered = make(chan struct{})
	r.release = make(chan struct{})

	return r.entered, r.release
}

func (r *gatedRepo) Find(ctx context.Context, filter domain.Filter, skip, limit int, sortField domain.Field, sortDirection domain.SortDirection) ([]domain.User, error) {
	users, err := r.UserRepository.Find(ctx, filter, skip, limit, sortField, sortDirection)

	r.mu.Lock()
	entered, release := r.entered, r.release
	r.entered, r.release = nil, nil
	r.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	return users, err
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/model/response"
	"usersapi/internal/core/port"
	"usersapi/internal/core/telemetry"
	"usersapi/internal/core/validation"
)

const (
	serviceName = "user"

	// ListCachePrefix namespaces cached listing pages.
	ListCachePrefix = "users:list:"

	defaultCacheTTL = time.Minute
)

var noopTelemetry = telemetry.NewNoOpProbe()

type UserService struct {
	repo     port.UserRepository
	cache    port.CacheRepository
	cacheTTL time.Duration
	probe    port.Telemetry
	engine   *QueryEngine
	importer *BulkImporter
	workers  int

	// cacheMu orders page fills against invalidations; generation counts invalidations.
	cacheMu    sync.Mutex
	generation uint64
}

type UserServiceOption func(*UserService)

// WithCache enables listing cache. A zero ttl falls back to one minute.
func WithCache(cache port.CacheRepository, ttl time.Duration) UserServiceOption {
	return func(s *UserService) {
		s.cache = cache
		s.cacheTTL = ttl
		if ttl <= 0 {
			s.cacheTTL = defaultCacheTTL
		}
	}
}

func WithTelemetry(probe port.Telemetry) UserServiceOption {
	return func(s *UserService) {
		if probe != nil {
			s.probe = probe
		}
	}
}

func WithImportWorkers(n int) UserServiceOption {
	return func(s *UserService) {
		s.workers = n
	}
}

func NewUserService(repo port.UserRepository, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo:    repo,
		probe:   noopTelemetry,
		workers: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = NewQueryEngine(repo)
	s.importer = NewBulkImporter(repo, WithWorkers(s.workers), WithImportTelemetry(s.probe))

	return s
}

func (s *UserService) Create(ctx context.Context, user domain.User) (domain.User, error) {
	start := time.Now()
	ctx, span := s.probe.StartServiceSpan(ctx, serviceName, "create", nil)
	defer span.End()

	user = validation.NormalizeUser(user)

	if err := validation.ValidateUser(user); err != nil {
		s.probe.RecordServiceOperation(ctx, serviceName, "create", time.Since(start), err)
		return domain.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	s.probe.RecordServiceOperation(ctx, serviceName, "create", time.Since(start), err)

	if err != nil {
		slog.ErrorContext(ctx, "Repository create failed", "error", err, "email", user.Email)
		return domain.User{}, err
	}

	s.invalidateListings(ctx)
	s.probe.RecordBusinessEvent(ctx, "user_created", "user", created.UUID.String(), nil)

	return created, nil
}

func (s *UserService) List(ctx context.Context, query domain.QuerySpec) (*response.PageResponse, error) {
	start := time.Now()
	ctx, span := s.probe.StartServiceSpan(ctx, serviceName, "list", map[string]interface{}{
		"page":   query.Page,
		"limit":  query.Limit,
		"sortBy": string(query.SortBy),
	})
	defer span.End()

	if err := query.Validate(); err != nil {
		s.probe.RecordServiceOperation(ctx, serviceName, "list", time.Since(start), err)
		return nil, err
	}

	key := ListCacheKey(query)

	if cached, ok := s.cachedPage(ctx, key); ok {
		span.SetAttributes(map[string]interface{}{"cache_hit": true})
		s.probe.RecordServiceOperation(ctx, serviceName, "list", time.Since(start), nil)
		return cached, nil
	}

	generation := s.listGeneration()

	users, page, err := s.engine.Find(ctx, query)
	s.probe.RecordServiceOperation(ctx, serviceName, "list", time.Since(start), err)

	if err != nil {
		return nil, err
	}

	resp := response.NewPageResponse(users, page)
	s.storePage(ctx, key, resp, generation)

	return resp, nil
}

func (s *UserService) Update(ctx context.Context, uuid string, patch domain.UserPatch) (domain.User, error) {
	start := time.Now()
	ctx, span := s.probe.StartServiceSpan(ctx, serviceName, "update", map[string]interface{}{"user_uuid": uuid})
	defer span.End()

	if err := validation.ValidatePatch(patch); err != nil {
		s.probe.RecordServiceOperation(ctx, serviceName, "update", time.Since(start), err)
		return domain.User{}, err
	}

	updated, err := s.repo.UpdateIfNotDeleted(ctx, uuid, patch)
	s.probe.RecordServiceOperation(ctx, serviceName, "update", time.Since(start), err)

	if err != nil {
		return domain.User{}, err
	}

	s.invalidateListings(ctx)
	s.probe.RecordBusinessEvent(ctx, "user_updated", "user", uuid, nil)

	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, uuid string) (domain.User, error) {
	start := time.Now()
	ctx, span := s.probe.StartServiceSpan(ctx, serviceName, "delete", map[string]interface{}{"user_uuid": uuid})
	defer span.End()

	deleted, err := s.repo.SoftDeleteIfNotDeleted(ctx, uuid)
	s.probe.RecordServiceOperation(ctx, serviceName, "delete", time.Since(start), err)

	if err != nil {
		return domain.User{}, err
	}

	s.invalidateListings(ctx)
	s.probe.RecordBusinessEvent(ctx, "user_deleted", "user", uuid, nil)

	return deleted, nil
}

func (s *UserService) Import(ctx context.Context, records []domain.RawUserRecord) domain.ImportOutcome {
	start := time.Now()
	ctx, span := s.probe.StartServiceSpan(ctx, serviceName, "import", map[string]interface{}{"rows": len(records)})
	defer span.End()

	outcome := s.importer.Import(ctx, records)

	span.SetAttributes(map[string]interface{}{
		"success_count": outcome.SuccessCount,
		"failed_count":  outcome.FailedCount,
	})
	s.probe.RecordServiceOperation(ctx, serviceName, "import", time.Since(start), nil)

	if outcome.SuccessCount > 0 {
		s.invalidateListings(ctx)
	}

	s.probe.RecordBusinessEvent(ctx, "users_imported", "user", "", map[string]interface{}{
		"success_count": outcome.SuccessCount,
		"failed_count":  outcome.FailedCount,
	})

	return outcome
}

func (s *UserService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ListCacheKey is stable for equal queries regardless of how they were built.
func ListCacheKey(q domain.QuerySpec) string {
	values := url.Values{}

	filter, page := BuildFilter(q)
	for field, value := range filter {
		if t, ok := value.(time.Time); ok {
			value = t.Format("2006-01-02")
		}
		values.Set(string(field), toString(value))
	}

	values.Set("page", strconv.Itoa(page.Number))
	values.Set("limit", strconv.Itoa(page.Limit))
	values.Set("sortBy", string(page.SortBy))
	values.Set("sort", string(page.Sort))

	return ListCachePrefix + values.Encode()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (s *UserService) cachedPage(ctx context.Context, key string) (*response.PageResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, port.ErrCacheMiss) {
			slog.WarnContext(ctx, "Listing cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var page response.PageResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		slog.WarnContext(ctx, "Listing cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}

	return &page, true
}

func (s *UserService) listGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// storePage skips the write when a mutation invalidated listings after the
// page was read, since the page may still hold the old rows.
func (s *UserService) storePage(ctx context.Context, key string, page *response.PageResponse, generation uint64) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(page)
	if err != nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.generation != generation {
		return
	}

	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "Listing cache write failed", "key", key, "error", err)
	}
}

func (s *UserService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation++

	if err := s.cache.DeleteByPrefix(ctx, ListCachePrefix); err != nil {
		slog.WarnContext(ctx, "Listing cache invalidation failed", "error", err)
	}
}

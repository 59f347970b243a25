package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "usersapi/pkg/test"
	"usersapi/pkg/test/factory"

	"usersapi/internal/adapter/database/sqlite"
	"usersapi/internal/adapter/database/sqlite/repository"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
	"usersapi/internal/core/telemetry"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type UserRepositoryTestSuite struct {
	suite.Suite
	db   *sqlite.DB
	repo port.UserRepository
}

func (s *UserRepositoryTestSuite) SetupTest() {
	s.db = InitTestDB()
	probe := telemetry.NewNoOpProbe()

	s.repo = repository.NewUserRepository(s.db, probe)
}

func (s *UserRepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func TestUserRepositoryTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(UserRepositoryTestSuite))
}

func liveFilter(extra domain.Filter) domain.Filter {
	f := domain.Filter{domain.FieldIsDeleted: false}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func (s *UserRepositoryTestSuite) TestRepository_CreateUser_AssignsIdentityAndTimestamps() {
	ctx := context.Background()
	input := factory.NewUser(map[string]any{"Email": "jo@x.com"})
	input.UUID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	user, err := s.repo.Create(ctx, input)

	assert.NoError(s.T(), err)
	assert.NotEmpty(s.T(), user.ID)
	assert.NotEqual(s.T(), input.UUID, user.UUID)
	assert.NotEqual(s.T(), uuid.Nil, user.UUID)
	assert.False(s.T(), user.IsDeleted)
	assert.Equal(s.T(), "jo@x.com", user.Email)
	assert.Equal(s.T(), input.MarketingSource, user.MarketingSource)
	assert.True(s.T(), user.BirthDate.Equal(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(s.T(), user.CreatedAt.IsZero())
	assert.True(s.T(), user.CreatedAt.Equal(user.UpdatedAt))
}

func (s *UserRepositoryTestSuite) TestRepository_CreateUser_DuplicateLiveEmailConflicts() {
	ctx := context.Background()

	_, err := s.repo.Create(ctx, factory.NewUser(map[string]any{"Email": "dup@x.com"}))
	Expect(err).ToNot(HaveOccurred())

	_, err = s.repo.Create(ctx, factory.NewUser(map[string]any{"Email": "dup@x.com"}))
	Expect(err).To(MatchError(domain.ErrConflict))
}

func (s *UserRepositoryTestSuite) TestRepository_CreateUser_EmailReusableAfterSoftDelete() {
	ctx := context.Background()

	first, err := s.repo.Create(ctx, factory.NewUser(map[string]any{"Email": "again@x.com"}))
	Expect(err).ToNot(HaveOccurred())

	_, err = s.repo.SoftDeleteIfNotDeleted(ctx, first.UUID.String())
	Expect(err).ToNot(HaveOccurred())

	_, err = s.repo.Create(ctx, factory.NewUser(map[string]any{"Email": "again@x.com"}))
	Expect(err).ToNot(HaveOccurred())
}

func (s *UserRepositoryTestSuite) TestRepository_Find_FilterSortAndLimit() {
	ctx := context.Background()

	s.repo.Create(ctx, factory.NewUser(map[string]any{"LastName": "Lee", "Status": "DQL"}))
	s.repo.Create(ctx, factory.NewUser(map[string]any{"LastName": "Kim", "Status": "DQL"}))
	s.repo.Create(ctx, factory.NewUser(map[string]any{"LastName": "Abe", "Status": "SQL"}))

	users, err := s.repo.Find(ctx, liveFilter(domain.Filter{domain.FieldStatus: "DQL"}), 0, 1, domain.FieldLastName, domain.SortAsc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(1))
	Expect(users[0].LastName).To(Equal("Kim"))

	users, err = s.repo.Find(ctx, liveFilter(nil), 0, 10, domain.FieldLastName, domain.SortDesc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(3))
	Expect(users[0].LastName).To(Equal("Lee"))
	Expect(users[2].LastName).To(Equal("Abe"))
}

func (s *UserRepositoryTestSuite) TestRepository_Find_TiesBrokenByInsertionOrder() {
	ctx := context.Background()

	var created []domain.User
	for i := 0; i < 4; i++ {
		u, err := s.repo.Create(ctx, factory.NewUser(map[string]any{"Status": "same"}))
		Expect(err).ToNot(HaveOccurred())
		created = append(created, u)
	}

	users, err := s.repo.Find(ctx, liveFilter(nil), 1, 2, domain.FieldStatus, domain.SortDesc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(2))
	Expect(users[0].UUID).To(Equal(created[1].UUID))
	Expect(users[1].UUID).To(Equal(created[2].UUID))
}

func (s *UserRepositoryTestSuite) TestRepository_Find_ByBirthDate() {
	ctx := context.Background()

	born := time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC)
	s.repo.Create(ctx, factory.NewUser(map[string]any{"BirthDate": born}))
	s.repo.Create(ctx, factory.NewUser())

	users, err := s.repo.Find(ctx, liveFilter(domain.Filter{domain.FieldBirthDate: born}), 0, 10, domain.FieldCreatedAt, domain.SortAsc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(1))
	Expect(users[0].BirthDate.Equal(born)).To(BeTrue())
}

func (s *UserRepositoryTestSuite) TestRepository_Find_ExcludesDeletedWhenFiltered() {
	ctx := context.Background()

	kept, _ := s.repo.Create(ctx, factory.NewUser())
	gone, _ := s.repo.Create(ctx, factory.NewUser())

	_, err := s.repo.SoftDeleteIfNotDeleted(ctx, gone.UUID.String())
	Expect(err).ToNot(HaveOccurred())

	users, err := s.repo.Find(ctx, liveFilter(nil), 0, 10, domain.FieldCreatedAt, domain.SortAsc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(1))
	Expect(users[0].UUID).To(Equal(kept.UUID))
}

func (s *UserRepositoryTestSuite) TestRepository_Find_EmptyResultIsNotNil() {
	users, err := s.repo.Find(context.Background(), liveFilter(nil), 0, 10, domain.FieldCreatedAt, domain.SortAsc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).ToNot(BeNil())
	Expect(users).To(BeEmpty())
}

func (s *UserRepositoryTestSuite) TestRepository_UpdateIfNotDeleted_AppliesPatch() {
	ctx := context.Background()

	user, _ := s.repo.Create(ctx, factory.NewUser(map[string]any{"Status": "DQL"}))
	time.Sleep(2 * time.Millisecond)

	status := "SQL"
	updated, err := s.repo.UpdateIfNotDeleted(ctx, user.UUID.String(), domain.UserPatch{Status: &status})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "SQL", updated.Status)
	assert.Equal(s.T(), user.Email, updated.Email)
	assert.Equal(s.T(), user.UUID, updated.UUID)
	assert.True(s.T(), updated.UpdatedAt.After(user.UpdatedAt))
	assert.True(s.T(), updated.CreatedAt.Equal(user.CreatedAt))
}

func (s *UserRepositoryTestSuite) TestRepository_UpdateIfNotDeleted_EmptyPatchBumpsUpdatedAt() {
	ctx := context.Background()

	user, _ := s.repo.Create(ctx, factory.NewUser())
	time.Sleep(2 * time.Millisecond)

	updated, err := s.repo.UpdateIfNotDeleted(ctx, user.UUID.String(), domain.UserPatch{})

	Expect(err).ToNot(HaveOccurred())
	Expect(updated.UpdatedAt).To(BeTemporally(">", user.UpdatedAt))
}

func (s *UserRepositoryTestSuite) TestRepository_UpdateIfNotDeleted_NotFound() {
	ctx := context.Background()

	_, err := s.repo.UpdateIfNotDeleted(ctx, uuid.NewString(), domain.UserPatch{})
	Expect(err).To(MatchError(domain.ErrNotFound))

	user, _ := s.repo.Create(ctx, factory.NewUser())
	_, err = s.repo.SoftDeleteIfNotDeleted(ctx, user.UUID.String())
	Expect(err).ToNot(HaveOccurred())

	status := "revived"
	_, err = s.repo.UpdateIfNotDeleted(ctx, user.UUID.String(), domain.UserPatch{Status: &status})
	Expect(err).To(MatchError(domain.ErrNotFound))
}

func (s *UserRepositoryTestSuite) TestRepository_UpdateIfNotDeleted_EmailConflict() {
	ctx := context.Background()

	s.repo.Create(ctx, factory.NewUser(map[string]any{"Email": "taken@x.com"}))
	other, _ := s.repo.Create(ctx, factory.NewUser())

	email := "taken@x.com"
	_, err := s.repo.UpdateIfNotDeleted(ctx, other.UUID.String(), domain.UserPatch{Email: &email})

	Expect(err).To(MatchError(domain.ErrConflict))
}

func (s *UserRepositoryTestSuite) TestRepository_SoftDelete_OnlyOnce() {
	ctx := context.Background()

	user, _ := s.repo.Create(ctx, factory.NewUser())

	deleted, err := s.repo.SoftDeleteIfNotDeleted(ctx, user.UUID.String())
	Expect(err).ToNot(HaveOccurred())
	Expect(deleted.IsDeleted).To(BeTrue())
	Expect(deleted.UUID).To(Equal(user.UUID))

	_, err = s.repo.SoftDeleteIfNotDeleted(ctx, user.UUID.String())
	Expect(err).To(MatchError(domain.ErrNotFound))

	_, err = s.repo.GetByUUID(ctx, user.UUID.String())
	Expect(err).To(MatchError(domain.ErrNotFound))
}

func (s *UserRepositoryTestSuite) TestRepository_SoftDelete_ConcurrentCallsDeleteOnce() {
	ctx := context.Background()

	user, _ := s.repo.Create(ctx, factory.NewUser())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		notFound  int
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.repo.SoftDeleteIfNotDeleted(ctx, user.UUID.String())

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if err == domain.ErrNotFound {
				notFound++
			}
		}()
	}

	wg.Wait()

	Expect(succeeded).To(Equal(1))
	Expect(notFound).To(Equal(4))
}

func (s *UserRepositoryTestSuite) TestRepository_GetByUUID() {
	ctx := context.Background()

	user, _ := s.repo.Create(ctx, factory.NewUser())

	found, err := s.repo.GetByUUID(ctx, user.UUID.String())
	Expect(err).ToNot(HaveOccurred())
	Expect(found.Email).To(Equal(user.Email))

	_, err = s.repo.GetByUUID(ctx, uuid.NewString())
	Expect(err).To(MatchError(domain.ErrNotFound))
}

func (s *UserRepositoryTestSuite) TestRepository_Ping() {
	Expect(s.repo.Ping(context.Background())).To(Succeed())
}

package memory

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"usersapi/internal/core/domain"
	"usersapi/pkg/test/factory"
)

func TestUserRepository_CreateAssignsIdentity(t *testing.T) {
	RegisterTestingT(t)

	repo := NewUserRepository()
	u, err := repo.Create(context.Background(), factory.NewUser())

	Expect(err).ToNot(HaveOccurred())
	Expect(u.ID).To(Equal(int64(1)))
	Expect(u.UUID.String()).ToNot(Equal("00000000-0000-0000-0000-000000000000"))
	Expect(u.CreatedAt).ToNot(BeZero())
}

func TestUserRepository_FindSortsAndPages(t *testing.T) {
	RegisterTestingT(t)

	ctx := context.Background()
	repo := NewUserRepository()

	for _, last := range []string{"Lee", "Kim", "Abe", "Kim"} {
		_, err := repo.Create(ctx, factory.NewUser(map[string]any{"LastName": last}))
		Expect(err).ToNot(HaveOccurred())
	}

	live := domain.Filter{domain.FieldIsDeleted: false}

	users, err := repo.Find(ctx, live, 0, 10, domain.FieldLastName, domain.SortAsc)
	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(4))
	Expect(users[0].LastName).To(Equal("Abe"))
	Expect(users[1].ID).To(BeNumerically("<", users[2].ID))

	users, err = repo.Find(ctx, live, 1, 2, domain.FieldLastName, domain.SortDesc)
	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(2))
	Expect(users[0].LastName).To(Equal("Kim"))
	Expect(users[1].LastName).To(Equal("Kim"))
	Expect(users[0].ID).To(BeNumerically("<", users[1].ID))

	users, err = repo.Find(ctx, live, 10, 2, domain.FieldLastName, domain.SortDesc)
	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(BeEmpty())
}

func TestUserRepository_FindByBirthDate(t *testing.T) {
	RegisterTestingT(t)

	ctx := context.Background()
	repo := NewUserRepository()

	born := time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC)
	repo.Create(ctx, factory.NewUser(map[string]any{"BirthDate": born}))
	repo.Create(ctx, factory.NewUser())

	users, err := repo.Find(ctx, domain.Filter{domain.FieldBirthDate: born, domain.FieldIsDeleted: false}, 0, 10, domain.FieldCreatedAt, domain.SortAsc)

	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(1))
}

func TestUserRepository_MutationsRespectSoftDelete(t *testing.T) {
	RegisterTestingT(t)

	ctx := context.Background()
	repo := NewUserRepository()

	u, _ := repo.Create(ctx, factory.NewUser(map[string]any{"Email": "jo@x.com"}))

	_, err := repo.Create(ctx, factory.NewUser(map[string]any{"Email": "jo@x.com"}))
	Expect(err).To(MatchError(domain.ErrConflict))

	deleted, err := repo.SoftDeleteIfNotDeleted(ctx, u.UUID.String())
	Expect(err).ToNot(HaveOccurred())
	Expect(deleted.IsDeleted).To(BeTrue())

	_, err = repo.SoftDeleteIfNotDeleted(ctx, u.UUID.String())
	Expect(err).To(MatchError(domain.ErrNotFound))

	status := "SQL"
	_, err = repo.UpdateIfNotDeleted(ctx, u.UUID.String(), domain.UserPatch{Status: &status})
	Expect(err).To(MatchError(domain.ErrNotFound))

	_, err = repo.Create(ctx, factory.NewUser(map[string]any{"Email": "jo@x.com"}))
	Expect(err).ToNot(HaveOccurred())
}

func TestUserRepository_CancelledContext(t *testing.T) {
	RegisterTestingT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewUserRepository().Create(ctx, factory.NewUser())
	Expect(err).To(MatchError(context.Canceled))
}

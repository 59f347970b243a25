package service_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"usersapi/internal/adapter/database/sqlite"
	"usersapi/internal/adapter/database/sqlite/repository"
	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
	"usersapi/internal/core/service"
	"usersapi/internal/core/telemetry"
	. "usersapi/pkg/test"
	"usersapi/pkg/test/factory"
)

type BulkImporterTestSuite struct {
	suite.Suite
	db   *sqlite.DB
	repo port.UserRepository
}

func (s *BulkImporterTestSuite) SetupTest() {
	s.db = InitTestDB()
	s.repo = repository.NewUserRepository(s.db, telemetry.NewNoOpProbe())
}

func (s *BulkImporterTestSuite) TearDownTest() {
	s.db.Close()
}

func TestBulkImporterTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(BulkImporterTestSuite))
}

func (s *BulkImporterTestSuite) TestImport_OneValidOneInvalidRow() {
	ctx := context.Background()

	batch := []domain.RawUserRecord{
		{"firstname": "Jo", "lastname": "Lee", "email": "jo@x.com", "phone": "+14155552671", "status": "DQL", "provider": "ads", "birth_date": "1990-01-01"},
		{"firstname": "", "lastname": "Kim", "email": "bad", "phone": "123", "status": "DQL", "provider": "ads", "birth_date": "not-a-date"},
	}

	outcome := service.NewBulkImporter(s.repo).Import(ctx, batch)

	Expect(outcome.SuccessCount).To(Equal(1))
	Expect(outcome.FailedCount).To(Equal(1))
	Expect(outcome.Failures).To(HaveLen(1))
	Expect(outcome.Failures[0].Row).To(Equal(2))

	users, err := s.repo.Find(ctx, domain.Filter{domain.FieldEmail: "jo@x.com", domain.FieldIsDeleted: false}, 0, 10, domain.FieldCreatedAt, domain.SortAsc)
	Expect(err).ToNot(HaveOccurred())
	Expect(users).To(HaveLen(1))
	Expect(users[0].MarketingSource).To(Equal("ads"))
	Expect(users[0].FirstName).To(Equal("Jo"))

	all, _ := s.repo.Find(ctx, domain.Filter{domain.FieldIsDeleted: false}, 0, 10, domain.FieldCreatedAt, domain.SortAsc)
	Expect(all).To(HaveLen(1))
}

func (s *BulkImporterTestSuite) TestImport_MissingFieldNeverSucceeds() {
	ctx := context.Background()

	for _, col := range domain.RawColumns {
		outcome := service.NewBulkImporter(s.repo).Import(ctx, []domain.RawUserRecord{
			factory.NewRawRecord(map[string]string{col: ""}),
		})

		assert.Equal(s.T(), 0, outcome.SuccessCount, col)
		assert.Equal(s.T(), 1, outcome.FailedCount, col)
	}
}

func (s *BulkImporterTestSuite) TestImport_DuplicateEmailInBatchIsFolded() {
	ctx := context.Background()

	batch := []domain.RawUserRecord{
		factory.NewRawRecord(map[string]string{"email": "same@x.com"}),
		factory.NewRawRecord(map[string]string{"email": "same@x.com"}),
		factory.NewRawRecord(),
	}

	outcome := service.NewBulkImporter(s.repo).Import(ctx, batch)

	Expect(outcome.SuccessCount).To(Equal(2))
	Expect(outcome.FailedCount).To(Equal(1))
	Expect(outcome.Failures[0].Row).To(Equal(2))
	Expect(outcome.Failures[0].Reason).To(ContainSubstring("conflict"))
}

func (s *BulkImporterTestSuite) TestImport_ConcurrentWorkersOnSqlite() {
	ctx := context.Background()

	var batch []domain.RawUserRecord
	for i := 0; i < 20; i++ {
		if i%4 == 0 {
			batch = append(batch, factory.NewRawRecord(map[string]string{"phone": "123"}))
			continue
		}
		batch = append(batch, factory.NewRawRecord(map[string]string{"email": fmt.Sprintf("w%d@x.com", i)}))
	}

	outcome := service.NewBulkImporter(s.repo, service.WithWorkers(4)).Import(ctx, batch)

	Expect(outcome.SuccessCount).To(Equal(15))
	Expect(outcome.FailedCount).To(Equal(5))
	Expect(outcome.Failures[0].Row).To(Equal(1))
	Expect(outcome.Failures[4].Row).To(Equal(17))
}

func randomBatch(r *rand.Rand, n int) []domain.RawUserRecord {
	batch := make([]domain.RawUserRecord, 0, n)

	for i := 0; i < n; i++ {
		switch r.Intn(4) {
		case 0:
			col := domain.RawColumns[r.Intn(len(domain.RawColumns))]
			batch = append(batch, factory.NewRawRecord(map[string]string{col: "  "}))
		case 1:
			batch = append(batch, factory.NewRawRecord(map[string]string{"birth_date": "31/31/1990"}))
		default:
			batch = append(batch, factory.NewRawRecord())
		}
	}

	return batch
}

func TestImport_CountsAlwaysSumToInput(t *testing.T) {
	RegisterTestingT(t)

	r := rand.New(rand.NewSource(42))

	for _, workers := range []int{1, 3, 8} {
		for _, n := range []int{0, 1, 2, 7, 25, 64} {
			repo := newSpyRepo()
			repo.failCreate = func(u domain.User) error {
				if u.FirstName == "" {
					return errStoreDown
				}
				return nil
			}

			outcome := service.NewBulkImporter(repo, service.WithWorkers(workers)).Import(context.Background(), randomBatch(r, n))

			Expect(outcome.SuccessCount+outcome.FailedCount).To(Equal(n), "workers=%d n=%d", workers, n)
			Expect(outcome.Failures).To(HaveLen(outcome.FailedCount))
			Expect(repo.creates()).To(Equal(outcome.SuccessCount))
		}
	}
}

func TestImport_StorageErrorsAreFoldedPerRow(t *testing.T) {
	RegisterTestingT(t)

	repo := newSpyRepo()
	repo.failCreate = func(u domain.User) error {
		if u.Email == "down@x.com" {
			return errStoreDown
		}
		return nil
	}

	batch := []domain.RawUserRecord{
		factory.NewRawRecord(),
		factory.NewRawRecord(map[string]string{"email": "down@x.com"}),
		factory.NewRawRecord(),
	}

	outcome := service.NewBulkImporter(repo).Import(context.Background(), batch)

	Expect(outcome.SuccessCount).To(Equal(2))
	Expect(outcome.FailedCount).To(Equal(1))
	Expect(outcome.Failures).To(Equal([]domain.ImportFailure{{Row: 2, Reason: errStoreDown.Error()}}))
	Expect(repo.creates()).To(Equal(3))
}

func TestImport_OneCreatePerAcceptedRow(t *testing.T) {
	RegisterTestingT(t)

	repo := newSpyRepo()

	batch := []domain.RawUserRecord{
		factory.NewRawRecord(),
		factory.NewRawRecord(map[string]string{"email": "nope"}),
		factory.NewRawRecord(),
		factory.NewRawRecord(map[string]string{"phone": "555"}),
	}

	outcome := service.NewBulkImporter(repo).Import(context.Background(), batch)

	Expect(outcome.SuccessCount).To(Equal(2))
	Expect(repo.creates()).To(Equal(2))
}

func TestImport_CancelledContextCountsEveryRow(t *testing.T) {
	RegisterTestingT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := []domain.RawUserRecord{
		factory.NewRawRecord(),
		factory.NewRawRecord(),
		factory.NewRawRecord(map[string]string{"email": "bad"}),
		factory.NewRawRecord(),
	}

	for _, workers := range []int{1, 2} {
		repo := newSpyRepo()
		outcome := service.NewBulkImporter(repo, service.WithWorkers(workers)).Import(ctx, batch)

		Expect(outcome.SuccessCount).To(Equal(0))
		Expect(outcome.FailedCount).To(Equal(4))
		Expect(outcome.Total()).To(Equal(len(batch)))
	}
}

func TestImport_RecordsRowOutcomes(t *testing.T) {
	RegisterTestingT(t)

	probe := &countingProbe{Telemetry: telemetry.NewNoOpProbe()}

	batch := []domain.RawUserRecord{
		factory.NewRawRecord(),
		factory.NewRawRecord(map[string]string{"email": "bad"}),
	}

	service.NewBulkImporter(newSpyRepo(), service.WithImportTelemetry(probe)).Import(context.Background(), batch)

	Expect(probe.rows).To(Equal(map[string]int{"success": 1, "failed": 1}))
}

type countingProbe struct {
	port.Telemetry
	rows map[string]int
}

func (p *countingProbe) RecordImportRow(ctx context.Context, outcome string) {
	if p.rows == nil {
		p.rows = map[string]int{}
	}
	p.rows[outcome]++
}

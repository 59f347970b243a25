package sqlbuilder

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	. "github.com/onsi/gomega"

	"usersapi/internal/core/domain"
)

var questionBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func TestSelect_FilterSortAndPage(t *testing.T) {
	RegisterTestingT(t)

	filter := domain.Filter{
		domain.FieldStatus:    "DQL",
		domain.FieldIsDeleted: false,
	}

	query, err := Select(questionBuilder, filter, 10, 10, domain.FieldLastName, domain.SortDesc)
	Expect(err).ToNot(HaveOccurred())

	stmt, args, err := query.ToSql()
	Expect(err).ToNot(HaveOccurred())

	Expect(stmt).To(ContainSubstring("FROM users"))
	Expect(stmt).To(ContainSubstring("WHERE is_deleted = ? AND status = ?"))
	Expect(stmt).To(ContainSubstring("ORDER BY last_name DESC, id ASC"))
	Expect(stmt).To(ContainSubstring("LIMIT 10 OFFSET 10"))
	Expect(args).To(Equal([]interface{}{false, "DQL"}))
}

func TestSelect_FirstPageHasNoOffset(t *testing.T) {
	RegisterTestingT(t)

	query, err := Select(questionBuilder, domain.Filter{domain.FieldIsDeleted: false}, 0, 5, domain.FieldCreatedAt, domain.SortAsc)
	Expect(err).ToNot(HaveOccurred())

	stmt, _, err := query.ToSql()
	Expect(err).ToNot(HaveOccurred())
	Expect(stmt).To(ContainSubstring("ORDER BY created_at ASC, id ASC"))
	Expect(stmt).To(ContainSubstring("LIMIT 5"))
	Expect(stmt).ToNot(ContainSubstring("OFFSET"))
}

func TestSelect_UnknownFieldIsInvalidQuery(t *testing.T) {
	RegisterTestingT(t)

	_, err := Select(questionBuilder, domain.Filter{}, 0, 5, domain.Field("password"), domain.SortAsc)
	Expect(err).To(MatchError(domain.ErrInvalidQuery))

	_, err = Select(questionBuilder, domain.Filter{domain.Field("password"): "x"}, 0, 5, domain.FieldEmail, domain.SortAsc)
	Expect(err).To(MatchError(domain.ErrInvalidQuery))
}

func TestUpdateLive_GuardsDeletedRows(t *testing.T) {
	RegisterTestingT(t)

	email := "new@x.com"
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	stmt, args, err := UpdateLive(questionBuilder, "abc", PatchSet(domain.UserPatch{Email: &email}, now)).ToSql()
	Expect(err).ToNot(HaveOccurred())

	Expect(stmt).To(Equal("UPDATE users SET email = ?, updated_at = ? WHERE is_deleted = ? AND uuid = ?"))
	Expect(args).To(Equal([]interface{}{email, now, false, "abc"}))
}

func TestPatchSet_EmptyPatchBumpsUpdatedAt(t *testing.T) {
	RegisterTestingT(t)

	now := time.Now().UTC()
	set := PatchSet(domain.UserPatch{}, now)

	Expect(set).To(HaveLen(1))
	Expect(set).To(HaveKeyWithValue("updated_at", now))
}

func TestPatchSet_NormalizesBirthDate(t *testing.T) {
	RegisterTestingT(t)

	birth := time.Date(1990, 1, 1, 15, 30, 0, 0, time.UTC)
	set := PatchSet(domain.UserPatch{BirthDate: &birth}, time.Now())

	Expect(set).To(HaveKeyWithValue("birth_date", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInsert_ColumnsMatchValues(t *testing.T) {
	RegisterTestingT(t)

	stmt, args, err := Insert(questionBuilder, domain.User{FirstName: "Jo"}).ToSql()
	Expect(err).ToNot(HaveOccurred())

	Expect(stmt).To(HavePrefix("INSERT INTO users (uuid,first_name,last_name,email,phone,status,marketing_source,birth_date,is_deleted,created_at,updated_at)"))
	Expect(args).To(HaveLen(len(Columns) - 1))
	Expect(args[1]).To(Equal("Jo"))
}

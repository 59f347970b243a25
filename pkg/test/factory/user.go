package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"

	"usersapi/internal/core/domain"
)

// UserAttrs mirrors the writable fields of domain.User.
type UserAttrs struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Status          string
	MarketingSource string
	BirthDate       time.Time
}

// NewUser builds a valid user. Names are random; customData overrides fields by name.
func NewUser(customData ...map[string]any) domain.User {
	instance := fab.New(*new(UserAttrs))

	defaults := map[string]any{
		"Email":           "user-" + uuid.NewString()[:8] + "@example.com",
		"Phone":           "+14155552671",
		"Status":          "DQL",
		"MarketingSource": "ads",
		"BirthDate":       time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
	}

	// Build only honours its first override map, so fold everything into one.
	for _, data := range customData {
		for k, v := range data {
			defaults[k] = v
		}
	}

	attrs := instance.Build(defaults)

	return domain.User{
		FirstName:       nonEmpty(attrs.FirstName, "Jo"),
		LastName:        nonEmpty(attrs.LastName, "Lee"),
		Email:           attrs.Email,
		Phone:           attrs.Phone,
		Status:          attrs.Status,
		MarketingSource: attrs.MarketingSource,
		BirthDate:       domain.DateOnly(attrs.BirthDate),
	}
}

// NewRawRecord builds a valid ingestion row; overrides replace columns.
func NewRawRecord(overrides ...map[string]string) domain.RawUserRecord {
	u := NewUser(map[string]any{"FirstName": "Jo", "LastName": "Lee"})

	raw := domain.RawUserRecord{
		domain.RawFirstName: u.FirstName,
		domain.RawLastName:  u.LastName,
		domain.RawEmail:     u.Email,
		domain.RawPhone:     u.Phone,
		domain.RawStatus:    u.Status,
		domain.RawProvider:  u.MarketingSource,
		domain.RawBirthDate: u.BirthDate.Format("2006-01-02"),
	}

	for _, o := range overrides {
		for k, v := range o {
			raw[k] = v
		}
	}

	return raw
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

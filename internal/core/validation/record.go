package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"usersapi/internal/core/domain"
)

const usRegion = "US"

var (
	ErrInvalidDate = errors.New("invalid date")

	emailValidator = validator.New()

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
)

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return emailValidator.Var(s, "required,email") == nil
}

// IsUSPhone reports whether s resolves to a valid US number. A country code
// and separators are optional.
func IsUSPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	num, err := phonenumbers.Parse(s, usRegion)
	if err != nil {
		return false
	}

	return phonenumbers.IsValidNumberForRegion(num, usRegion)
}

// ParseDate parses an ISO-8601 date or date-time and returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOnly(t), nil
		}
	}

	return time.Time{}, ErrInvalidDate
}

type check func(u *domain.User) error

func presence(u *domain.User) error {
	fields := []struct {
		name  domain.Field
		value string
	}{
		{domain.FieldFirstName, u.FirstName},
		{domain.FieldLastName, u.LastName},
		{domain.FieldEmail, u.Email},
		{domain.FieldPhone, u.Phone},
		{domain.FieldStatus, u.Status},
		{domain.FieldMarketingSource, u.MarketingSource},
	}

	for _, f := range fields {
		if f.value == "" {
			return domain.NewValidationError(string(f.name), "is required")
		}
	}

	if u.BirthDate.IsZero() {
		return domain.NewValidationError(string(domain.FieldBirthDate), "is required")
	}

	return nil
}

func email(u *domain.User) error {
	if !IsEmail(u.Email) {
		return domain.NewValidationError(string(domain.FieldEmail), "must be a valid email")
	}
	return nil
}

func phone(u *domain.User) error {
	if !IsUSPhone(u.Phone) {
		return domain.NewValidationError(string(domain.FieldPhone), "must be a valid US phone number")
	}
	return nil
}

var userChecks = []check{presence, email, phone}

// ValidateUser runs the ordered checks against an already typed user and
// stops at the first failure.
func ValidateUser(u domain.User) error {
	trimUser(&u)

	for _, c := range userChecks {
		if err := c(&u); err != nil {
			return err
		}
	}

	return nil
}

// ValidateRecord turns a raw ingestion row into a normalized user. Checks run
// in order (presence, email, phone, birth date) and stop at the first failure.
func ValidateRecord(raw domain.RawUserRecord) (domain.User, error) {
	values := make(map[string]string, len(domain.RawColumns))
	for _, col := range domain.RawColumns {
		values[col] = strings.TrimSpace(raw[col])
	}

	for _, col := range domain.RawColumns {
		if values[col] == "" {
			return domain.User{}, domain.NewValidationError(col, "is required")
		}
	}

	u := domain.User{
		FirstName:       values[domain.RawFirstName],
		LastName:        values[domain.RawLastName],
		Email:           values[domain.RawEmail],
		Phone:           values[domain.RawPhone],
		Status:          values[domain.RawStatus],
		MarketingSource: values[domain.RawProvider],
	}

	if err := email(&u); err != nil {
		return domain.User{}, err
	}

	if err := phone(&u); err != nil {
		return domain.User{}, err
	}

	birthDate, err := ParseDate(values[domain.RawBirthDate])
	if err != nil {
		return domain.User{}, domain.NewValidationError(domain.RawBirthDate, "must be a valid date")
	}
	u.BirthDate = birthDate

	return u, nil
}

// ValidatePatch checks every supplied field of a partial update.
func ValidatePatch(p domain.UserPatch) error {
	texts := []struct {
		name  domain.Field
		value *string
	}{
		{domain.FieldFirstName, p.FirstName},
		{domain.FieldLastName, p.LastName},
		{domain.FieldEmail, p.Email},
		{domain.FieldPhone, p.Phone},
		{domain.FieldStatus, p.Status},
		{domain.FieldMarketingSource, p.MarketingSource},
	}

	for _, t := range texts {
		if t.value != nil && strings.TrimSpace(*t.value) == "" {
			return domain.NewValidationError(string(t.name), "must not be empty")
		}
	}

	if p.Email != nil && !IsEmail(strings.TrimSpace(*p.Email)) {
		return domain.NewValidationError(string(domain.FieldEmail), "must be a valid email")
	}

	if p.Phone != nil && !IsUSPhone(*p.Phone) {
		return domain.NewValidationError(string(domain.FieldPhone), "must be a valid US phone number")
	}

	if p.BirthDate != nil && p.BirthDate.IsZero() {
		return domain.NewValidationError(string(domain.FieldBirthDate), "must be a valid date")
	}

	return nil
}

// NormalizeUser returns u with surrounding whitespace removed from its text fields.
func NormalizeUser(u domain.User) domain.User {
	trimUser(&u)
	return u
}

func trimUser(u *domain.User) {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = strings.TrimSpace(u.Email)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Status = strings.TrimSpace(u.Status)
	u.MarketingSource = strings.TrimSpace(u.MarketingSource)
}

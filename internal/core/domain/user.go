package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              int64
	UUID            uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Status          string
	MarketingSource string
	BirthDate       time.Time
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Status          *string
	MarketingSource *string
	BirthDate       *time.Time
}

func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil &&
		p.LastName == nil &&
		p.Email == nil &&
		p.Phone == nil &&
		p.Status == nil &&
		p.MarketingSource == nil &&
		p.BirthDate == nil
}

// Apply copies every supplied field onto u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}

	if p.LastName != nil {
		u.LastName = *p.LastName
	}

	if p.Email != nil {
		u.Email = *p.Email
	}

	if p.Phone != nil {
		u.Phone = *p.Phone
	}

	if p.Status != nil {
		u.Status = *p.Status
	}

	if p.MarketingSource != nil {
		u.MarketingSource = *p.MarketingSource
	}

	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
}

// Values returns the supplied fields keyed by their canonical name.
func (p UserPatch) Values() map[Field]any {
	values := make(map[Field]any)

	if p.FirstName != nil {
		values[FieldFirstName] = *p.FirstName
	}

	if p.LastName != nil {
		values[FieldLastName] = *p.LastName
	}

	if p.Email != nil {
		values[FieldEmail] = *p.Email
	}

	if p.Phone != nil {
		values[FieldPhone] = *p.Phone
	}

	if p.Status != nil {
		values[FieldStatus] = *p.Status
	}

	if p.MarketingSource != nil {
		values[FieldMarketingSource] = *p.MarketingSource
	}

	if p.BirthDate != nil {
		values[FieldBirthDate] = *p.BirthDate
	}

	return values
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateRegistration(ctx context.Context, registration Registration) error
	UpdateRegistration(ctx context.Context, registration Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error)
	GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (Registration, error)
	GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error)
}

type GetAllRegistrationsResponse struct {
	Data        []Registration
	Cursor      *string
	HasNextPage bool
}

// Registration is one submitted form. ExternalUserID is empty for anonymous
// submissions and unique across the store otherwise.
type Registration struct {
	ID           uuid.UUID
	Version      int
	NameKanji    string
	NameKatakana string
	PhoneNumber  string
	CompanyName  string
	Email        string
	BirthDate    time.Time

	ExternalUserID      string
	ExternalDisplayName string
	ExternalAvatarURL   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Registration) HasExternalUser() bool {
	return r.ExternalUserID != ""
}

func (r Registration) Summary() Summary {
	return Summary{
		NameKanji: r.NameKanji,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
}

// Summary is the part of a registration that is shown back to its owner.
type Summary struct {
	NameKanji string
	Email     string
	CreatedAt time.Time
}

func (r *Registration) applyForm(form ValidatedForm) {
	r.NameKanji = form.NameKanji
	r.NameKatakana = form.NameKatakana
	r.PhoneNumber = form.PhoneNumber
	r.CompanyName = form.CompanyName
	r.Email = form.Email
	r.BirthDate = form.BirthDate
}

package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// A create that loses the race for an external user ID, or an update that
// loses a version race, is retried once through the lookup path.
const maxSubmitAttempts = 2

var timeNow = time.Now

var tracer = otel.Tracer("github.com/International-Combat-Archery-Alliance/line-registration/registration")

type SubmitResult struct {
	Registration Registration
	WasUpdate    bool
}

// Submit validates form and stores it. A submission from a known external
// user updates that user's registration in place, anything else creates a
// new registration.
func Submit(ctx context.Context, form FormData, user identity.ExternalUser, repo Repository) (SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "registration.Submit")
	defer span.End()
	span.SetAttributes(attribute.Bool("registration.anonymous", user.IsAnonymous()))

	result, err := submit(ctx, form, user, repo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SubmitResult{}, err
	}

	span.SetAttributes(
		attribute.String("registration.id", result.Registration.ID.String()),
		attribute.Bool("registration.was_update", result.WasUpdate),
	)
	return result, nil
}

func submit(ctx context.Context, form FormData, user identity.ExternalUser, repo Repository) (SubmitResult, error) {
	now := timeNow().UTC()

	validated, err := form.Validate(now)
	if err != nil {
		return SubmitResult{}, err
	}

	if user.IsAnonymous() {
		reg, err := create(ctx, validated, user, now, repo)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Registration: reg, WasUpdate: false}, nil
	}

	var lastErr error
	for range maxSubmitAttempts {
		result, err := upsert(ctx, validated, user, now, repo)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return SubmitResult{}, err
		}
		lastErr = err
	}

	return SubmitResult{}, lastErr
}

func upsert(ctx context.Context, form ValidatedForm, user identity.ExternalUser, now time.Time, repo Repository) (SubmitResult, error) {
	existing, err := repo.GetRegistrationByExternalUserID(ctx, user.UserID)
	if err != nil {
		if !IsReason(err, REASON_REGISTRATION_DOES_NOT_EXIST) {
			return SubmitResult{}, NewFailedToFetchError(fmt.Sprintf("Failed to look up registration for external user %q", user.UserID), err)
		}

		reg, err := create(ctx, form, user, now, repo)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Registration: reg, WasUpdate: false}, nil
	}

	reg, err := update(ctx, existing, form, user, now, repo)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Registration: reg, WasUpdate: true}, nil
}

func create(ctx context.Context, form ValidatedForm, user identity.ExternalUser, now time.Time, repo Repository) (Registration, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Registration{}, NewFailedToWriteError("Failed to generate registration ID", err)
	}

	reg := Registration{
		ID:                  id,
		Version:             1,
		ExternalUserID:      user.UserID,
		ExternalDisplayName: user.DisplayName,
		ExternalAvatarURL:   user.PictureURL,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	reg.applyForm(form)

	err = repo.CreateRegistration(ctx, reg)
	if err != nil {
		return Registration{}, asWriteError(err, "Failed to create registration")
	}
	return reg, nil
}

func update(ctx context.Context, existing Registration, form ValidatedForm, user identity.ExternalUser, now time.Time, repo Repository) (Registration, error) {
	reg := existing
	reg.applyForm(form)
	reg.Version++

	// The profile cache is only refreshed with values the resolver actually supplied.
	if user.DisplayName != "" {
		reg.ExternalDisplayName = user.DisplayName
	}
	if user.PictureURL != "" {
		reg.ExternalAvatarURL = user.PictureURL
	}

	reg.UpdatedAt = now
	if !reg.UpdatedAt.After(existing.UpdatedAt) {
		reg.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
	}

	err := repo.UpdateRegistration(ctx, reg)
	if err != nil {
		return Registration{}, asWriteError(err, fmt.Sprintf("Failed to update registration %q", reg.ID))
	}
	return reg, nil
}

func asWriteError(err error, message string) error {
	var regErr *Error
	if errors.As(err, &regErr) {
		return err
	}
	return NewFailedToWriteError(message, err)
}

func isRetryable(err error) bool {
	return IsReason(err, REASON_EXTERNAL_USER_ALREADY_REGISTERED) || IsReason(err, REASON_VERSION_CONFLICT)
}

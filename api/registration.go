package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/ptr"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/International-Combat-Archery-Alliance/line-registration/slices"
	"github.com/oapi-codegen/runtime/types"
)

const (
	registeredMessage = "登録が完了しました"
	updatedMessage    = "登録情報を更新しました"
)

func (a *API) PostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body RegisterRequest
	err := decodeBody(w, r, &body)
	if err != nil {
		logger.Warn("Invalid body for registration", "error", err)
		a.writeDecodeError(w, r, err)
		return
	}

	user := identity.Anonymous
	if signal := registerIdentitySignal(body); signal != nil {
		user, err = a.resolver.Resolve(ctx, signal)
		if err != nil {
			// Degraded identity still registers.
			logger.Warn("Failed to resolve identity for registration", "error", err)
		}
	}

	result, err := registration.Submit(ctx, apiRegisterToForm(body), user, a.db)
	if err != nil {
		var validationErr *registration.ValidationError
		if errors.As(err, &validationErr) {
			a.metrics.IncrementSubmission(metrics.OutcomeInvalid)
			logger.Info("Registration failed validation", slog.Any("fields", slices.Map(validationErr.Fields, func(f registration.FieldError) string {
				return f.Field
			})))

			a.writeJSON(w, r, http.StatusBadRequest, Error{
				Message: "入力内容に誤りがあります",
				Code:    InputValidationError,
				Fields: slices.Map(validationErr.Fields, func(f registration.FieldError) FieldError {
					return FieldError{Field: f.Field, Message: f.Message}
				}),
			})
			return
		}

		a.metrics.IncrementSubmission(metrics.OutcomeError)
		logger.Error("Error trying to register", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Failed to register")
		return
	}

	message := registeredMessage
	if result.WasUpdate {
		a.metrics.IncrementSubmission(metrics.OutcomeUpdated)
		message = updatedMessage
	} else {
		a.metrics.IncrementSubmission(metrics.OutcomeCreated)
	}

	logger.Info("Registration stored",
		slog.String("registrationId", result.Registration.ID.String()),
		slog.Bool("isUpdate", result.WasUpdate),
		slog.Bool("anonymous", user.IsAnonymous()))

	a.writeJSON(w, r, http.StatusOK, RegisterResponse{
		Message:  message,
		Id:       result.Registration.ID,
		IsUpdate: result.WasUpdate,
	})
}

// registerIdentitySignal turns the identity fields of a form submission into
// a signal. A display name means the client already holds the SDK profile,
// a bare ID still needs a profile lookup.
func registerIdentitySignal(body RegisterRequest) identity.Signal {
	userID := strings.TrimSpace(ptr.Deref(body.ExternalUserId))
	if userID == "" {
		return nil
	}

	displayName := ptr.Deref(body.ExternalDisplayName)
	if displayName == "" {
		return identity.DeepLinkSignal{UserID: userID}
	}

	return identity.SDKProfileSignal{User: identity.ExternalUser{
		UserID:      userID,
		DisplayName: displayName,
		PictureURL:  ptr.Deref(body.ExternalAvatarUrl),
	}}
}

func apiRegisterToForm(body RegisterRequest) registration.FormData {
	return registration.FormData{
		NameKanji:    body.NameKanji,
		NameKatakana: body.NameKatakana,
		PhoneNumber:  body.PhoneNumber,
		CompanyName:  body.CompanyName,
		Email:        body.Email,
		BirthDate:    body.BirthDate,
	}
}

func (a *API) PostCheckRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body CheckRegistrationRequest
	err := decodeBody(w, r, &body)
	if err != nil {
		logger.Warn("Invalid body for registration check", "error", err)
		a.writeDecodeError(w, r, err)
		return
	}

	summary, err := registration.CheckExisting(ctx, strings.TrimSpace(ptr.Deref(body.ExternalUserId)), a.db)
	if err != nil {
		if registration.IsReason(err, registration.REASON_REGISTRATION_DOES_NOT_EXIST) {
			a.metrics.IncrementLookup(metrics.LookupNotFound)
			a.writeJSON(w, r, http.StatusOK, CheckRegistrationResponse{Registered: false})
			return
		}

		a.metrics.IncrementLookup(metrics.LookupError)
		logger.Error("Failed to check registration", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Failed to check registration")
		return
	}

	a.metrics.IncrementLookup(metrics.LookupFound)
	a.writeJSON(w, r, http.StatusOK, CheckRegistrationResponse{
		Registered: true,
		Registration: &RegistrationSummary{
			NameKanji: summary.NameKanji,
			Email:     types.Email(summary.Email),
			CreatedAt: summary.CreatedAt,
		},
	})
}

package registration

import (
	"errors"
	"fmt"
)

type ErrorReason string

const (
	REASON_INVALID_FORM                     ErrorReason = "INVALID_FORM"
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL  ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                  ErrorReason = "FAILED_TO_WRITE"
	REASON_REGISTRATION_DOES_NOT_EXIST      ErrorReason = "REGISTRATION_DOES_NOT_EXIST"
	REASON_REGISTRATION_ALREADY_EXISTS      ErrorReason = "REGISTRATION_ALREADY_EXISTS"
	REASON_EXTERNAL_USER_ALREADY_REGISTERED ErrorReason = "EXTERNAL_USER_ALREADY_REGISTERED"
	REASON_VERSION_CONFLICT                 ErrorReason = "VERSION_CONFLICT"
	REASON_FAILED_TO_FETCH                  ErrorReason = "FAILED_TO_FETCH"
	REASON_INVALID_CURSOR                   ErrorReason = "INVALID_CURSOR"
	REASON_TIMEOUT                          ErrorReason = "TIMEOUT"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsReason reports whether err is, or wraps, a registration error with reason.
func IsReason(err error, reason ErrorReason) bool {
	var regErr *Error
	return errors.As(err, &regErr) && regErr.Reason == reason
}

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewInvalidFormError(cause *ValidationError) *Error {
	return newRegistrationError(REASON_INVALID_FORM, "Form data failed validation", cause)
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewRegistrationAlreadyExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ALREADY_EXISTS, message, cause)
}

func NewRegistrationDoesNotExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_DOES_NOT_EXIST, message, cause)
}

func NewExternalUserAlreadyRegisteredError(externalUserID string, cause error) *Error {
	return newRegistrationError(REASON_EXTERNAL_USER_ALREADY_REGISTERED, fmt.Sprintf("External user %q already has a registration", externalUserID), cause)
}

func NewVersionConflictError(message string, cause error) *Error {
	return newRegistrationError(REASON_VERSION_CONFLICT, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewInvalidCursorError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_CURSOR, message, cause)
}

func NewTimeoutError(message string, cause error) *Error {
	return newRegistrationError(REASON_TIMEOUT, message, cause)
}

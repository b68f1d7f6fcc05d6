package identity

import "fmt"

type ErrorReason string

const (
	REASON_MISSING_CODE          ErrorReason = "MISSING_CODE"
	REASON_TOKEN_EXCHANGE_FAILED ErrorReason = "TOKEN_EXCHANGE_FAILED"
	REASON_PROFILE_FETCH_FAILED  ErrorReason = "PROFILE_FETCH_FAILED"
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

func newIdentityError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewMissingCodeError(message string) *Error {
	return newIdentityError(REASON_MISSING_CODE, message, nil)
}

func NewTokenExchangeFailedError(message string, cause error) *Error {
	return newIdentityError(REASON_TOKEN_EXCHANGE_FAILED, message, cause)
}

func NewProfileFetchFailedError(message string, cause error) *Error {
	return newIdentityError(REASON_PROFILE_FETCH_FAILED, message, cause)
}

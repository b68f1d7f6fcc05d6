package line

import "fmt"

type ErrorReason string

const (
	REASON_REQUEST_FAILED        ErrorReason = "REQUEST_FAILED"
	REASON_UNEXPECTED_STATUS     ErrorReason = "UNEXPECTED_STATUS"
	REASON_INVALID_RESPONSE      ErrorReason = "INVALID_RESPONSE"
	REASON_TOKEN_EXCHANGE_FAILED ErrorReason = "TOKEN_EXCHANGE_FAILED"
	REASON_PROFILE_FETCH_FAILED  ErrorReason = "PROFILE_FETCH_FAILED"
	REASON_INVALID_PAYLOAD       ErrorReason = "INVALID_PAYLOAD"
	REASON_INVALID_SIGNATURE     ErrorReason = "INVALID_SIGNATURE"
)

type Error struct {
	Reason     ErrorReason
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newLineError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewRequestFailedError(message string, cause error) *Error {
	return newLineError(REASON_REQUEST_FAILED, message, cause)
}

func NewUnexpectedStatusError(statusCode int, body string) *Error {
	err := newLineError(REASON_UNEXPECTED_STATUS, fmt.Sprintf("Unexpected status %d: %s", statusCode, body), nil)
	err.StatusCode = statusCode
	return err
}

func NewInvalidResponseError(message string, cause error) *Error {
	return newLineError(REASON_INVALID_RESPONSE, message, cause)
}

func NewTokenExchangeFailedError(message string, cause error) *Error {
	return newLineError(REASON_TOKEN_EXCHANGE_FAILED, message, cause)
}

func NewProfileFetchFailedError(message string, cause error) *Error {
	return newLineError(REASON_PROFILE_FETCH_FAILED, message, cause)
}

func NewInvalidPayloadError(message string, cause error) *Error {
	return newLineError(REASON_INVALID_PAYLOAD, message, cause)
}

func NewInvalidSignatureError(cause error) *Error {
	return newLineError(REASON_INVALID_SIGNATURE, "Webhook signature does not match body", cause)
}

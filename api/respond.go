package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodySize = 65536

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		a.getLoggerOrBaseLogger(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	a.writeJSON(w, r, status, Error{
		Message: message,
		Code:    code,
	})
}

var errEmptyBody = errors.New("empty body")

// decodeBody reads a JSON request body into out. An empty body is reported
// as errEmptyBody.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// writeDecodeError maps a decodeBody failure to a 400 response.
func (a *API) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errEmptyBody) {
		a.writeError(w, r, http.StatusBadRequest, EmptyBody, "Must specify a body")
		return
	}
	a.writeError(w, r, http.StatusBadRequest, InvalidBody, "Invalid body")
}

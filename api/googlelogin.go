package api

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	googleAuthJWTCookieKey = "GOOGLE_AUTH_JWT"
)

func (a *API) PostAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body AdminLoginRequest
	err := decodeBody(w, r, &body)
	if err != nil {
		a.writeDecodeError(w, r, err)
		return
	}

	jwtPayload, err := a.validateGoogleOauthToken(ctx, body.GoogleJWT, []string{adminScope})
	if err != nil {
		logger.Warn("failed admin login", "error", err)
		a.writeError(w, r, http.StatusUnauthorized, AuthError, "Invalid JWT")
		return
	}

	logger.Info("successful login", slog.Any("email", jwtPayload.Claims["email"]))

	http.SetCookie(w, &http.Cookie{
		Name:     googleAuthJWTCookieKey,
		Value:    body.GoogleJWT,
		Expires:  time.Unix(jwtPayload.Expires, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.env == PROD,
		SameSite: http.SameSiteStrictMode,
	})

	a.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "Logged in"})
}

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

const (
	adminScope = "admin"
)

type scopeValidator func(jwt *idtoken.Payload) error

func (a *API) scopeValidators() map[string]scopeValidator {
	return map[string]scopeValidator{
		adminScope: func(jwt *idtoken.Payload) error {
			org, ok := jwt.Claims["hd"]
			if !ok {
				return fmt.Errorf("hd claim not in JWT")
			}
			if a.settings.AdminDomain == "" || org != a.settings.AdminDomain {
				return fmt.Errorf("user is not an admin")
			}

			return nil
		},
	}
}

func (a *API) validateGoogleOauthToken(ctx context.Context, token string, scopes []string) (*idtoken.Payload, error) {
	jwt, err := a.googleIdVerifier.Validate(ctx, token, a.settings.GoogleAudience)
	if err != nil {
		return nil, err
	}

	validators := a.scopeValidators()
	for _, scope := range scopes {
		validator, ok := validators[scope]
		if !ok {
			return nil, fmt.Errorf("unknown scope: %q", scope)
		}

		err = validator(jwt)
		if err != nil {
			return nil, fmt.Errorf("user does not have scope %q", scope)
		}
	}

	return jwt, nil
}

// adminOnly rejects requests that do not carry a Google ID token from the
// admin domain, either in the login cookie or as a bearer token.
func (a *API) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := a.getLoggerOrBaseLogger(ctx)

		token := googleTokenFromRequest(r)
		if token == "" {
			a.writeError(w, r, http.StatusUnauthorized, AuthError, "Missing auth token")
			return
		}

		jwt, err := a.validateGoogleOauthToken(ctx, token, []string{adminScope})
		if err != nil {
			logger.Warn("Rejected admin request", "error", err)
			a.writeError(w, r, http.StatusUnauthorized, AuthError, "Not authorized")
			return
		}

		next(w, r.WithContext(ctxWithJWT(ctx, jwt)))
	}
}

// adminLogger tags the request logger with the email of the admin that
// adminOnly let through.
func (a *API) adminLogger(ctx context.Context) *slog.Logger {
	logger := a.getLoggerOrBaseLogger(ctx)
	jwt := getJWTFromCtx(ctx)
	if jwt == nil {
		return logger
	}
	email, _ := jwt.Claims["email"].(string)
	return logger.With(slog.String("admin", email))
}

func googleTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(googleAuthJWTCookieKey); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

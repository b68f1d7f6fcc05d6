package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/ptr"
	"github.com/google/uuid"
)

const (
	loginStateCookieKey = "LINE_LOGIN_STATE"
	loginStateTTL       = 10 * time.Minute
)

// Values of the error param the login callback appends to the form URL.
const (
	loginErrorNoCode       = "no_code"
	loginErrorInvalidState = "invalid_state"
	loginErrorTokenFailed  = "token_failed"
	loginErrorLoginFailed  = "login_failed"
)

func (a *API) GetResolveIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	user, err := a.resolver.Resolve(ctx, identity.SignalsFromQuery(r.URL.Query())...)

	resp := ResolveIdentityResponse{
		Anonymous:  user.IsAnonymous(),
		CleanQuery: identity.StripIdentityParams(r.URL).RawQuery,
	}
	if !user.IsAnonymous() {
		resp.User = toUserInfo(user)
	}
	if err != nil {
		logger.Warn("Identity resolved with errors", "error", err)
		resp.Error = ptr.String(string(identityErrorReason(err)))
	}

	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) PostGetUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body GetUserInfoRequest
	err := decodeBody(w, r, &body)
	if err != nil {
		a.writeDecodeError(w, r, err)
		return
	}

	userID := strings.TrimSpace(ptr.Deref(body.UserId))
	if userID == "" {
		a.writeError(w, r, http.StatusBadRequest, InputValidationError, "userId is required")
		return
	}

	user, err := a.resolver.Resolve(ctx, identity.DeepLinkSignal{UserID: userID})
	if err != nil {
		logger.Warn("Failed to fetch profile, returning partial identity", "error", err)
	}

	a.writeJSON(w, r, http.StatusOK, toUserInfo(user))
}

func (a *API) GetExternalLoginStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     loginStateCookieKey,
		Value:    state,
		Path:     "/auth/external-login",
		MaxAge:   int(loginStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.env == PROD,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.login.AuthCodeURL(state), http.StatusFound)
}

func (a *API) GetExternalLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)
	q := r.URL.Query()

	// The state cookie is single use.
	http.SetCookie(w, &http.Cookie{
		Name:     loginStateCookieKey,
		Value:    "",
		Path:     "/auth/external-login",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.env == PROD,
		SameSite: http.SameSiteLaxMode,
	})

	if loginErr := q.Get("error"); loginErr != "" {
		logger.Warn("LINE Login returned an error", "error", loginErr, "description", q.Get("error_description"))
		a.redirectToForm(w, r, url.Values{"error": {loginErrorLoginFailed}})
		return
	}

	code := q.Get("code")
	if code == "" {
		a.redirectToForm(w, r, url.Values{"error": {loginErrorNoCode}})
		return
	}

	cookie, err := r.Cookie(loginStateCookieKey)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		logger.Warn("LINE Login state mismatch")
		a.redirectToForm(w, r, url.Values{"error": {loginErrorInvalidState}})
		return
	}

	user, err := a.resolver.Resolve(ctx, identity.LoginCodeSignal{Code: code, State: q.Get("state")})
	if err != nil || user.IsAnonymous() {
		logger.Error("LINE Login exchange failed", "error", err)
		reason := loginErrorTokenFailed
		if identityErrorReason(err) == identity.REASON_MISSING_CODE {
			reason = loginErrorNoCode
		}
		a.redirectToForm(w, r, url.Values{"error": {reason}})
		return
	}

	logger.Info("LINE Login succeeded", "lineUserId", user.UserID)
	a.redirectToForm(w, r, identity.LoginResultQuery(user))
}

// redirectToForm sends the browser back to the form with q merged into the
// form URL's own query.
func (a *API) redirectToForm(w http.ResponseWriter, r *http.Request, q url.Values) {
	target, err := url.Parse(a.settings.FormURL)
	if err != nil {
		a.getLoggerOrBaseLogger(r.Context()).Error("Invalid form URL", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Form URL is not configured")
		return
	}

	merged := target.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	target.RawQuery = merged.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func toUserInfo(user identity.ExternalUser) *UserInfo {
	return &UserInfo{
		UserId:      user.UserID,
		DisplayName: user.DisplayName,
		PictureUrl:  ptr.StringOrNil(user.PictureURL),
	}
}

func identityErrorReason(err error) identity.ErrorReason {
	var identityErr *identity.Error
	if errors.As(err, &identityErr) {
		return identityErr.Reason
	}
	return ""
}

package identity

import (
	"net/url"
	"strings"
)

// Navigation params that carry identity into the form page.
const (
	ParamLogin       = "lineLogin"
	ParamUserID      = "lineUserId"
	ParamDisplayName = "lineDisplayName"
	ParamPictureURL  = "linePictureUrl"

	LoginSuccess = "success"
)

// Params reported by the client side SDK handshake.
const (
	ParamSDKUserID      = "sdkUserId"
	ParamSDKDisplayName = "sdkDisplayName"
	ParamSDKPictureURL  = "sdkPictureUrl"
)

var strippedParams = []string{
	ParamLogin,
	ParamUserID,
	ParamDisplayName,
	ParamPictureURL,
	ParamSDKUserID,
	ParamSDKDisplayName,
	ParamSDKPictureURL,
	"code",
	"state",
}

// SignalsFromQuery collects every identity signal present in q. Use Strongest
// or Resolver.Resolve to pick between them.
func SignalsFromQuery(q url.Values) []Signal {
	var signals []Signal

	userID := strings.TrimSpace(q.Get(ParamUserID))
	if userID != "" {
		if q.Get(ParamLogin) == LoginSuccess {
			signals = append(signals, LoginResultSignal{User: ExternalUser{
				UserID:      userID,
				DisplayName: q.Get(ParamDisplayName),
				PictureURL:  q.Get(ParamPictureURL),
			}})
		} else {
			signals = append(signals, DeepLinkSignal{UserID: userID})
		}
	}

	sdkUserID := strings.TrimSpace(q.Get(ParamSDKUserID))
	if sdkUserID != "" {
		signals = append(signals, SDKProfileSignal{User: ExternalUser{
			UserID:      sdkUserID,
			DisplayName: q.Get(ParamSDKDisplayName),
			PictureURL:  q.Get(ParamSDKPictureURL),
		}})
	}

	return signals
}

// StripIdentityParams returns a copy of u without any identity navigation
// params, so a refresh or a shared link cannot resolve the identity again.
func StripIdentityParams(u *url.URL) *url.URL {
	clean := *u
	q := clean.Query()
	for _, p := range strippedParams {
		q.Del(p)
	}
	clean.RawQuery = q.Encode()
	return &clean
}

// LoginResultQuery is what the login callback appends to the form URL after a
// successful exchange.
func LoginResultQuery(user ExternalUser) url.Values {
	q := url.Values{}
	q.Set(ParamLogin, LoginSuccess)
	q.Set(ParamUserID, user.UserID)
	q.Set(ParamDisplayName, user.DisplayName)
	if user.PictureURL != "" {
		q.Set(ParamPictureURL, user.PictureURL)
	}
	return q
}

// DeepLinkURL embeds userID into base so the form can pick it up as a deep
// link signal.
func DeepLinkURL(base string, userID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(ParamUserID, userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

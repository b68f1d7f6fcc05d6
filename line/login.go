package line

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthorizeURL = "https://access.line.me/oauth2/v2.1/authorize"
	DefaultTokenURL     = "https://api.line.me/oauth2/v2.1/token"
	DefaultProfileURL   = "https://api.line.me/v2/profile"

	maxErrorBodySize = 4096
)

type LoginConfig struct {
	ChannelID     string
	ChannelSecret string
	RedirectURL   string

	// Optional endpoint overrides, the LINE defaults are used when empty.
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
}

// LoginClient runs the LINE Login authorization code flow.
type LoginClient struct {
	oauthConfig *oauth2.Config
	profileURL  string
	httpClient  *http.Client
}

func NewLoginClient(httpClient *http.Client, cfg LoginConfig) *LoginClient {
	authorizeURL := cfg.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	profileURL := cfg.ProfileURL
	if profileURL == "" {
		profileURL = DefaultProfileURL
	}

	return &LoginClient{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ChannelID,
			ClientSecret: cfg.ChannelSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: tokenURL,
				// LINE expects client_id and client_secret in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: profileURL,
		httpClient: httpClient,
	}
}

func (c *LoginClient) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token and uses it to
// read the logged in user's profile.
func (c *LoginClient) Exchange(ctx context.Context, code string) (Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return Profile{}, NewTokenExchangeFailedError("Failed to exchange authorization code", err)
	}
	if token.AccessToken == "" {
		return Profile{}, NewTokenExchangeFailedError("Token response did not include an access token", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return Profile{}, NewProfileFetchFailedError("Failed to build profile request", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, NewProfileFetchFailedError("Profile request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		err := NewProfileFetchFailedError("Profile request returned an error", NewUnexpectedStatusError(resp.StatusCode, string(body)))
		err.StatusCode = resp.StatusCode
		return Profile{}, err
	}

	var profile Profile
	err = json.NewDecoder(resp.Body).Decode(&profile)
	if err != nil {
		return Profile{}, NewProfileFetchFailedError("Failed to decode profile", err)
	}
	if profile.UserID == "" {
		return Profile{}, NewProfileFetchFailedError("Profile did not include a user ID", nil)
	}

	return profile, nil
}

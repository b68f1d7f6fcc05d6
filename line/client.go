package line

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const DefaultAPIBaseURL = "https://api.line.me"

// Client talks to the Messaging API with a bot channel access token.
type Client struct {
	httpClient         *http.Client
	baseURL            string
	channelAccessToken string
}

type ClientOption func(c *Client)

func WithAPIBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func NewClient(httpClient *http.Client, channelAccessToken string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient:         httpClient,
		baseURL:            DefaultAPIBaseURL,
		channelAccessToken: channelAccessToken,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Fail on a bad base URL at startup rather than on the first call.
	_, err := c.api(context.Background())
	if err != nil {
		return nil, err
	}
	return c, nil
}

// api returns a Messaging API client bound to ctx. WithContext stores the
// context on the SDK client, so every call gets its own.
func (c *Client) api(ctx context.Context) (*messaging_api.MessagingApiAPI, error) {
	bot, err := messaging_api.NewMessagingApiAPI(c.channelAccessToken,
		messaging_api.WithHTTPClient(c.httpClient),
		messaging_api.WithEndpoint(c.baseURL),
	)
	if err != nil {
		return nil, NewRequestFailedError(fmt.Sprintf("Invalid Messaging API endpoint %q", c.baseURL), err)
	}
	return bot.WithContext(ctx), nil
}

type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	bot, err := c.api(ctx)
	if err != nil {
		return Profile{}, err
	}

	resp, profile, err := bot.GetProfileWithHttpInfo(userID)
	if err != nil {
		return Profile{}, fromSDKError("GetProfile", resp, err)
	}
	if profile == nil {
		return Profile{}, NewInvalidResponseError("Profile response was empty", nil)
	}

	return Profile{
		UserID:        profile.UserId,
		DisplayName:   profile.DisplayName,
		PictureURL:    profile.PictureUrl,
		StatusMessage: profile.StatusMessage,
	}, nil
}

func (c *Client) PushMessage(ctx context.Context, to string, messages ...Message) error {
	bot, err := c.api(ctx)
	if err != nil {
		return err
	}

	resp, _, err := bot.PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: messages,
	}, "")
	if err != nil {
		return fromSDKError("PushMessage", resp, err)
	}
	return nil
}

func (c *Client) CreateRichMenu(ctx context.Context, menu RichMenu) (string, error) {
	bot, err := c.api(ctx)
	if err != nil {
		return "", err
	}

	resp, created, err := bot.CreateRichMenuWithHttpInfo(&menu)
	if err != nil {
		return "", fromSDKError("CreateRichMenu", resp, err)
	}
	if created == nil || created.RichMenuId == "" {
		return "", NewInvalidResponseError("Rich menu response did not include an ID", nil)
	}
	return created.RichMenuId, nil
}

func (c *Client) SetDefaultRichMenu(ctx context.Context, richMenuID string) error {
	bot, err := c.api(ctx)
	if err != nil {
		return err
	}

	resp, _, err := bot.SetDefaultRichMenuWithHttpInfo(richMenuID)
	if err != nil {
		return fromSDKError("SetDefaultRichMenu", resp, err)
	}
	return nil
}

// fromSDKError maps an SDK failure onto an Error reason. The SDK returns no
// response on transport failures, and a 2xx response when decoding failed.
func fromSDKError(op string, resp *http.Response, err error) *Error {
	switch {
	case resp == nil:
		return NewRequestFailedError(op+" failed", err)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return NewUnexpectedStatusError(resp.StatusCode, err.Error())
	default:
		return NewInvalidResponseError("Failed to decode "+op+" response", err)
	}
}

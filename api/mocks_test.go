package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

var noopLogger = slog.New(slog.DiscardHandler)

var errInvalidToken = errors.New("invalid token")

var _ DB = &mockDB{}

type mockDB struct {
	CreateRegistrationFunc              func(ctx context.Context, reg registration.Registration) error
	UpdateRegistrationFunc              func(ctx context.Context, reg registration.Registration) error
	GetRegistrationFunc                 func(ctx context.Context, id uuid.UUID) (registration.Registration, error)
	GetRegistrationByExternalUserIDFunc func(ctx context.Context, externalUserID string) (registration.Registration, error)
	GetAllRegistrationsFunc             func(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error)
}

func (m *mockDB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, reg)
	}
	return nil
}

func (m *mockDB) UpdateRegistration(ctx context.Context, reg registration.Registration) error {
	if m.UpdateRegistrationFunc != nil {
		return m.UpdateRegistrationFunc(ctx, reg)
	}
	return nil
}

func (m *mockDB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	if m.GetRegistrationFunc != nil {
		return m.GetRegistrationFunc(ctx, id)
	}
	return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("not found", nil)
}

func (m *mockDB) GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (registration.Registration, error) {
	if m.GetRegistrationByExternalUserIDFunc != nil {
		return m.GetRegistrationByExternalUserIDFunc(ctx, externalUserID)
	}
	return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("not found", nil)
}

func (m *mockDB) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	if m.GetAllRegistrationsFunc != nil {
		return m.GetAllRegistrationsFunc(ctx, limit, cursor)
	}
	return registration.GetAllRegistrationsResponse{}, nil
}

type mockResolver struct {
	ResolveFunc func(ctx context.Context, signals ...identity.Signal) (identity.ExternalUser, error)
}

func (m *mockResolver) Resolve(ctx context.Context, signals ...identity.Signal) (identity.ExternalUser, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, signals...)
	}
	return identity.Anonymous, nil
}

type mockLoginFlow struct {
	AuthCodeURLFunc func(state string) string
}

func (m *mockLoginFlow) AuthCodeURL(state string) string {
	if m.AuthCodeURLFunc != nil {
		return m.AuthCodeURLFunc(state)
	}
	return "https://access.line.example/authorize?state=" + state
}

type mockDispatcher struct {
	HandleEventsFunc func(ctx context.Context, events []line.Event)
}

func (m *mockDispatcher) HandleEvents(ctx context.Context, events []line.Event) {
	if m.HandleEventsFunc != nil {
		m.HandleEventsFunc(ctx, events)
	}
}

type mockRichMenuManager struct {
	CreateRichMenuFunc     func(ctx context.Context, menu line.RichMenu) (string, error)
	SetDefaultRichMenuFunc func(ctx context.Context, richMenuID string) error
}

func (m *mockRichMenuManager) CreateRichMenu(ctx context.Context, menu line.RichMenu) (string, error) {
	if m.CreateRichMenuFunc != nil {
		return m.CreateRichMenuFunc(ctx, menu)
	}
	return "richmenu-1", nil
}

func (m *mockRichMenuManager) SetDefaultRichMenu(ctx context.Context, richMenuID string) error {
	if m.SetDefaultRichMenuFunc != nil {
		return m.SetDefaultRichMenuFunc(ctx, richMenuID)
	}
	return nil
}

type mockGoogleIdVerifier struct {
	ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func (m *mockGoogleIdVerifier) Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	return m.ValidateFunc(ctx, idToken, audience)
}

const (
	testFormURL        = "https://form.example.com/register"
	testChannelSecret  = "channel-secret"
	testAdminDomain    = "example.com"
	testGoogleAudience = "test-audience"
)

func testSettings() Settings {
	return Settings{
		Env:            LOCAL,
		FormURL:        testFormURL,
		ChannelSecret:  testChannelSecret,
		AdminDomain:    testAdminDomain,
		GoogleAudience: testGoogleAudience,
	}
}

// adminVerifier accepts the token "admin-token" as an admin of
// testAdminDomain and rejects everything else.
func adminVerifier() *mockGoogleIdVerifier {
	return &mockGoogleIdVerifier{
		ValidateFunc: func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
			if idToken != "admin-token" || audience != testGoogleAudience {
				return nil, errInvalidToken
			}
			return &idtoken.Payload{Claims: map[string]any{"hd": testAdminDomain, "email": "admin@example.com"}}, nil
		},
	}
}

// newTestServer runs the full handler stack, validation and middleware
// included.
func newTestServer(t *testing.T, db DB, services Services) *httptest.Server {
	t.Helper()

	if services.Resolver == nil {
		services.Resolver = &mockResolver{}
	}
	if services.Login == nil {
		services.Login = &mockLoginFlow{}
	}
	if services.Dispatcher == nil {
		services.Dispatcher = &mockDispatcher{}
	}
	if services.RichMenus == nil {
		services.RichMenus = &mockRichMenuManager{}
	}
	if services.GoogleIdVerifier == nil {
		services.GoogleIdVerifier = adminVerifier()
	}

	reg := prometheus.NewRegistry()
	a := NewAPI(db, noopLogger, testSettings(), services, metrics.New(reg))

	handler, err := a.Handler(reg)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	// Cleanups run last in first out, so background dispatches drain after the server closes.
	t.Cleanup(a.Wait)
	t.Cleanup(server.Close)
	return server
}

// noRedirectClient returns redirects to the caller instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

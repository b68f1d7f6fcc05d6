package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/idtoken"
)

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

type DB interface {
	registration.Repository
}

type IdentityResolver interface {
	Resolve(ctx context.Context, signals ...identity.Signal) (identity.ExternalUser, error)
}

type LoginFlow interface {
	AuthCodeURL(state string) string
}

type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (line.Profile, error)
}

type EventDispatcher interface {
	HandleEvents(ctx context.Context, events []line.Event)
}

type RichMenuManager interface {
	CreateRichMenu(ctx context.Context, menu line.RichMenu) (string, error)
	SetDefaultRichMenu(ctx context.Context, richMenuID string) error
}

type GoogleIdVerifier interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type Settings struct {
	Env Environment
	// FormURL is the public URL of the registration form. Login results and
	// errors are redirected there.
	FormURL string
	// AllowedOrigins for CORS in PROD.
	AllowedOrigins []string
	// ChannelSecret signs inbound webhook deliveries.
	ChannelSecret string
	// AdminDomain is the Google Workspace domain (hd claim) of admins.
	AdminDomain    string
	GoogleAudience string
	// DisplayLocation is used for dates in the CSV export.
	DisplayLocation *time.Location
}

// Services are the collaborators the handlers call out to.
type Services struct {
	Resolver         IdentityResolver
	Login            LoginFlow
	Profiles         ProfileFetcher
	Dispatcher       EventDispatcher
	RichMenus        RichMenuManager
	GoogleIdVerifier GoogleIdVerifier
}

type API struct {
	db               DB
	logger           *slog.Logger
	env              Environment
	settings         Settings
	resolver         IdentityResolver
	login            LoginFlow
	profiles         ProfileFetcher
	dispatcher       EventDispatcher
	richMenus        RichMenuManager
	googleIdVerifier GoogleIdVerifier
	metrics          *metrics.Metrics

	// background tracks webhook batches dispatched after acknowledgement.
	background sync.WaitGroup
}

func NewAPI(db DB, logger *slog.Logger, settings Settings, services Services, m *metrics.Metrics) *API {
	if settings.DisplayLocation == nil {
		settings.DisplayLocation = time.UTC
	}

	return &API{
		db:               db,
		logger:           logger,
		env:              settings.Env,
		settings:         settings,
		resolver:         services.Resolver,
		login:            services.Login,
		profiles:         services.Profiles,
		dispatcher:       services.Dispatcher,
		richMenus:        services.RichMenus,
		googleIdVerifier: services.GoogleIdVerifier,
		metrics:          m,
	}
}

// Wait blocks until every webhook batch still being dispatched is done.
func (a *API) Wait() {
	a.background.Wait()
}

// Handler wires every route behind the middleware stack. gatherer backs the
// /metrics endpoint.
func (a *API) Handler(gatherer prometheus.Gatherer) (http.Handler, error) {
	swagger, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("error loading openapi spec: %w", err)
	}
	// Requests are matched on path only, whatever host the server sits behind.
	swagger.Servers = nil

	mux := http.NewServeMux()

	a.handle(mux, "GET /auth/external-login", a.GetExternalLogin)
	a.handle(mux, "GET /auth/external-login/start", a.GetExternalLoginStart)
	a.handle(mux, "GET /api/identity/resolve", a.GetResolveIdentity)
	a.handle(mux, "POST /api/check-registration", a.PostCheckRegistration)
	a.handle(mux, "POST /api/register", a.PostRegister)
	a.handle(mux, "POST /api/external/get-user-info", a.PostGetUserInfo)
	a.handle(mux, "POST /api/admin/login", a.PostAdminLogin)
	a.handle(mux, "GET /api/admin/registrations", a.adminOnly(a.GetAdminRegistrations))
	a.handle(mux, "GET /api/admin/registrations/export", a.adminOnly(a.GetAdminRegistrationsExport))
	a.handle(mux, "POST /api/richmenu/create", a.adminOnly(a.PostRichMenuCreate))
	a.handle(mux, "POST /api/richmenu/set", a.adminOnly(a.PostRichMenuSet))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return useMiddlewares(
		mux,
		a.openapiValidateMiddleware(swagger),
		a.lineWebhookMiddleware(webhookPath),
		a.loggingMiddleware(),
		a.requestContextMiddleware(),
		a.corsMiddleware(),
	), nil
}

// handle registers h under pattern and records its latency under the same
// pattern, so the route label has bounded cardinality.
func (a *API) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newLoggingResponseWriter(w)

		h(rw, r)

		a.metrics.ObserveRequest(pattern, fmt.Sprint(rw.statusCode), time.Since(start))
	}))
}

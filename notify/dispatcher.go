package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/International-Combat-Archery-Alliance/line-registration/slices"
)

//go:embed templates
var templates embed.FS

const (
	TemplateRegistered = "registered"
	TemplateOpenForm   = "open_form"

	registeredDateLayout = "2006/1/2"

	defaultTimeout      = 5 * time.Second
	defaultBatchTimeout = 30 * time.Second
)

type Messenger interface {
	PushMessage(ctx context.Context, to string, messages ...line.Message) error
}

type Config struct {
	// FormURL is where the registration form is served. The sender's user ID
	// is appended to it as a deep link.
	FormURL string
	// Location registration dates are shown in.
	Location *time.Location
	// Timeout bounds the lookup and push for a single event.
	Timeout time.Duration
	// BatchTimeout bounds a whole webhook delivery. Events still waiting when
	// it passes fail fast instead of queueing up behind a slow LINE API.
	BatchTimeout time.Duration
}

// Dispatcher answers "open form" requests from the bot with either the form
// link or a note that the user has already registered.
type Dispatcher struct {
	repo      registration.Repository
	messenger Messenger
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	templates *template.Template
}

func NewDispatcher(repo registration.Repository, messenger Messenger, cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse message templates: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	return &Dispatcher{
		repo:      repo,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		templates: tmpl,
	}, nil
}

// IsOpenFormTrigger reports whether e is the rich menu postback asking for
// the registration form.
func IsOpenFormTrigger(e line.Event) bool {
	return e.Type == line.EventTypePostback &&
		e.Postback != nil &&
		e.Postback.Data == line.OpenFormPostbackData &&
		e.Source.UserID != ""
}

// HandleEvents processes every trigger in events within BatchTimeout. A
// failing event is logged and counted, it never stops the rest of the batch.
func (d *Dispatcher) HandleEvents(ctx context.Context, events []line.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.BatchTimeout)
	defer cancel()

	for _, e := range events {
		d.metrics.IncrementWebhookEvent(e.Type)
	}

	for _, e := range slices.Filter(events, IsOpenFormTrigger) {
		err := d.HandleEvent(ctx, e)
		if err != nil {
			d.logger.Error("failed to handle open form event",
				slog.String("userId", e.Source.UserID),
				slog.String("webhookEventId", e.WebhookEventID),
				slog.String("error", err.Error()))
		}
	}
}

// HandleEvent looks up the sender and pushes the matching message.
func (d *Dispatcher) HandleEvent(ctx context.Context, e line.Event) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	userID := e.Source.UserID

	summary, err := registration.CheckExisting(ctx, userID, d.repo)
	if err != nil && !registration.IsReason(err, registration.REASON_REGISTRATION_DOES_NOT_EXIST) {
		d.metrics.IncrementLookup(metrics.LookupError)
		return fmt.Errorf("failed to look up registration: %w", err)
	}

	var templateName string
	var msg line.Message
	if err == nil {
		d.metrics.IncrementLookup(metrics.LookupFound)
		templateName = TemplateRegistered
		msg, err = d.registeredMessage(userID, summary)
	} else {
		d.metrics.IncrementLookup(metrics.LookupNotFound)
		templateName = TemplateOpenForm
		msg, err = d.openFormMessage(userID)
	}
	if err != nil {
		d.metrics.IncrementDispatch(templateName, metrics.DispatchFailed)
		return err
	}

	err = d.messenger.PushMessage(ctx, userID, msg)
	if err != nil {
		d.metrics.IncrementDispatch(templateName, metrics.DispatchFailed)
		return fmt.Errorf("failed to push %s message: %w", templateName, err)
	}

	d.metrics.IncrementDispatch(templateName, metrics.DispatchSent)
	d.logger.Info("pushed message", slog.String("userId", userID), slog.String("template", templateName))
	return nil
}

func (d *Dispatcher) registeredMessage(userID string, summary registration.Summary) (line.Message, error) {
	text, err := d.render(TemplateRegistered, map[string]any{
		"NameKanji":    summary.NameKanji,
		"RegisteredOn": summary.CreatedAt.In(d.cfg.Location).Format(registeredDateLayout),
	})
	if err != nil {
		return nil, err
	}

	link, err := identity.DeepLinkURL(d.cfg.FormURL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build form link: %w", err)
	}

	return line.NewButtonsMessage("登録情報の更新", text, line.NewURIAction("登録情報を更新", link)), nil
}

func (d *Dispatcher) openFormMessage(userID string) (line.Message, error) {
	text, err := d.render(TemplateOpenForm, nil)
	if err != nil {
		return nil, err
	}

	link, err := identity.DeepLinkURL(d.cfg.FormURL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build form link: %w", err)
	}

	return line.NewButtonsMessage("登録フォームを開く", text, line.NewURIAction("登録フォームを開く", link)), nil
}

func (d *Dispatcher) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	err := d.templates.ExecuteTemplate(&buf, name+".tmpl", data)
	if err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

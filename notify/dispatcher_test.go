package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noopLogger = slog.New(slog.DiscardHandler)

type mockRegistrationRepository struct {
	registration.Repository
	GetRegistrationByExternalUserIDFunc func(ctx context.Context, externalUserID string) (registration.Registration, error)
}

func (m *mockRegistrationRepository) GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (registration.Registration, error) {
	return m.GetRegistrationByExternalUserIDFunc(ctx, externalUserID)
}

type pushedMessage struct {
	to       string
	messages []line.Message
}

type mockMessenger struct {
	PushMessageFunc func(ctx context.Context, to string, messages ...line.Message) error
	pushed          []pushedMessage
}

func (m *mockMessenger) PushMessage(ctx context.Context, to string, messages ...line.Message) error {
	m.pushed = append(m.pushed, pushedMessage{to: to, messages: messages})
	if m.PushMessageFunc != nil {
		return m.PushMessageFunc(ctx, to, messages...)
	}
	return nil
}

func openFormEvent(userID string) line.Event {
	return line.Event{
		Type:     line.EventTypePostback,
		Source:   line.Source{Type: "user", UserID: userID},
		Postback: &line.Postback{Data: line.OpenFormPostbackData},
	}
}

func notFoundRepo() *mockRegistrationRepository {
	return &mockRegistrationRepository{
		GetRegistrationByExternalUserIDFunc: func(ctx context.Context, externalUserID string) (registration.Registration, error) {
			return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("not found", nil)
		},
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	return Config{
		FormURL:  "https://example.com/register",
		Location: tokyo,
		Timeout:  time.Second,
	}
}

func newTestDispatcher(t *testing.T, repo registration.Repository, messenger Messenger, m *metrics.Metrics) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(repo, messenger, testConfig(t), noopLogger, m)
	require.NoError(t, err)
	return d
}

func buttons(t *testing.T, msg line.Message) (*messaging_api.TemplateMessage, *messaging_api.ButtonsTemplate) {
	t.Helper()
	tmpl, ok := msg.(*messaging_api.TemplateMessage)
	require.True(t, ok, "expected a template message, got %T", msg)
	bt, ok := tmpl.Template.(*messaging_api.ButtonsTemplate)
	require.True(t, ok, "expected a buttons template, got %T", tmpl.Template)
	return tmpl, bt
}

func actionURI(t *testing.T, action messaging_api.ActionInterface) string {
	t.Helper()
	uri, ok := action.(*messaging_api.UriAction)
	require.True(t, ok, "expected a URI action, got %T", action)
	return uri.Uri
}

func TestIsOpenFormTrigger(t *testing.T) {
	assert.True(t, IsOpenFormTrigger(openFormEvent("U1")))

	follow := openFormEvent("U1")
	follow.Type = line.EventTypeFollow
	assert.False(t, IsOpenFormTrigger(follow))

	otherData := openFormEvent("U1")
	otherData.Postback = &line.Postback{Data: "action=other"}
	assert.False(t, IsOpenFormTrigger(otherData))

	noPostback := openFormEvent("U1")
	noPostback.Postback = nil
	assert.False(t, IsOpenFormTrigger(noPostback))

	assert.False(t, IsOpenFormTrigger(openFormEvent("")))
}

func TestHandleEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("unregistered user gets the form deep link", func(t *testing.T) {
		messenger := &mockMessenger{}
		d := newTestDispatcher(t, notFoundRepo(), messenger, nil)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U999")})

		require.Len(t, messenger.pushed, 1)
		assert.Equal(t, "U999", messenger.pushed[0].to)
		msg, bt := buttons(t, messenger.pushed[0].messages[0])
		assert.Equal(t, "登録フォームを開く", msg.AltText)
		require.Len(t, bt.Actions, 1)

		link, err := url.Parse(actionURI(t, bt.Actions[0]))
		require.NoError(t, err)
		assert.Equal(t, "example.com", link.Host)
		assert.Equal(t, "U999", link.Query().Get("lineUserId"))
	})

	t.Run("registered user gets the already registered message", func(t *testing.T) {
		messenger := &mockMessenger{}
		repo := &mockRegistrationRepository{
			GetRegistrationByExternalUserIDFunc: func(ctx context.Context, externalUserID string) (registration.Registration, error) {
				return registration.Registration{
					ID:             uuid.New(),
					NameKanji:      "山田 太郎",
					ExternalUserID: externalUserID,
					// 2025-03-31 20:00 UTC is already April 1st in Tokyo.
					CreatedAt: time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		d := newTestDispatcher(t, repo, messenger, nil)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U123")})

		require.Len(t, messenger.pushed, 1)
		msg, bt := buttons(t, messenger.pushed[0].messages[0])
		assert.Equal(t, "登録情報の更新", msg.AltText)
		assert.True(t, strings.HasPrefix(bt.Text, "山田 太郎 様"))
		assert.Contains(t, bt.Text, "登録日: 2025/4/1")
		assert.Contains(t, actionURI(t, bt.Actions[0]), "lineUserId=U123")
	})

	t.Run("a long stored name still fits the buttons text", func(t *testing.T) {
		messenger := &mockMessenger{}
		repo := &mockRegistrationRepository{
			GetRegistrationByExternalUserIDFunc: func(ctx context.Context, externalUserID string) (registration.Registration, error) {
				return registration.Registration{
					ID:             uuid.New(),
					NameKanji:      strings.Repeat("山", 200),
					ExternalUserID: externalUserID,
					CreatedAt:      time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		d := newTestDispatcher(t, repo, messenger, nil)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U123")})

		require.Len(t, messenger.pushed, 1)
		_, bt := buttons(t, messenger.pushed[0].messages[0])
		assert.LessOrEqual(t, utf8.RuneCountInString(bt.Text), 160)
	})

	t.Run("non trigger events are ignored", func(t *testing.T) {
		messenger := &mockMessenger{}
		repo := &mockRegistrationRepository{
			GetRegistrationByExternalUserIDFunc: func(ctx context.Context, externalUserID string) (registration.Registration, error) {
				t.Fatal("lookup should not happen for non trigger events")
				return registration.Registration{}, nil
			},
		}
		d := newTestDispatcher(t, repo, messenger, nil)

		follow := openFormEvent("U1")
		follow.Type = line.EventTypeFollow
		d.HandleEvents(ctx, []line.Event{follow, {Type: line.EventTypeMessage}})

		assert.Empty(t, messenger.pushed)
	})

	t.Run("a failed push does not stop the batch", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		messenger := &mockMessenger{
			PushMessageFunc: func(ctx context.Context, to string, messages ...line.Message) error {
				if to == "U1" {
					return errors.New("line is down")
				}
				return nil
			},
		}
		d := newTestDispatcher(t, notFoundRepo(), messenger, m)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U1"), openFormEvent("U2")})

		require.Len(t, messenger.pushed, 2)
		assert.Equal(t, "U2", messenger.pushed[1].to)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues(TemplateOpenForm, metrics.DispatchFailed)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues(TemplateOpenForm, metrics.DispatchSent)))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues(line.EventTypePostback)))
	})

	t.Run("a failed lookup skips the event", func(t *testing.T) {
		messenger := &mockMessenger{}
		calls := 0
		repo := &mockRegistrationRepository{
			GetRegistrationByExternalUserIDFunc: func(ctx context.Context, externalUserID string) (registration.Registration, error) {
				calls++
				if externalUserID == "U1" {
					return registration.Registration{}, errors.New("dynamo is down")
				}
				return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("not found", nil)
			},
		}
		d := newTestDispatcher(t, repo, messenger, nil)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U1"), openFormEvent("U2")})

		assert.Equal(t, 2, calls)
		require.Len(t, messenger.pushed, 1)
		assert.Equal(t, "U2", messenger.pushed[0].to)
	})

	t.Run("each event gets its own deadline", func(t *testing.T) {
		var deadlines []time.Time
		messenger := &mockMessenger{
			PushMessageFunc: func(ctx context.Context, to string, messages ...line.Message) error {
				deadline, ok := ctx.Deadline()
				require.True(t, ok)
				deadlines = append(deadlines, deadline)
				return nil
			},
		}
		d := newTestDispatcher(t, notFoundRepo(), messenger, nil)

		d.HandleEvents(ctx, []line.Event{openFormEvent("U1"), openFormEvent("U2")})

		require.Len(t, deadlines, 2)
		assert.False(t, deadlines[1].Before(deadlines[0]))
	})

	t.Run("slow pushes are bounded by the batch deadline", func(t *testing.T) {
		messenger := &mockMessenger{
			PushMessageFunc: func(ctx context.Context, to string, messages ...line.Message) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}
		cfg := testConfig(t)
		cfg.BatchTimeout = 100 * time.Millisecond
		d, err := NewDispatcher(notFoundRepo(), messenger, cfg, noopLogger, nil)
		require.NoError(t, err)

		start := time.Now()
		d.HandleEvents(ctx, []line.Event{openFormEvent("U1"), openFormEvent("U2"), openFormEvent("U3"), openFormEvent("U4")})

		// Four events at a one second per event timeout would take four seconds.
		assert.Less(t, time.Since(start), cfg.Timeout)
		assert.Len(t, messenger.pushed, 4)
	})
}

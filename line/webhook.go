package line

import (
	"errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

const (
	SignatureHeader = "X-Line-Signature"

	EventTypePostback = "postback"
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
	EventTypeMessage  = "message"
)

type WebhookPayload struct {
	Destination string
	Events      []Event
}

// Event is the part of a webhook event the bot acts on.
type Event struct {
	Type           string
	WebhookEventID string
	Source         Source
	Postback       *Postback
}

type Source struct {
	Type   string
	UserID string
}

type Postback struct {
	Data string
}

// ParseRequest verifies the X-Line-Signature of r against channelSecret and
// decodes its events.
func ParseRequest(channelSecret string, r *http.Request) (WebhookPayload, error) {
	cb, err := webhook.ParseRequest(channelSecret, r)
	if errors.Is(err, webhook.ErrInvalidSignature) {
		return WebhookPayload{}, NewInvalidSignatureError(err)
	}
	if err != nil {
		return WebhookPayload{}, NewInvalidPayloadError("Failed to decode webhook body", err)
	}

	events := make([]Event, 0, len(cb.Events))
	for _, e := range cb.Events {
		events = append(events, fromWebhookEvent(e))
	}
	return WebhookPayload{Destination: cb.Destination, Events: events}, nil
}

func fromWebhookEvent(e webhook.EventInterface) Event {
	switch e := e.(type) {
	case webhook.PostbackEvent:
		event := Event{
			Type:           EventTypePostback,
			WebhookEventID: e.WebhookEventId,
			Source:         fromWebhookSource(e.Source),
		}
		if e.Postback != nil {
			event.Postback = &Postback{Data: e.Postback.Data}
		}
		return event
	case webhook.FollowEvent:
		return Event{Type: EventTypeFollow, WebhookEventID: e.WebhookEventId, Source: fromWebhookSource(e.Source)}
	case webhook.UnfollowEvent:
		return Event{Type: EventTypeUnfollow, WebhookEventID: e.WebhookEventId, Source: fromWebhookSource(e.Source)}
	case webhook.MessageEvent:
		return Event{Type: EventTypeMessage, WebhookEventID: e.WebhookEventId, Source: fromWebhookSource(e.Source)}
	default:
		return Event{Type: e.GetType()}
	}
}

func fromWebhookSource(s webhook.SourceInterface) Source {
	switch s := s.(type) {
	case webhook.UserSource:
		return Source{Type: "user", UserID: s.UserId}
	case webhook.GroupSource:
		return Source{Type: "group", UserID: s.UserId}
	case webhook.RoomSource:
		return Source{Type: "room", UserID: s.UserId}
	default:
		return Source{}
	}
}

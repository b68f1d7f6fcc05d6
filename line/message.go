package line

import (
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Message is an outbound Messaging API message object.
type Message = messaging_api.MessageInterface

const (
	maxButtonsText    = 160
	maxButtonsAltText = 400
)

// NewButtonsMessage builds a buttons template message. altText is what
// clients without template support (and push notifications) display. Text
// past the Messaging API limits is cut so the push is not rejected.
func NewButtonsMessage(altText, text string, actions ...messaging_api.ActionInterface) *messaging_api.TemplateMessage {
	return &messaging_api.TemplateMessage{
		AltText: truncate(altText, maxButtonsAltText),
		Template: &messaging_api.ButtonsTemplate{
			Text:    truncate(text, maxButtonsText),
			Actions: actions,
		},
	}
}

func NewURIAction(label, uri string) *messaging_api.UriAction {
	return &messaging_api.UriAction{Label: label, Uri: uri}
}

func NewPostbackAction(label, data, displayText string) *messaging_api.PostbackAction {
	return &messaging_api.PostbackAction{Label: label, Data: data, DisplayText: displayText}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

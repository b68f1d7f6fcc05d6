package main

import (
	"context"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/line-registration/api"
	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/notify"
)

var _ notify.Messenger = &MessageLogger{}

// notify.Messenger that logs out the message contents for local dev
type MessageLogger struct {
	logger *slog.Logger
}

func (ml *MessageLogger) PushMessage(ctx context.Context, to string, messages ...line.Message) error {
	ml.logger.Info("message that would be pushed", slog.String("to", to), slog.Any("messages", messages))

	return nil
}

func createMessenger(logger *slog.Logger, env api.Environment, client *line.Client) notify.Messenger {
	if env == api.LOCAL {
		return &MessageLogger{logger: logger}
	}

	return client
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/line-registration/line"
)

const webhookPath = "POST /webhook/inbound"

// lineWebhookMiddleware serves the LINE webhook ahead of request validation,
// since the signature has to be checked against the raw body.
func (a *API) lineWebhookMiddleware(path string) middlewareFunc {
	server := http.NewServeMux()

	server.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logger := a.getLoggerOrBaseLogger(ctx)

		signature := r.Header.Get(line.SignatureHeader)
		if signature == "" {
			logger.Warn("LINE webhook without signature")
			a.writeError(w, r, http.StatusBadRequest, MissingSignature, "Missing "+line.SignatureHeader+" header")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		webhook, err := line.ParseRequest(a.settings.ChannelSecret, r)
		if err != nil {
			var lineErr *line.Error
			if errors.As(err, &lineErr) && lineErr.Reason == line.REASON_INVALID_SIGNATURE {
				logger.Warn("LINE webhook signature mismatch")
				a.writeError(w, r, http.StatusUnauthorized, InvalidSignature, "Signature does not match body")
				return
			}
			// Acknowledge anyway, LINE would only redeliver the same body.
			logger.Error("Failed to parse LINE webhook", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusOK)
			return
		}

		logger.Info("LINE webhook received", slog.Int("events", len(webhook.Events)))

		w.WriteHeader(http.StatusOK)

		// Pushes run after the acknowledgement and outlive the request.
		a.background.Go(func() {
			a.dispatcher.HandleEvents(context.WithoutCancel(ctx), webhook.Events)
		})
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler, matchedPath := server.Handler(r)

			if matchedPath == "" {
				next.ServeHTTP(w, r)
				return
			}

			handler.ServeHTTP(w, r)
		})
	}
}

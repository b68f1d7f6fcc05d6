package api

import (
	"context"
	"log/slog"

	"google.golang.org/api/idtoken"
)

type ctxKey string

const (
	ctxLoggerKey ctxKey = "LOGGER"
	ctxJWTKey    ctxKey = "JWT"
)

func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

func getLoggerFromCtx(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(ctxLoggerKey).(*slog.Logger)
	return logger, ok
}

// getLoggerOrBaseLogger returns the request scoped logger, falling back to
// the API's base logger outside of a request.
func (a *API) getLoggerOrBaseLogger(ctx context.Context) *slog.Logger {
	if logger, ok := getLoggerFromCtx(ctx); ok {
		return logger
	}
	return a.logger
}

func ctxWithJWT(ctx context.Context, jwt *idtoken.Payload) context.Context {
	return context.WithValue(ctx, ctxJWTKey, jwt)
}

func getJWTFromCtx(ctx context.Context) *idtoken.Payload {
	jwt, _ := ctx.Value(ctxJWTKey).(*idtoken.Payload)
	return jwt
}

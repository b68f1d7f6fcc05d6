package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/International-Combat-Archery-Alliance/line-registration/api"
	"github.com/International-Combat-Archery-Alliance/line-registration/dynamo"
	"github.com/International-Combat-Archery-Alliance/line-registration/identity"
	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/metrics"
	"github.com/International-Combat-Archery-Alliance/line-registration/notify"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/idtoken"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := parseConfig(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}

	env, _ := cfg.Environment()
	logger := createLogger(env)

	err = run(ctx, cfg, env, logger)
	if err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func createLogger(env api.Environment) *slog.Logger {
	if env == api.PROD {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(ctx context.Context, cfg Config, env api.Environment, logger *slog.Logger) error {
	awsCfg, err := loadAWSConfig(ctx, cfg, env)
	if err != nil {
		return err
	}

	if env == api.PROD {
		err = loadLineSecrets(ctx, ssm.NewFromConfig(awsCfg), &cfg)
		if err != nil {
			return fmt.Errorf("failed to load LINE secrets: %w", err)
		}
	} else if missing := cfg.missingLineSecrets(); len(missing) > 0 {
		logger.Warn("LINE credentials not set, related features will fail", slog.Any("missing", missing))
	}

	db := dynamo.NewDB(dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), cfg.DynamoTableName)

	if cfg.DynamoCreateTable {
		err = db.EnsureTable(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %q: %w", cfg.DynamoTableName, err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	httpClient := &http.Client{Timeout: cfg.LineHTTPTimeout}
	lineClient, err := line.NewClient(httpClient, cfg.LineBotChannelAccessToken)
	if err != nil {
		return fmt.Errorf("failed to create LINE client: %w", err)
	}
	loginClient := line.NewLoginClient(httpClient, line.LoginConfig{
		ChannelID:     cfg.LineLoginChannelID,
		ChannelSecret: cfg.LineLoginChannelSecret,
		RedirectURL:   cfg.LoginRedirectURL(),
	})

	dispatcher, err := notify.NewDispatcher(db, createMessenger(logger, env, lineClient), notify.Config{
		FormURL:      cfg.BaseURL,
		Location:     cfg.DisplayLocation(),
		Timeout:      cfg.LineHTTPTimeout,
		BatchTimeout: cfg.LineWebhookBatchTimeout,
	}, logger, m)
	if err != nil {
		return err
	}

	googleIdVerifier, err := idtoken.NewValidator(ctx)
	if err != nil {
		return fmt.Errorf("failed to create google id token validator: %w", err)
	}

	registrationAPI := api.NewAPI(db, logger, api.Settings{
		Env:             env,
		FormURL:         cfg.BaseURL,
		AllowedOrigins:  cfg.AllowedOrigins,
		ChannelSecret:   cfg.LineBotChannelSecret,
		AdminDomain:     cfg.AdminDomain,
		GoogleAudience:  cfg.GoogleAudience,
		DisplayLocation: cfg.DisplayLocation(),
	}, api.Services{
		Resolver:         identity.NewResolver(loginClient, lineClient),
		Login:            loginClient,
		Profiles:         lineClient,
		Dispatcher:       dispatcher,
		RichMenus:        lineClient,
		GoogleIdVerifier: googleIdVerifier,
	}, m)

	handler, err := registrationAPI.Handler(registry)
	if err != nil {
		return err
	}

	s := &http.Server{
		Handler:           handler,
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", s.Addr))
		serverErr <- s.ListenAndServe()
	}()

	select {
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = s.Shutdown(shutdownCtx)

	// Let acknowledged webhook batches finish their pushes.
	registrationAPI.Wait()

	return err
}

func loadAWSConfig(ctx context.Context, cfg Config, env api.Environment) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if env == api.LOCAL && cfg.DynamoEndpoint != "" {
		opts = append(opts,
			config.WithRegion("localhost"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
		)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to get aws config: %w", err)
	}
	return awsCfg, nil
}

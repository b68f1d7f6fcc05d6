package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/api"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"LOCAL"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"8080"`

	// BaseURL is the public URL of the registration form.
	BaseURL        string   `env:"BASE_URL,required"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	LineBotChannelAccessToken string        `env:"LINE_BOT_CHANNEL_ACCESS_TOKEN"`
	LineBotChannelSecret      string        `env:"LINE_BOT_CHANNEL_SECRET"`
	LineLoginChannelID        string        `env:"LINE_LOGIN_CHANNEL_ID"`
	LineLoginChannelSecret    string        `env:"LINE_LOGIN_CHANNEL_SECRET"`
	LineHTTPTimeout           time.Duration `env:"LINE_HTTP_TIMEOUT" envDefault:"5s"`
	LineWebhookBatchTimeout   time.Duration `env:"LINE_WEBHOOK_BATCH_TIMEOUT" envDefault:"30s"`

	DynamoTableName   string `env:"DYNAMO_TABLE_NAME" envDefault:"LineRegistration"`
	DynamoEndpoint    string `env:"DYNAMO_ENDPOINT"`
	DynamoCreateTable bool   `env:"DYNAMO_CREATE_TABLE" envDefault:"false"`

	AdminDomain    string `env:"ADMIN_DOMAIN"`
	GoogleAudience string `env:"GOOGLE_AUDIENCE"`

	DisplayTimezone    string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Tokyo"`
	SSMParameterPrefix string `env:"SSM_PARAMETER_PREFIX" envDefault:"/line-registration/"`
}

// parseConfig reads the config from environ, or from the process
// environment when environ is nil.
func parseConfig(environ map[string]string) (Config, error) {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	_, err = cfg.Environment()
	if err != nil {
		return Config{}, err
	}

	_, err = time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.DisplayTimezone, err)
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{strings.TrimSuffix(cfg.BaseURL, "/")}
	}

	return cfg, nil
}

func (c Config) Environment() (api.Environment, error) {
	switch strings.ToUpper(c.Env) {
	case "LOCAL":
		return api.LOCAL, nil
	case "PROD":
		return api.PROD, nil
	default:
		return api.LOCAL, fmt.Errorf("unknown ENV %q, expected LOCAL or PROD", c.Env)
	}
}

func (c Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) LoginRedirectURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/external-login"
}

// missingLineSecrets lists the LINE credentials still unset.
func (c Config) missingLineSecrets() []string {
	var missing []string
	for _, s := range c.lineSecrets() {
		if *s.value == "" {
			missing = append(missing, s.name)
		}
	}
	return missing
}

type lineSecret struct {
	name  string
	value *string
}

func (c *Config) lineSecrets() []lineSecret {
	return []lineSecret{
		{name: "line-bot-channel-access-token", value: &c.LineBotChannelAccessToken},
		{name: "line-bot-channel-secret", value: &c.LineBotChannelSecret},
		{name: "line-login-channel-secret", value: &c.LineLoginChannelSecret},
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	PlatformSlack    = "slack"
	PlatformTelegram = "telegram"
	PlatformEmail    = "email"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env            string `env:"ENVIRONMENT" envDefault:"production"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`

	BotToken string `env:"BOT_TOKEN"`
	Platform string `env:"NOTIFIER_PLATFORM" envDefault:"slack"`

	Feed struct {
		BaseURL  string        `env:"BASE_URL" envDefault:"https://rentahuman.ai/api"`
		APIKey   string        `env:"API_KEY"`
		LinkBase string        `env:"LINK_BASE" envDefault:"https://rentahuman.ai/bounties"`
		Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
	} `envPrefix:"FEED_"`

	Poller struct {
		IntervalSecs int           `env:"POLL_INTERVAL" envDefault:"60"`
		SendTimeout  time.Duration `env:"SEND_TIMEOUT" envDefault:"15s"`
		SendRetries  int           `env:"SEND_RETRIES" envDefault:"2"`
		SendRate     float64       `env:"SEND_RATE_PER_SEC" envDefault:"5"`
		Concurrency  int           `env:"DISPATCH_CONCURRENCY" envDefault:"5"`
	}

	Database struct {
		Driver string `env:"DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DSN" envDefault:"bountywatch.sqlite"`
	} `envPrefix:"DATABASE_"`

	RedisURL   string `env:"REDIS_URL"`
	StatsdAddr string `env:"STATSD_ADDR"`

	Mailgun struct {
		Domain      string `env:"DOMAIN"`
		APIKey      string `env:"API_KEY"`
		SenderFrom  string `env:"SENDER_FROM" envDefault:"bountywatch <noreply@bountywatch.local>"`
		TimeoutSecs int    `env:"TIMEOUT_SECS" envDefault:"10"`
	} `envPrefix:"MAILGUN_"`

	log   *zap.Logger
	creds map[string]string
}

// ConfigurationError means the process cannot start with the given environment.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfig(log *zap.Logger) (*Config, error) {
	// A missing .env is fine; the real environment always wins.
	_ = godotenv.Load()

	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env == "development" {
			cfg.log.Sugar().Warnf("%s (credentials will be set to default in development env)", err)
			creds = map[string]string{"admin": "password"}
		} else {
			return nil, &ConfigurationError{Field: "BASIC_AUTH_CREDS", Err: err}
		}
	}
	cfg.creds = creds

	return cfg, nil
}

func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return &ConfigurationError{Field: "BOT_TOKEN", Err: errors.New("BOT_TOKEN envvar must be populated")}
	}

	switch cfg.Platform {
	case PlatformSlack, PlatformTelegram:
	case PlatformEmail:
		if cfg.Mailgun.Domain == "" || cfg.Mailgun.APIKey == "" {
			return &ConfigurationError{Field: "MAILGUN_DOMAIN", Err: errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the email platform")}
		}
		if cfg.Mailgun.TimeoutSecs <= 0 {
			return &ConfigurationError{Field: "MAILGUN_TIMEOUT_SECS", Err: errors.New("must be a positive number of seconds")}
		}
	default:
		return &ConfigurationError{Field: "NOTIFIER_PLATFORM", Err: fmt.Errorf("unsupported platform %q", cfg.Platform)}
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return &ConfigurationError{Field: "DATABASE_DRIVER", Err: fmt.Errorf("unsupported driver %q", cfg.Database.Driver)}
	}

	if cfg.Poller.IntervalSecs <= 0 {
		return &ConfigurationError{Field: "POLL_INTERVAL", Err: errors.New("must be a positive number of seconds")}
	}
	if cfg.Poller.Concurrency <= 0 {
		cfg.Poller.Concurrency = 1
	}
	if cfg.Poller.SendRetries < 0 {
		cfg.Poller.SendRetries = 0
	}
	return nil
}

func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.Poller.IntervalSecs) * time.Second
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}

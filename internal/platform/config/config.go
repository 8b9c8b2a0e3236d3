// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"trialgate/pkg/platform/middleware/metadata"
	pstrings "trialgate/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Env          string `env:"APP_ENV" env-default:"production"`
	Server       Server
	Postgres     PostgresConfig
	Redis        RedisConfig
	Trial        Trial
	Reputation   Reputation
	Identity     Identity
	Telegram     Telegram
	Notify       Notify
	Housekeeping Housekeeping
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	APISecret       string        `env:"API_SECRET"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`
}

// PostgresConfig selects the record store. An empty DSN uses the in-memory store.
type PostgresConfig struct {
	DSN          string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" env-default:"5"`
}

// RedisConfig selects the rate-limit store. An empty URL uses in-memory counters.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
}

// Missing ended_at policies for legacy UsedTrial records.
const (
	MissingEndedAtBlock    = "block"
	MissingEndedAtFallback = "fallback"
)

// Trial holds lifecycle policy knobs.
type Trial struct {
	TimezoneOffsetHours    float64       `env:"TIMEZONE_OFFSET_HOURS" env-default:"0"`
	Cooldown               time.Duration `env:"TRIAL_COOLDOWN" env-default:"720h"`
	InviteExpiry           time.Duration `env:"INVITE_LINK_EXPIRY" env-default:"5h"`
	BlockedPhonePrefixes   []string      `env:"BLOCKED_PHONE_PREFIXES" env-separator:"," env-default:"+91"`
	BlockedCountries       []string      `env:"BLOCKED_COUNTRIES" env-separator:","`
	MissingEndedAtPolicy   string        `env:"MISSING_ENDED_AT_POLICY" env-default:"block"`
	MissingEndedAtFallback time.Duration `env:"MISSING_ENDED_AT_FALLBACK" env-default:"720h"`
	RecordSigningKey       string        `env:"RECORD_SIGNING_KEY"`
	MaxRecordAge           time.Duration `env:"MAX_RECORD_AGE" env-default:"720h"`
	TransportTimeout       time.Duration `env:"TRANSPORT_TIMEOUT" env-default:"10s"`
	SweepInterval          time.Duration `env:"SWEEP_INTERVAL" env-default:"1h"`
	PendingTTL             time.Duration `env:"PENDING_TTL" env-default:"24h"`
	EngineActorID          int64         `env:"ENGINE_ACTOR_ID"`
}

// Reputation configures the ipapi.is lookup.
type Reputation struct {
	BaseURL  string        `env:"IPAPI_BASE_URL" env-default:"https://api.ipapi.is"`
	APIKeys  []string      `env:"IPAPI_KEYS" env-separator:","`
	Timeout  time.Duration `env:"IPAPI_TIMEOUT" env-default:"5s"`
	CacheTTL time.Duration `env:"IPAPI_CACHE_TTL" env-default:"1h"`
	FailOpen bool          `env:"REPUTATION_FAIL_OPEN" env-default:"true"`
}

// Identity configures identity-token verification.
type Identity struct {
	TokenSecret string        `env:"IDENTITY_TOKEN_SECRET"`
	MaxAge      time.Duration `env:"IDENTITY_TOKEN_MAX_AGE" env-default:"5m"`
	Leeway      time.Duration `env:"IDENTITY_TOKEN_LEEWAY" env-default:"60s"`

	// InitDataMaxAge bounds auth_date of the mini app launch payload.
	InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE" env-default:"5m"`
}

// Telegram configures the messaging transport.
type Telegram struct {
	BotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	APIURL    string `env:"TELEGRAM_API_URL" env-default:"https://api.telegram.org"`
	ChannelID int64  `env:"TRIAL_CHANNEL_ID"`
}

// Notification backends.
const (
	NotifyBackendLog      = "log"
	NotifyBackendKafka    = "kafka"
	NotifyBackendRabbitMQ = "rabbitmq"
)

// Notify configures where outbound notification requests are published.
type Notify struct {
	Backend       string   `env:"NOTIFY_BACKEND" env-default:"log"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" env-default:"trial-notifications"`
	AMQPURL       string   `env:"AMQP_URL"`
	AMQPExchange  string   `env:"AMQP_EXCHANGE" env-default:"notifications"`
	RatePerSecond float64  `env:"NOTIFY_RATE_PER_SECOND" env-default:"25"`
	Burst         int      `env:"NOTIFY_BURST" env-default:"5"`

	// Timeout bounds one notification, throttle wait included.
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" env-default:"2s"`
}

// Housekeeping configures the janitor.
type Housekeeping struct {
	Schedule     string        `env:"HOUSEKEEPING_SCHEDULE" env-default:"@every 1h"`
	InitialDelay time.Duration `env:"HOUSEKEEPING_INITIAL_DELAY" env-default:"5m"`
}

// MinSecretLength is the shortest accepted shared secret.
const MinSecretLength = 32

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Trial.BlockedPhonePrefixes = pstrings.PhonePrefixes(c.Trial.BlockedPhonePrefixes)
	c.Trial.BlockedCountries = pstrings.CountryCodes(c.Trial.BlockedCountries)
	c.Reputation.APIKeys = pstrings.CleanList(c.Reputation.APIKeys, nil)
	c.Notify.KafkaBrokers = pstrings.CleanList(c.Notify.KafkaBrokers, nil)
	c.Server.TrustedProxies = pstrings.CleanList(c.Server.TrustedProxies, nil)
}

// Validate rejects configurations the engine must not start with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Server.APISecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("API_SECRET must be at least %d characters", MinSecretLength))
	}
	switch c.Trial.MissingEndedAtPolicy {
	case MissingEndedAtBlock, MissingEndedAtFallback:
	default:
		errs = append(errs, fmt.Errorf("MISSING_ENDED_AT_POLICY must be %q or %q", MissingEndedAtBlock, MissingEndedAtFallback))
	}
	if c.Trial.TimezoneOffsetHours < -14 || c.Trial.TimezoneOffsetHours > 14 {
		errs = append(errs, errors.New("TIMEZONE_OFFSET_HOURS must be within [-14, 14]"))
	}
	if c.Trial.Cooldown <= 0 || c.Trial.InviteExpiry <= 0 || c.Trial.SweepInterval <= 0 {
		errs = append(errs, errors.New("TRIAL_COOLDOWN, INVITE_LINK_EXPIRY and SWEEP_INTERVAL must be positive"))
	}
	if n := len(c.Trial.RecordSigningKey); n < MinSecretLength || n > 64 {
		errs = append(errs, errors.New("RECORD_SIGNING_KEY must be between 32 and 64 bytes"))
	}
	if c.Identity.TokenSecret == "" {
		errs = append(errs, errors.New("IDENTITY_TOKEN_SECRET is required"))
	}
	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if _, err := metadata.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	switch c.Notify.Backend {
	case NotifyBackendLog:
	case NotifyBackendKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka backend"))
		}
	case NotifyBackendRabbitMQ:
		if c.Notify.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the rabbitmq backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notify.Backend))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}

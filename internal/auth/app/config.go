package app

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Issuer      string        // Issuer claim for tokens (default: inkwell-auth)
	SigningKeys string        // "kid:secret[,kid:secret]"; the first key signs. Required outside dev
	AccessTTL   time.Duration // Access token lifetime (default: 192h)
	RefreshTTL  time.Duration // Refresh token lifetime (default: 720h)

	BcryptCost    int    // bcrypt cost, clamped to at least 12 (default: 12)
	PepperFile    string // Pepper for password hashing, generated when missing (default: ./data/pepper)
	MasterKeyFile string // Key sealing TOTP secrets. Empty means ephemeral, dev only

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: ./data/auth.db)
	DatabaseURL    string // PostgreSQL DSN, required for postgres
	RedisURL       string // Optional: revocation set in Redis instead of the database

	MailProvider   string // log, sendgrid or smtp (default: log)
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int // (default: 587)
	SMTPUser       string
	SMTPPassword   string
	MailFromEmail  string // (default: no-reply@inkwell.local)
	MailFromName   string // (default: Inkwell)
	MailQueueSize  int    // Pending mails before new ones are dropped (default: 256)
	FrontendURL    string // Base of links in mails (default: http://localhost:3000)

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	TelegramBotToken   string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	RateLimits     httpx.RateLimitProfiles // RATELIMIT_STRICT/MODERATE/LENIENT in requests per minute
	TrustedProxies string                  // CIDRs whose X-Forwarded-For is believed (default: none)
}

// LoadConfig reads an optional .env file and then the environment.
// Environment variables win over .env entries.
func LoadConfig() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("AUTH_ISSUER", "inkwell-auth")
	v.SetDefault("AUTH_SIGNING_KEYS", "")
	v.SetDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL)
	v.SetDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL)
	v.SetDefault("AUTH_BCRYPT_COST", cryptox.DefaultBcryptCost)
	v.SetDefault("AUTH_PEPPER_FILE", "data/pepper")
	v.SetDefault("AUTH_MASTER_KEY_FILE", "")
	v.SetDefault("AUTH_DATABASE_DRIVER", "sqlite")
	v.SetDefault("AUTH_DATABASE_FILE", "data/auth.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM_EMAIL", "no-reply@inkwell.local")
	v.SetDefault("MAIL_FROM_NAME", "Inkwell")
	v.SetDefault("MAIL_QUEUE_SIZE", 256)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second)
	v.SetDefault("HOUSEKEEPING_INTERVAL", time.Hour)

	limits := httpx.DefaultRateLimitProfiles()
	v.SetDefault("RATELIMIT_STRICT", limits.Strict.RequestsPerWindow)
	v.SetDefault("RATELIMIT_MODERATE", limits.Moderate.RequestsPerWindow)
	v.SetDefault("RATELIMIT_LENIENT", limits.Lenient.RequestsPerWindow)
	v.SetDefault("TRUSTED_PROXIES", "")

	v.AutomaticEnv()

	// Validate reports a malformed list.
	proxies, _ := httpx.ParseTrustedProxies(v.GetString("TRUSTED_PROXIES"))

	return Config{
		Issuer:      v.GetString("AUTH_ISSUER"),
		SigningKeys: v.GetString("AUTH_SIGNING_KEYS"),
		AccessTTL:   v.GetDuration("AUTH_ACCESS_TTL"),
		RefreshTTL:  v.GetDuration("AUTH_REFRESH_TTL"),

		BcryptCost:    max(v.GetInt("AUTH_BCRYPT_COST"), cryptox.DefaultBcryptCost),
		PepperFile:    v.GetString("AUTH_PEPPER_FILE"),
		MasterKeyFile: v.GetString("AUTH_MASTER_KEY_FILE"),

		DatabaseDriver: strings.ToLower(v.GetString("AUTH_DATABASE_DRIVER")),
		DatabaseFile:   v.GetString("AUTH_DATABASE_FILE"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURL:       v.GetString("REDIS_URL"),

		MailProvider:   strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetInt("SMTP_PORT"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPassword:   v.GetString("SMTP_PASSWORD"),
		MailFromEmail:  v.GetString("MAIL_FROM_EMAIL"),
		MailFromName:   v.GetString("MAIL_FROM_NAME"),
		MailQueueSize:  v.GetInt("MAIL_QUEUE_SIZE"),
		FrontendURL:    v.GetString("FRONTEND_URL"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		TelegramBotToken:   v.GetString("TELEGRAM_BOT_TOKEN"),

		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		Port:                 v.GetInt("PORT"),
		ShutdownGracePeriod:  v.GetDuration("SHUTDOWN_GRACE_PERIOD"),
		HousekeepingInterval: v.GetDuration("HOUSEKEEPING_INTERVAL"),

		RateLimits: httpx.RateLimitProfiles{
			Strict:   perMinute(v.GetInt("RATELIMIT_STRICT"), proxies),
			Moderate: perMinute(v.GetInt("RATELIMIT_MODERATE"), proxies),
			Lenient:  perMinute(v.GetInt("RATELIMIT_LENIENT"), proxies),
		},
		TrustedProxies: v.GetString("TRUSTED_PROXIES"),
	}
}

func perMinute(n int, proxies []netip.Prefix) httpx.RateLimitConfig {
	n = max(n, 1)
	return httpx.RateLimitConfig{RequestsPerWindow: n, Window: time.Minute, Burst: n, TrustedProxies: proxies}
}

// IsDev reports whether the service runs in development mode, which
// relaxes key and transport requirements.
func (c Config) IsDev() bool { return c.Env == "dev" }

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.SigningKeys == "" && !c.IsDev() {
		errs = append(errs, errors.New("AUTH_SIGNING_KEYS is required outside dev"))
	}
	if c.MasterKeyFile == "" && !c.IsDev() {
		errs = append(errs, errors.New("AUTH_MASTER_KEY_FILE is required outside dev"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for sqlite"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.MailProvider {
	case "log":
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required for sendgrid"))
		}
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider))
	}

	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}

	return errors.Join(errs...)
}

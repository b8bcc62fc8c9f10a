package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// AuthScheme selects how the Authorization header is built. Exactly one
// scheme is active per deployment revision.
type AuthScheme string

const (
	AuthSchemeBearer AuthScheme = "bearer"
	AuthSchemeBasic  AuthScheme = "basic"
)

// Config holds all application configuration
type Config struct {
	// Backend endpoints
	APIBaseURL string // e.g. http://localhost:8080
	WSURL      string // e.g. ws://localhost:8080/ws

	// APIVersion is the version segment for the auth and users endpoints
	// ("v1" or empty). Bars and transactions are always unversioned.
	APIVersion string

	// Authentication
	AuthScheme AuthScheme

	// Session storage directory (defaults to ~/.barpoints)
	SessionDir string

	// Payment settings
	PaymentAmount int64 // fixed per-payment amount in RON

	// RedeemConfirmDelay stands in for the not-yet-implemented redemption
	// endpoint's round trip.
	RedeemConfirmDelay time.Duration

	// PollInterval is how often the fallback poller refreshes the profile
	// when the realtime channel is unavailable.
	PollInterval time.Duration

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		APIBaseURL: os.Getenv("API_BASE_URL"),
		WSURL:      os.Getenv("WS_URL"),
		APIVersion: "v1",
		AuthScheme: AuthSchemeBearer,
		SessionDir: os.Getenv("SESSION_DIR"),

		// Defaults
		PaymentAmount:      50,
		RedeemConfirmDelay: 1500 * time.Millisecond,
		PollInterval:       15 * time.Second,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.APIBaseURL == "" {
		config.APIBaseURL = "http://localhost:8080"
	}
	if config.WSURL == "" {
		config.WSURL = "ws://localhost:8080/ws"
	}

	if v, ok := os.LookupEnv("API_VERSION"); ok {
		config.APIVersion = v
	}

	if scheme := os.Getenv("AUTH_SCHEME"); scheme != "" {
		switch AuthScheme(scheme) {
		case AuthSchemeBearer, AuthSchemeBasic:
			config.AuthScheme = AuthScheme(scheme)
		default:
			return nil, fmt.Errorf("unknown AUTH_SCHEME: %s", scheme)
		}
	}

	if amount := os.Getenv("PAYMENT_AMOUNT"); amount != "" {
		if parsedAmount, err := strconv.ParseInt(amount, 10, 64); err == nil {
			config.PaymentAmount = parsedAmount
		}
	}
	if delay := os.Getenv("REDEEM_CONFIRM_DELAY_MS"); delay != "" {
		if ms, err := strconv.ParseInt(delay, 10, 64); err == nil {
			config.RedeemConfirmDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if interval := os.Getenv("POLL_INTERVAL_SECONDS"); interval != "" {
		if secs, err := strconv.ParseInt(interval, 10, 64); err == nil {
			config.PollInterval = time.Duration(secs) * time.Second
		}
	}

	if config.SessionDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		config.SessionDir = home + "/.barpoints"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	return config, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const insecureSessionSecret = "solar-default-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`

	// Observability. Empty disables span export.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	StorageBucket      string `env:"STORAGE_BUCKET" envDefault:"energy-bills"`

	// Session
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"solar-default-dev-secret-change-me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	ReferralTTL   time.Duration `env:"REFERRAL_TTL" envDefault:"720h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`

	// Leads
	DefaultCommissionRate  decimal.Decimal `env:"DEFAULT_COMMISSION_RATE" envDefault:"40.00"`
	MaxUploadBytes         int64           `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	LeadStatusPolicy       string          `env:"LEAD_STATUS_POLICY" envDefault:"free"`
	CleanupOrphanedUploads bool            `env:"CLEANUP_ORPHANED_UPLOADS" envDefault:"false"`
	LeadCacheTTL           time.Duration   `env:"LEAD_CACHE_TTL" envDefault:"5m"`

	// Scraper
	ScraperEnabled        bool          `env:"SCRAPER_ENABLED" envDefault:"true"`
	ScraperMaxConcurrency int           `env:"SCRAPER_MAX_CONCURRENCY" envDefault:"2"`
	ScraperWaitTimeout    time.Duration `env:"SCRAPER_WAIT_TIMEOUT" envDefault:"10s"`
	ScraperBrowserBin     string        `env:"SCRAPER_BROWSER_BIN"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for i, o := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimSpace(o)
	}
	return cfg, nil
}

// Validate checks required settings and rejects insecure defaults.
// ALLOW_INSECURE_DEFAULTS=true relaxes the session secret checks only.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.DefaultCommissionRate.IsNegative() || c.DefaultCommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("DEFAULT_COMMISSION_RATE must be between 0 and 100")
	}
	switch c.LeadStatusPolicy {
	case "", "free", "terminal":
	default:
		return fmt.Errorf("LEAD_STATUS_POLICY must be free or terminal, got %q", c.LeadStatusPolicy)
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.SessionSecret == insecureSessionSecret {
		return fmt.Errorf("SESSION_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET is too short (%d chars); minimum 32 characters required", len(c.SessionSecret))
	}
	return nil
}

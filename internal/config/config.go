package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tiers    TierConfig     `yaml:"tiers"`
	Resolver ResolverConfig `yaml:"resolver"`
	Email    EmailConfig    `yaml:"email"`
	SES      SESConfig      `yaml:"ses"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the review API listener settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TierConfig holds the inclusive upper bound of each aging tier, in days
// past due. Anything above recently_due_max falls into the top tier.
type TierConfig struct {
	UpcomingMax    int `yaml:"upcoming_max"`
	RecentlyDueMax int `yaml:"recently_due_max"`
	MinLeadDays    int `yaml:"min_lead_days"`
}

// ResolverConfig holds contact-matching and recipient-selection settings
type ResolverConfig struct {
	FuzzyThreshold   float64           `yaml:"fuzzy_threshold"`
	HighTrustSources []string          `yaml:"high_trust_sources"`
	LowTrustSources  []string          `yaml:"low_trust_sources"`
	AlwaysCC         []string          `yaml:"always_cc"`
	HandlerEmails    map[string]string `yaml:"handler_emails"`
}

// EmailConfig holds draft composition settings
type EmailConfig struct {
	FromAddress  string `yaml:"from_address"`
	FromName     string `yaml:"from_name"`
	ReplyTo      string `yaml:"reply_to"`
	TemplateDir  string `yaml:"template_dir"`
	CooldownDays int    `yaml:"cooldown_days"`
}

// SESConfig holds AWS SES credentials and region
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	DryRun    bool   `yaml:"dry_run"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the recent-send guard settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IngestConfig holds the workbook locations
type IngestConfig struct {
	AgingReportPath   string `yaml:"aging_report_path"`
	ContactsPath      string `yaml:"contacts_path"`
	FallbackPath      string `yaml:"fallback_path"`
	AgingSheetName    string `yaml:"aging_sheet_name"`
	ContactsSheetName string `yaml:"contacts_sheet_name"`
	FallbackSheetName string `yaml:"fallback_sheet_name"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and parses the YAML config file, applies defaults, and
// validates the tier boundaries. A bad tier layout is a startup error, not
// something to discover mid-batch.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Tiers.UpcomingMax == 0 && cfg.Tiers.RecentlyDueMax == 0 {
		cfg.Tiers.UpcomingMax = 0
		cfg.Tiers.RecentlyDueMax = 29
	}
	if cfg.Tiers.MinLeadDays == 0 {
		cfg.Tiers.MinLeadDays = -7
	}
	if cfg.Resolver.FuzzyThreshold == 0 {
		cfg.Resolver.FuzzyThreshold = 0.70
	}
	if cfg.Email.CooldownDays == 0 {
		cfg.Email.CooldownDays = 7
	}
	if cfg.Email.TemplateDir == "" {
		cfg.Email.TemplateDir = "templates"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Ingest.AgingSheetName == "" {
		cfg.Ingest.AgingSheetName = "Sheet1"
	}
	if cfg.Ingest.ContactsSheetName == "" {
		cfg.Ingest.ContactsSheetName = "Sheet1"
	}
	if cfg.Ingest.FallbackSheetName == "" {
		cfg.Ingest.FallbackSheetName = "Sheet1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("FROM_ADDRESS"); v != "" {
		cfg.Email.FromAddress = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate rejects config a batch run cannot safely proceed with.
func (c *Config) Validate() error {
	if c.Tiers.RecentlyDueMax <= c.Tiers.UpcomingMax {
		return fmt.Errorf("tiers: recently_due_max (%d) must be greater than upcoming_max (%d)",
			c.Tiers.RecentlyDueMax, c.Tiers.UpcomingMax)
	}
	if c.Tiers.MinLeadDays > c.Tiers.UpcomingMax {
		return fmt.Errorf("tiers: min_lead_days (%d) must not exceed upcoming_max (%d)",
			c.Tiers.MinLeadDays, c.Tiers.UpcomingMax)
	}
	if c.Resolver.FuzzyThreshold <= 0 || c.Resolver.FuzzyThreshold > 1 {
		return fmt.Errorf("resolver: fuzzy_threshold %.2f must be in (0, 1]", c.Resolver.FuzzyThreshold)
	}
	if c.Email.CooldownDays < 0 {
		return fmt.Errorf("email: cooldown_days must not be negative")
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

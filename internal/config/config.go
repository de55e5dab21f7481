// Package config loads service settings from .env files, an optional
// backoffice.yaml and the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Mail      MailConfig      `mapstructure:"mail"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

type MailConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	Locale   string `mapstructure:"locale"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type PricingConfig struct {
	DownPaymentPercent int    `mapstructure:"down_payment_percent"`
	BudgetValidityDays int    `mapstructure:"budget_validity_days"`
	RulesFile          string `mapstructure:"rules_file"`
}

type WorkflowConfig struct {
	DeliveryLeadDays int `mapstructure:"delivery_lead_days"`
}

type CalendarConfig struct {
	ExtraHolidays []string `mapstructure:"extra_holidays"`
}

type SchedulerConfig struct {
	Timezone  string `mapstructure:"timezone"`
	DailySpec string `mapstructure:"daily_spec"`
}

type RateLimitConfig struct {
	PublicRPS float64 `mapstructure:"public_rps"`
	Burst     int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Defaults are applied before any file or environment value.
var Defaults = map[string]any{
	"env":                          "development",
	"server.port":                  3001,
	"server.base_url":              "http://localhost:3001",
	"server.allowed_origins":       []string{"http://localhost:3000"},
	"database.host":                "127.0.0.1",
	"database.port":                4000,
	"database.user":                "root",
	"database.password":            "",
	"database.name":                "backoffice",
	"redis.addr":                   "",
	"redis.password":               "",
	"redis.db":                     0,
	"stripe.secret_key":            "",
	"stripe.webhook_secret":        "",
	"stripe.success_url":           "http://localhost:3000/pagamento/sucesso",
	"stripe.cancel_url":            "http://localhost:3000/pagamento/cancelado",
	"mail.provider":                "log",
	"mail.api_key":                 "",
	"mail.from":                    "Studio <contato@studio.dev>",
	"mail.locale":                  "pt-BR",
	"auth.jwt_secret":              "",
	"auth.token_ttl":               24 * time.Hour,
	"pricing.down_payment_percent": 50,
	"pricing.budget_validity_days": 15,
	"pricing.rules_file":           "",
	"workflow.delivery_lead_days":  2,
	"calendar.extra_holidays":      []string{},
	"scheduler.timezone":           "America/Sao_Paulo",
	"scheduler.daily_spec":         "0 7 * * *",
	"ratelimit.public_rps":         5.0,
	"ratelimit.burst":              10,
	"log.level":                    "info",
	"log.json":                     false,
}

// LoadDotEnv loads the first .env file found walking up from the working
// directory. Missing files are not an error.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				log.Printf("📁 Loaded .env from %s", p)
				return
			}
		}
	}
}

// Load reads configuration. configFile may be empty, in which case
// backoffice.yaml is looked up in the working directory and /etc/backoffice.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("backoffice")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/backoffice")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("auth.jwt_secret is required outside development")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Pricing.DownPaymentPercent <= 0 || c.Pricing.DownPaymentPercent > 100 {
		return fmt.Errorf("pricing.down_payment_percent must be in (0,100], got %d", c.Pricing.DownPaymentPercent)
	}
	if c.Pricing.BudgetValidityDays <= 0 {
		return fmt.Errorf("pricing.budget_validity_days must be positive")
	}
	if c.Workflow.DeliveryLeadDays < 0 {
		return fmt.Errorf("workflow.delivery_lead_days cannot be negative")
	}
	if _, err := c.ExtraHolidayDates(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	switch c.Mail.Provider {
	case "log", "resend":
	default:
		return fmt.Errorf("unknown mail.provider %q", c.Mail.Provider)
	}
	return nil
}

// ExtraHolidayDates parses calendar.extra_holidays (YYYY-MM-DD).
func (c *Config) ExtraHolidayDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(c.Calendar.ExtraHolidays))
	for _, s := range c.Calendar.ExtraHolidays {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("invalid calendar.extra_holidays entry %q: expected YYYY-MM-DD", s)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Location returns the scheduler time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the MySQL data source name. Remote hosts get the registered
// "tidb" TLS profile. clientFoundRows makes UPDATE report matched rows.
func (d DatabaseConfig) DSN(multiStatements bool) string {
	params := "charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true"
	if d.IsRemote() {
		params += "&tls=tidb"
	}
	if multiStatements {
		params += "&multiStatements=true"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", d.User, d.Password, d.Host, d.Port, d.Name, params)
}

// IsRemote reports whether the database is outside the local machine.
func (d DatabaseConfig) IsRemote() bool {
	return d.Host != "" && d.Host != "127.0.0.1" && d.Host != "localhost"
}

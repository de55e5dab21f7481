package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Pricing.DownPaymentPercent)
	assert.Equal(t, 15, cfg.Pricing.BudgetValidityDays)
	assert.Equal(t, 2, cfg.Workflow.DeliveryLeadDays)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Scheduler.Timezone)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development gets a fallback secret")
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backoffice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
pricing:
  down_payment_percent: 30
calendar:
  extra_holidays: ["2026-12-24", "2026-12-31"]
`), 0o600))

	t.Setenv("AUTH_JWT_SECRET", "from-env")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Pricing.DownPaymentPercent)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)

	dates, err := cfg.ExtraHolidayDates()
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, time.December, dates[0].Month())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:       "production",
			Auth:      AuthConfig{JWTSecret: "s"},
			Pricing:   PricingConfig{DownPaymentPercent: 50, BudgetValidityDays: 15},
			Scheduler: SchedulerConfig{Timezone: "UTC"},
			Mail:      MailConfig{Provider: "log"},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Auth.JWTSecret = ""
	assert.Error(t, c.Validate(), "production requires a secret")

	c = base()
	c.Pricing.DownPaymentPercent = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Pricing.DownPaymentPercent = 101
	assert.Error(t, c.Validate())

	c = base()
	c.Calendar.ExtraHolidays = []string{"24/12/2026"}
	assert.Error(t, c.Validate())

	c = base()
	c.Mail.Provider = "carrier-pigeon"
	assert.Error(t, c.Validate())
}

func TestDSN(t *testing.T) {
	local := DatabaseConfig{Host: "127.0.0.1", Port: 4000, User: "root", Name: "backoffice"}
	assert.Equal(t, "root:@tcp(127.0.0.1:4000)/backoffice?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true", local.DSN(false))

	remote := DatabaseConfig{Host: "gateway.tidbcloud.com", Port: 4000, User: "u", Password: "p", Name: "db"}
	assert.Contains(t, remote.DSN(true), "&tls=tidb&multiStatements=true")
}

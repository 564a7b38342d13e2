package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	assert.Empty(t, Load().AuthSecret)
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")
	t.Setenv("OTP_DURATION_HOURS", "soon")
	t.Setenv("SMTP_PORT", "")

	cfg := Load()
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, 1, cfg.OTPDurationHours)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestSMTPEnabled(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	assert.False(t, Load().SMTPEnabled())

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg := Load()
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, "debug", cfg.LogLevel)
}

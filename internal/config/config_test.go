package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "panaderia")
	t.Setenv("PIN_LENGTH", "4")
	t.Setenv("APPROVAL_LIMIT_COUNT", "50")

	cfg := LoadConfig()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 4, cfg.PINLength)
	assert.Equal(t, float64(50), cfg.ApprovalLimitCount)

	// Defaults kick in for unset tunables
	assert.Equal(t, 30, cfg.PINTTLMinutes)
	assert.Equal(t, float64(100), cfg.ApprovalLimitWeight)
	assert.Equal(t, 7, cfg.OrderWindowDays)
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 15, envInt("SOME_INT", 15))

	t.Setenv("SOME_INT", "-3")
	assert.Equal(t, 15, envInt("SOME_INT", 15))

	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, envInt("SOME_INT", 15))
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("SOME_FLOAT", "2.5")
	assert.Equal(t, 2.5, envFloat("SOME_FLOAT", 1))

	t.Setenv("SOME_FLOAT", "zero")
	assert.Equal(t, float64(1), envFloat("SOME_FLOAT", 1))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestProgramDefaultsFallback(t *testing.T) {
	holder := NewStaticProgramDefaultsHolder(DefaultProgramDefaults())
	got := holder.Get()
	assert.True(t, got.Enabled)
	assert.True(t, got.CommissionRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 30, got.CookieDays)
	assert.True(t, got.MinPayout.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 10, got.PayoutDay)
	assert.False(t, got.AutoApprove)
}

func TestProgramDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.yml")
	body := "program:\n  enabled: true\n  commissionRate: 7.5\n  cookieDays: 14\n  minPayout: 20\n  payoutDay: 5\n  autoApprove: true\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	holder, err := NewProgramDefaultsHolder(Config{ProgramConfigPath: path}, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := holder.Get()
	assert.True(t, got.CommissionRate.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, 14, got.CookieDays)
	assert.True(t, got.MinPayout.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 5, got.PayoutDay)
	assert.True(t, got.AutoApprove)
}

func TestProgramDefaultsRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.yml")
	require.NoError(t, os.WriteFile(path, []byte("program:\n  cookieDays: 400\n"), 0o600))

	_, err := NewProgramDefaultsHolder(Config{ProgramConfigPath: path}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

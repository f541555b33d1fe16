package sessionmirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"disabled", ModeDisabled, false},
		{"postgres", ModeSecondaryOnly, false},
		{"dual", ModeDual, false},
		{"DUAL", ModeDual, false},
		{"  Postgres ", ModeSecondaryOnly, false},
		{"", ModeDisabled, false},
		{"sqlite", ModeDisabled, false},
		{"mysql", ModeDisabled, true},
	}
	for _, tt := range tests {
		t.Run("input="+tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFillsDefaults(t *testing.T) {
	cfg, downgraded := Config{Mode: ModeDual, URL: "postgres://db/x"}.resolve()
	assert.False(t, downgraded)
	assert.Equal(t, ModeDual, cfg.Mode)
	assert.Equal(t, defaultPoolMinSize, cfg.PoolMinSize)
	assert.Equal(t, defaultPoolMaxSize, cfg.PoolMaxSize)
}

func TestResolveDowngradesWithoutURL(t *testing.T) {
	for _, mode := range []Mode{ModeDual, ModeSecondaryOnly} {
		cfg, downgraded := Config{Mode: mode, URL: "   "}.resolve()
		assert.True(t, downgraded, mode)
		assert.Equal(t, ModeDisabled, cfg.Mode)
	}

	// Disabled never needs a URL and never downgrades.
	cfg, downgraded := Config{Mode: ModeDisabled}.resolve()
	assert.False(t, downgraded)
	assert.Equal(t, ModeDisabled, cfg.Mode)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HLL_STORAGE_MODE", "dual")
	t.Setenv("HLL_DB_URL", " postgres://replica:5432/hll ")
	t.Setenv("HLL_DB_POOL_MIN_SIZE", "2")
	t.Setenv("HLL_DB_POOL_MAX_SIZE", "20")
	t.Setenv("HLL_DB_STATEMENT_TIMEOUT_SECONDS", "15")

	cfg := ConfigFromEnv()
	require.Equal(t, ModeDual, cfg.Mode)
	assert.Equal(t, "postgres://replica:5432/hll", cfg.URL)
	assert.Equal(t, 2, cfg.PoolMinSize)
	assert.Equal(t, 20, cfg.PoolMaxSize)
	assert.Equal(t, 15*time.Second, cfg.StatementTimeout)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("HLL_STORAGE_MODE", "")
	t.Setenv("HLL_DB_URL", "")
	t.Setenv("HLL_DB_POOL_MIN_SIZE", "")
	t.Setenv("HLL_DB_POOL_MAX_SIZE", "not-a-number")
	t.Setenv("HLL_DB_STATEMENT_TIMEOUT_SECONDS", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, ModeDisabled, cfg.Mode)
	assert.Empty(t, cfg.URL)
	assert.Equal(t, defaultPoolMinSize, cfg.PoolMinSize)
	assert.Equal(t, defaultPoolMaxSize, cfg.PoolMaxSize)
	assert.Zero(t, cfg.StatementTimeout)
}

func TestConfigFromEnvUnknownModeDisables(t *testing.T) {
	t.Setenv("HLL_STORAGE_MODE", "mariadb")
	t.Setenv("HLL_DB_URL", "postgres://db/x")
	assert.Equal(t, ModeDisabled, ConfigFromEnv().Mode)
}

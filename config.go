package sessionmirror

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects which stores the application writes to. The runtime only
// cares whether the secondary store participates at all; routing of primary
// reads and writes is the caller's business.
type Mode string

const (
	// ModeDisabled turns replication off entirely.
	ModeDisabled Mode = "disabled"
	// ModeSecondaryOnly makes PostgreSQL the sole store.
	ModeSecondaryOnly Mode = "postgres"
	// ModeDual writes to the primary store and replicates to PostgreSQL.
	ModeDual Mode = "dual"
)

// ParseMode parses a mode string case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDisabled, "", "sqlite":
		return ModeDisabled, nil
	case ModeSecondaryOnly:
		return ModeSecondaryOnly, nil
	case ModeDual:
		return ModeDual, nil
	}
	return ModeDisabled, fmt.Errorf("unknown storage mode %q", s)
}

// replicates reports whether this mode writes to the secondary store.
func (m Mode) replicates() bool {
	return m == ModeSecondaryOnly || m == ModeDual
}

// Config carries the resolved settings the runtime consumes. How they are
// loaded (flags, files, environment) is the caller's concern; ConfigFromEnv
// exists as one convenient loader.
type Config struct {
	// Mode selects whether replication runs at all. A replicating mode
	// with an empty URL is downgraded to ModeDisabled at startup.
	Mode Mode
	// URL is the PostgreSQL connection string for the secondary store.
	URL string
	// PoolMinSize and PoolMaxSize bound the connection pool.
	PoolMinSize int
	PoolMaxSize int
	// StatementTimeout, when non-zero, applies per connection.
	StatementTimeout time.Duration
}

const (
	defaultPoolMinSize = 1
	defaultPoolMaxSize = 10
)

// resolve fills defaults and downgrades the mode when the secondary store's
// connection parameters are absent. It returns whether a downgrade happened
// so the caller can warn once.
func (c Config) resolve() (Config, bool) {
	if c.PoolMinSize <= 0 {
		c.PoolMinSize = defaultPoolMinSize
	}
	if c.PoolMaxSize <= 0 {
		c.PoolMaxSize = defaultPoolMaxSize
	}
	if c.Mode.replicates() && strings.TrimSpace(c.URL) == "" {
		c.Mode = ModeDisabled
		return c, true
	}
	return c, false
}

// ConfigFromEnv builds a Config from the environment: HLL_STORAGE_MODE,
// HLL_DB_URL, HLL_DB_POOL_MIN_SIZE, HLL_DB_POOL_MAX_SIZE and
// HLL_DB_STATEMENT_TIMEOUT_SECONDS. Unset variables fall back to defaults;
// an unrecognized mode resolves to disabled.
func ConfigFromEnv() Config {
	mode, err := ParseMode(os.Getenv("HLL_STORAGE_MODE"))
	if err != nil {
		mode = ModeDisabled
	}
	cfg := Config{
		Mode:        mode,
		URL:         strings.TrimSpace(os.Getenv("HLL_DB_URL")),
		PoolMinSize: envInt("HLL_DB_POOL_MIN_SIZE", defaultPoolMinSize),
		PoolMaxSize: envInt("HLL_DB_POOL_MAX_SIZE", defaultPoolMaxSize),
	}
	if secs := envInt("HLL_DB_STATEMENT_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.StatementTimeout = time.Duration(secs) * time.Second
	}
	return cfg
}

func envInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

package producer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	APIBaseURL  string
	APIKey      string
	BatchSize   int
	Interval    time.Duration
	HTTPTimeout time.Duration
	Seed        int64
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:  "http://localhost:8080",
		BatchSize:   10,
		Interval:    2 * time.Second,
		HTTPTimeout: 10 * time.Second,
		Seed:        time.Now().UTC().UnixNano(),
	}
}

// LoadConfigFromEnv reads MEDSQL_DEMO_* variables through lookup, keeping
// DefaultConfig values for anything unset.
func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, errors.New("lookup function is required")
	}

	cfg := DefaultConfig()
	env := envReader{lookup: lookup}
	env.stringVar(&cfg.APIBaseURL, "MEDSQL_DEMO_API_URL")
	env.stringVar(&cfg.APIKey, "MEDSQL_DEMO_API_KEY")
	env.intVar(&cfg.BatchSize, "MEDSQL_DEMO_BATCH_SIZE")
	env.durationVar(&cfg.Interval, "MEDSQL_DEMO_INTERVAL")
	env.durationVar(&cfg.HTTPTimeout, "MEDSQL_DEMO_HTTP_TIMEOUT")
	env.int64Var(&cfg.Seed, "MEDSQL_DEMO_SEED")
	if env.err != nil {
		return Config{}, env.err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	switch {
	case cfg.APIBaseURL == "":
		return Config{}, errors.New("MEDSQL_DEMO_API_URL is required")
	case cfg.BatchSize <= 0:
		return Config{}, errors.New("MEDSQL_DEMO_BATCH_SIZE must be > 0")
	case cfg.Interval <= 0:
		return Config{}, errors.New("MEDSQL_DEMO_INTERVAL must be > 0")
	case cfg.HTTPTimeout <= 0:
		return Config{}, errors.New("MEDSQL_DEMO_HTTP_TIMEOUT must be > 0")
	}
	return cfg, nil
}

// envReader applies overrides and remembers the first parse failure.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) value(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	raw, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

func (e *envReader) stringVar(dst *string, key string) {
	if raw, ok := e.value(key); ok {
		*dst = raw
	}
}

func (e *envReader) intVar(dst *int, key string) {
	raw, ok := e.value(key)
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
		return
	}
	*dst = v
}

func (e *envReader) int64Var(dst *int64, key string) {
	raw, ok := e.value(key)
	if !ok || raw == "" {
		return
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
		return
	}
	*dst = v
}

func (e *envReader) durationVar(dst *time.Duration, key string) {
	raw, ok := e.value(key)
	if !ok {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
		return
	}
	*dst = v
}

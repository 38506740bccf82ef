// Package config loads thread settings from TOML files and the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Swind/go-thread-runner/core"
	"github.com/rs/zerolog"
)

const (
	EnvName         = "THREADRUNNER_NAME"
	EnvLogLevel     = "THREADRUNNER_LOG_LEVEL"
	EnvLogTimestamp = "THREADRUNNER_LOG_TIMESTAMP"
)

// Config is the resolved thread configuration.
type Config struct {
	Name            string
	LockOSThread    bool
	HistoryCapacity int
	LogLevel        zerolog.Level
	LogTimestamp    bool
	LogJSON         bool
}

type fileConfig struct {
	Name            string `toml:"name"`
	LockOSThread    bool   `toml:"lock_os_thread"`
	HistoryCapacity int    `toml:"history_capacity"`
	LogLevel        string `toml:"log_level"`
	LogTimestamp    bool   `toml:"log_timestamp"`
	LogFormat       string `toml:"log_format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	base := core.DefaultThreadConfig()
	return Config{
		Name:            base.Name,
		LockOSThread:    base.LockOSThread,
		HistoryCapacity: base.HistoryCapacity,
		LogLevel:        zerolog.InfoLevel,
		LogTimestamp:    true,
	}
}

// Load reads path, then applies environment overrides. An empty path yields
// the defaults with environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load thread config: %w", err)
		}
		if cfg, err = apply(cfg, raw, meta); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Decode parses TOML data on top of the defaults. Environment overrides are
// not applied.
func Decode(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode thread config: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}

	if meta.IsDefined("lock_os_thread") {
		cfg.LockOSThread = raw.LockOSThread
	}

	if meta.IsDefined("history_capacity") {
		if raw.HistoryCapacity < 0 {
			return Config{}, fmt.Errorf("parse history_capacity: %w: %d is negative", core.ErrInvalidConfig, raw.HistoryCapacity)
		}
		cfg.HistoryCapacity = raw.HistoryCapacity
	}

	if meta.IsDefined("log_level") {
		lvl, ok := parseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}

	if meta.IsDefined("log_timestamp") {
		cfg.LogTimestamp = raw.LogTimestamp
	}

	if meta.IsDefined("log_format") {
		switch strings.ToLower(strings.TrimSpace(raw.LogFormat)) {
		case "json":
			cfg.LogJSON = true
		case "console", "":
			cfg.LogJSON = false
		default:
			return Config{}, fmt.Errorf("parse log_format: unknown format %q", raw.LogFormat)
		}
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if name := strings.TrimSpace(os.Getenv(EnvName)); name != "" {
		cfg.Name = name
	}
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.LogLevel = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.LogTimestamp = v
	}
}

// Logger builds the zerolog logger described by the configuration.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !c.LogJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}
	}
	ctx := zerolog.New(w).Level(c.LogLevel).With().Str("thread", c.Name)
	if c.LogTimestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// ThreadConfig converts the configuration into a core.ThreadConfig that logs
// to w. Metrics and PanicHandler are left for the caller.
func (c Config) ThreadConfig(w io.Writer) core.ThreadConfig {
	tc := core.DefaultThreadConfig()
	tc.Name = c.Name
	tc.LockOSThread = c.LockOSThread
	tc.HistoryCapacity = c.HistoryCapacity
	tc.Logger = core.NewZerologLogger(c.Logger(w))
	return tc
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

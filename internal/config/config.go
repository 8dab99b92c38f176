package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/spacetask/internal/conflict"
)

// Config represents the optional spacetask configuration file. Every field
// is a pointer so an absent key can be told apart from a zero value.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Queue    QueueConfig    `toml:"queue"`
	Timing   TimingConfig   `toml:"timing"`
	Log      LogConfig      `toml:"log"`
}

// DefaultsConfig holds persistent flag defaults.
type DefaultsConfig struct {
	ErrorMode     *string `toml:"error_mode"`
	OverwriteMode *string `toml:"overwrite_mode"`
	KeepVisible   *bool   `toml:"keep_visible"`
	Verify        *bool   `toml:"verify"`
	TUI           *bool   `toml:"tui"`
	BWLimit       *string `toml:"bwlimit"`
}

// QueueConfig controls task admission.
type QueueConfig struct {
	Enabled      *bool `toml:"enabled"`
	PauseOnError *bool `toml:"pause_on_error"`
}

// TimingConfig holds the poll loop and operation timeouts.
type TimingConfig struct {
	Tick          *Duration `toml:"tick"`
	StatsInterval *Duration `toml:"stats_interval"`
	SizeTimeout   *Duration `toml:"size_timeout"`
	ExecGrace     *Duration `toml:"exec_grace"`
	StallAfter    *Duration `toml:"stall_after"`
}

// LogConfig bounds the per-task error log.
type LogConfig struct {
	MaxSize  *string `toml:"max_size"`
	MaxLines *int    `toml:"max_lines"`
}

// Duration is a time.Duration read from a TOML string such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	*d = Duration(v)
	return nil
}

// Settings is a Config with defaults filled in and every value parsed.
type Settings struct {
	ErrorMode     string
	Overwrite     conflict.Mode
	BWLimit       int64
	Tick          time.Duration
	StatsInterval time.Duration
	SizeTimeout   time.Duration
	ExecGrace     time.Duration
	StallAfter    time.Duration
	LogMaxSize    int64
	LogMaxLines   int
	KeepVisible   bool
	Verify        bool
	TUI           bool
	QueueEnabled  bool
	PauseOnError  bool
}

// ErrorModes lists the accepted error_mode values.
var ErrorModes = []string{"stop-on-first", "stop-on-any", "continue"}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ErrorMode:     "stop-on-first",
		Overwrite:     conflict.Ask,
		Tick:          50 * time.Millisecond,
		StatsInterval: 500 * time.Millisecond,
		SizeTimeout:   5 * time.Second,
		ExecGrace:     5 * time.Second,
		StallAfter:    10 * time.Second,
		LogMaxSize:    64 << 10,
		LogMaxLines:   2000,
		QueueEnabled:  true,
		PauseOnError:  true,
	}
}

// Resolve applies the file's values over Defaults and validates them.
func (c Config) Resolve() (Settings, error) {
	s := Defaults()
	var errs []error

	if v := c.Defaults.ErrorMode; v != nil {
		if !validErrorMode(*v) {
			errs = append(errs, fmt.Errorf("defaults.error_mode: unknown mode %q", *v))
		} else {
			s.ErrorMode = *v
		}
	}
	if v := c.Defaults.OverwriteMode; v != nil {
		m, err := conflict.ParseMode(*v)
		if err != nil {
			errs = append(errs, fmt.Errorf("defaults.overwrite_mode: %w", err))
		}
		s.Overwrite = m
	}
	if v := c.Defaults.BWLimit; v != nil {
		n, err := ParseSize(*v)
		if err != nil {
			errs = append(errs, fmt.Errorf("defaults.bwlimit: %w", err))
		}
		s.BWLimit = n
	}
	setBool(&s.KeepVisible, c.Defaults.KeepVisible)
	setBool(&s.Verify, c.Defaults.Verify)
	setBool(&s.TUI, c.Defaults.TUI)
	setBool(&s.QueueEnabled, c.Queue.Enabled)
	setBool(&s.PauseOnError, c.Queue.PauseOnError)

	setDuration(&s.Tick, c.Timing.Tick)
	setDuration(&s.StatsInterval, c.Timing.StatsInterval)
	setDuration(&s.SizeTimeout, c.Timing.SizeTimeout)
	setDuration(&s.ExecGrace, c.Timing.ExecGrace)
	setDuration(&s.StallAfter, c.Timing.StallAfter)
	if s.Tick <= 0 {
		errs = append(errs, errors.New("timing.tick must be positive"))
	}

	if v := c.Log.MaxSize; v != nil {
		n, err := ParseSize(*v)
		if err != nil {
			errs = append(errs, fmt.Errorf("log.max_size: %w", err))
		}
		s.LogMaxSize = n
	}
	if v := c.Log.MaxLines; v != nil {
		if *v < 0 {
			errs = append(errs, fmt.Errorf("log.max_lines: negative value %d", *v))
		}
		s.LogMaxLines = *v
	}

	return s, errors.Join(errs...)
}

func validErrorMode(s string) bool {
	for _, m := range ErrorModes {
		if m == s {
			return true
		}
	}
	return false
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "spacetask", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero
// Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/setevik/journalstream/internal/journal"
)

// Config is the top-level configuration for journalstream.
type Config struct {
	Instance InstanceConfig `toml:"instance"`
	Journal  JournalConfig  `toml:"journal"`
	Store    StoreConfig    `toml:"store"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Log      LogConfig      `toml:"log"`
}

// InstanceConfig identifies this machine in the session store.
type InstanceConfig struct {
	ID string `toml:"id"`
}

// JournalConfig holds the default journalctl options.
type JournalConfig struct {
	Executable string        `toml:"executable"`
	All        bool          `toml:"all"`
	Lines      *int          `toml:"lines"`
	Since      string        `toml:"since"`
	Until      string        `toml:"until"`
	Identifier string        `toml:"identifier"`
	Unit       string        `toml:"unit"`
	Priority   string        `toml:"priority"`
	Fields     []string      `toml:"fields"`
	Matches    []MatchConfig `toml:"match"`
}

// MatchConfig is one [[journal.match]] table.
type MatchConfig struct {
	Field string `toml:"field"`
	Value string `toml:"value"`
}

// StoreConfig controls the session database.
type StoreConfig struct {
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5m", "720h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &Config{
		Instance: InstanceConfig{
			ID: hostname,
		},
		Journal: JournalConfig{
			Executable: journal.DefaultExecutable,
		},
		Store: StoreConfig{
			Retention: Duration{30 * 24 * time.Hour},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "journalstream", "config.toml")
}

// DefaultDBPath returns the default session database path.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(dataDir, "journalstream", "sessions.db")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// DBPath returns the configured database path or the default one.
func (c *Config) DBPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return DefaultDBPath()
}

// Options converts the [journal] section into stream options. Values that
// need parsing are checked here; the rest is validated when the stream is
// built.
func (c *Config) Options() (journal.Options, error) {
	j := c.Journal
	opts := journal.Options{
		All:        j.All,
		Since:      j.Since,
		Until:      j.Until,
		Identifier: j.Identifier,
		Unit:       j.Unit,
		Fields:     append([]string(nil), j.Fields...),
		Executable: j.Executable,
	}

	if j.Lines != nil {
		n, err := journal.ValidateInteger(float64(*j.Lines))
		if err != nil {
			return journal.Options{}, fmt.Errorf("journal.lines: %w", err)
		}
		opts.Lines = journal.IntPtr(n)
	}

	if j.Priority != "" {
		p, err := journal.ParsePriority(j.Priority)
		if err != nil {
			return journal.Options{}, fmt.Errorf("journal.priority: %w", err)
		}
		opts.Priority = p
	}

	for _, m := range j.Matches {
		if _, err := journal.ValidateField(m.Field); err != nil {
			return journal.Options{}, fmt.Errorf("journal.match: %w", err)
		}
		opts.Matches = append(opts.Matches, journal.Match{Field: m.Field, Value: m.Value})
	}

	return opts, nil
}

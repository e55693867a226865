package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Surface names accepted in Config.Surfaces.
const (
	SurfaceTUI  = "tui"
	SurfaceMIDI = "midi"
	SurfaceMCP  = "mcp"
)

// Button actions accepted in MIDI button mappings.
const (
	ButtonMute  = "mute"
	ButtonPress = "press"
)

// Config is the top-level mixbridge configuration.
type Config struct {
	OBS         OBSConfig     `yaml:"obs"`
	Log         LogConfig     `yaml:"log"`
	Surfaces    []string      `yaml:"surfaces"`
	Metrics     MetricsConfig `yaml:"metrics"`
	WatchConfig bool          `yaml:"watch_config"`
	MIDI        MIDIConfig    `yaml:"midi"`
}

// OBSConfig holds the remote mixer connection settings.
type OBSConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //nolint:gosec // configuration field, not a hardcoded secret
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error.
	File  string `yaml:"file"`  // Empty means the default log file when a surface owns the terminal, stderr otherwise.
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. 127.0.0.1:9464; empty disables the endpoint.
}

// MIDIConfig maps a MIDI controller onto mirrored controls.
type MIDIConfig struct {
	Input   string          `yaml:"input"`
	Output  string          `yaml:"output"`
	Channel uint8           `yaml:"channel"`
	Faders  []FaderMapping  `yaml:"faders"`
	Buttons []ButtonMapping `yaml:"buttons"`
}

// FaderMapping binds a control-change number to a level control.
type FaderMapping struct {
	CC      uint8  `yaml:"cc"`
	Control string `yaml:"control"`
}

// ButtonMapping binds a note to a mute or press action.
type ButtonMapping struct {
	Note    uint8  `yaml:"note"`
	Control string `yaml:"control"`
	Action  string `yaml:"action"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		OBS:         OBSConfig{Address: session.DefaultAddress},
		Log:         LogConfig{Level: "info"},
		Surfaces:    []string{SurfaceTUI},
		WatchConfig: true,
	}
}

// LoadConfig reads a YAML file on top of Default.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so the OBS password can live in the environment (e.g. loaded
// from a .env file) rather than in the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML on top of Default after expanding environment
// variables.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if len(c.Surfaces) == 0 {
		return fmt.Errorf("config: at least one surface is required")
	}

	seen := make(map[string]struct{}, len(c.Surfaces))
	for _, s := range c.Surfaces {
		switch s {
		case SurfaceTUI, SurfaceMIDI, SurfaceMCP:
		default:
			return fmt.Errorf("config: unknown surface %q", s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("config: duplicate surface %q", s)
		}
		seen[s] = struct{}{}
	}

	if c.HasSurface(SurfaceTUI) && c.HasSurface(SurfaceMCP) {
		return fmt.Errorf("config: surfaces %q and %q both need the terminal", SurfaceTUI, SurfaceMCP)
	}

	if c.HasSurface(SurfaceMIDI) {
		if err := c.MIDI.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// HasSurface reports whether the named surface is enabled.
func (c Config) HasSurface(name string) bool {
	return slices.Contains(c.Surfaces, name)
}

// OwnsTerminal reports whether an enabled surface uses stdin/stdout, in which
// case logs must not go to the terminal.
func (c Config) OwnsTerminal() bool {
	return c.HasSurface(SurfaceTUI) || c.HasSurface(SurfaceMCP)
}

// Validate checks the MIDI mapping.
func (m MIDIConfig) Validate() error {
	if m.Input == "" {
		return fmt.Errorf("config: midi: input port is required")
	}
	if m.Channel > 15 {
		return fmt.Errorf("config: midi: channel %d out of range 0-15", m.Channel)
	}

	ccs := make(map[uint8]struct{}, len(m.Faders))
	for _, f := range m.Faders {
		if f.CC > 127 {
			return fmt.Errorf("config: midi: fader cc %d out of range 0-127", f.CC)
		}
		if f.Control == "" {
			return fmt.Errorf("config: midi: fader cc %d: control is required", f.CC)
		}
		if _, dup := ccs[f.CC]; dup {
			return fmt.Errorf("config: midi: duplicate fader cc %d", f.CC)
		}
		ccs[f.CC] = struct{}{}
	}

	notes := make(map[uint8]struct{}, len(m.Buttons))
	for _, b := range m.Buttons {
		if b.Note > 127 {
			return fmt.Errorf("config: midi: button note %d out of range 0-127", b.Note)
		}
		if b.Control == "" {
			return fmt.Errorf("config: midi: button note %d: control is required", b.Note)
		}
		if b.Action != ButtonMute && b.Action != ButtonPress {
			return fmt.Errorf("config: midi: button note %d: unknown action %q", b.Note, b.Action)
		}
		if _, dup := notes[b.Note]; dup {
			return fmt.Errorf("config: midi: duplicate button note %d", b.Note)
		}
		notes[b.Note] = struct{}{}
	}

	return nil
}

// SlogLevel parses Level. An empty level means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	if l.Level == "" {
		return slog.LevelInfo, nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// File is a session.SettingsSource that re-reads the config file on every
// call, so a reconnect picks up edits.
type File struct {
	Path string
}

var _ session.SettingsSource = File{}

// Settings implements session.SettingsSource.
func (f File) Settings(context.Context) (session.Settings, error) {
	cfg, err := LoadConfig(f.Path)
	if err != nil {
		return session.Settings{}, err
	}

	return session.Settings{Address: cfg.OBS.Address, Password: cfg.OBS.Password}, nil
}

// LoadDotEnv loads environment variables from path. If the file does not
// exist it is silently ignored so that .env files remain optional.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

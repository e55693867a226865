package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
obs:
  address: 192.168.1.20:4444
  password: hunter2
log:
  level: debug
  file: /tmp/mixbridge.log
surfaces: [midi]
metrics:
  listen: 127.0.0.1:9464
watch_config: false
midi:
  input: nanoKONTROL2
  output: nanoKONTROL2
  channel: 1
  faders:
    - {cc: 0, control: Mic}
    - {cc: 1, control: "Mic: Limiter"}
  buttons:
    - {note: 48, control: Mic, action: mute}
    - {note: 41, control: "Scene A", action: press}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20:4444", cfg.OBS.Address)
	assert.Equal(t, "hunter2", cfg.OBS.Password)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/mixbridge.log", cfg.Log.File)
	assert.Equal(t, []string{SurfaceMIDI}, cfg.Surfaces)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Listen)
	assert.False(t, cfg.WatchConfig)

	assert.Equal(t, "nanoKONTROL2", cfg.MIDI.Input)
	assert.Equal(t, uint8(1), cfg.MIDI.Channel)
	assert.Equal(t, []FaderMapping{{CC: 0, Control: "Mic"}, {CC: 1, Control: "Mic: Limiter"}}, cfg.MIDI.Faders)
	assert.Equal(t, ButtonPress, cfg.MIDI.Buttons[1].Action)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "obs:\n  password: x\n"))
	require.NoError(t, err)

	assert.Equal(t, session.DefaultAddress, cfg.OBS.Address)
	assert.Equal(t, []string{SurfaceTUI}, cfg.Surfaces)
	assert.True(t, cfg.WatchConfig)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/no/such/file.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "obs: [unterminated"))
	assert.ErrorContains(t, err, "config: parse")
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("MIXBRIDGE_TEST_PASSWORD", "from-env")

	cfg, err := LoadConfig(writeConfig(t, "obs:\n  password: ${MIXBRIDGE_TEST_PASSWORD}\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OBS.Password)
}

func TestLoadConfig_UnsetEnvVarExpandsToEmpty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "obs:\n  password: ${MIXBRIDGE_TEST_UNSET_VAR_12345}\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.OBS.Password)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.OBS.Password = "pw"
	cfg.Metrics.Listen = ":9464"

	require.NoError(t, Save(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.OBS, got.OBS)
	assert.Equal(t, cfg.Surfaces, got.Surfaces)
	assert.Equal(t, cfg.Metrics, got.Metrics)
}

func validMIDI() Config {
	cfg := Default()
	cfg.Surfaces = []string{SurfaceMIDI}
	cfg.MIDI = MIDIConfig{
		Input:   "in",
		Faders:  []FaderMapping{{CC: 7, Control: "Mic"}},
		Buttons: []ButtonMapping{{Note: 60, Control: "Mic", Action: ButtonMute}},
	}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no surfaces", func(c *Config) { c.Surfaces = nil }, "at least one surface"},
		{"unknown surface", func(c *Config) { c.Surfaces = []string{"web"} }, `unknown surface "web"`},
		{"duplicate surface", func(c *Config) { c.Surfaces = []string{"midi", "midi"} }, "duplicate surface"},
		{"tui and mcp", func(c *Config) { c.Surfaces = []string{"tui", "mcp"} }, "both need the terminal"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"no midi input", func(c *Config) { c.MIDI.Input = "" }, "input port is required"},
		{"bad channel", func(c *Config) { c.MIDI.Channel = 16 }, "channel 16"},
		{"bad cc", func(c *Config) { c.MIDI.Faders[0].CC = 200 }, "fader cc 200"},
		{"fader without control", func(c *Config) { c.MIDI.Faders[0].Control = "" }, "control is required"},
		{"duplicate cc", func(c *Config) {
			c.MIDI.Faders = append(c.MIDI.Faders, FaderMapping{CC: 7, Control: "Desktop"})
		}, "duplicate fader cc 7"},
		{"bad note", func(c *Config) { c.MIDI.Buttons[0].Note = 128 }, "button note 128"},
		{"bad action", func(c *Config) { c.MIDI.Buttons[0].Action = "solo" }, `unknown action "solo"`},
		{"duplicate note", func(c *Config) {
			c.MIDI.Buttons = append(c.MIDI.Buttons, ButtonMapping{Note: 60, Control: "Scene A", Action: ButtonPress})
		}, "duplicate button note 60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validMIDI()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestConfig_MIDIIgnoredWithoutSurface(t *testing.T) {
	cfg := Default()
	cfg.MIDI.Channel = 99
	assert.NoError(t, cfg.Validate())
}

func TestConfig_OwnsTerminal(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.OwnsTerminal())

	cfg.Surfaces = []string{SurfaceMIDI}
	assert.False(t, cfg.OwnsTerminal())

	cfg.Surfaces = []string{SurfaceMCP, SurfaceMIDI}
	assert.True(t, cfg.OwnsTerminal())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	lvl, err := LogConfig{}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	lvl, err = LogConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func TestFile_Settings(t *testing.T) {
	path := writeConfig(t, "obs:\n  address: obs:4455\n  password: pw\n")

	s, err := File{Path: path}.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.Settings{Address: "obs:4455", Password: "pw"}, s)

	require.NoError(t, os.WriteFile(path, []byte("obs:\n  address: obs:4460\n"), 0o600))

	s, err = File{Path: path}.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "obs:4460", s.Address)
	assert.Empty(t, s.Password)
}

func TestFile_SettingsMissingFile(t *testing.T) {
	_, err := File{Path: "/no/such/config.yaml"}.Settings(context.Background())
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MIXBRIDGE_DOTENV_TEST=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MIXBRIDGE_DOTENV_TEST") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("MIXBRIDGE_DOTENV_TEST"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestDir_PathAccessors(t *testing.T) {
	d := NewDir("/home/u/.config/mixbridge")

	assert.Equal(t, "/home/u/.config/mixbridge", d.Root())
	assert.Equal(t, "/home/u/.config/mixbridge/config.yaml", d.ConfigPath())
	assert.Equal(t, "/home/u/.config/mixbridge/.env", d.EnvPath())
	assert.Equal(t, "/home/u/.config/mixbridge/mixbridge.log", d.LogPath())
}

func TestDir_EnsureAndExists(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "nested", "mixbridge"))
	assert.False(t, d.Exists())

	require.NoError(t, d.Ensure())
	assert.True(t, d.Exists())
	require.NoError(t, d.Ensure())
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "obs:\n  address: a:1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, nil, func() { changed <- struct{}{} })
	}()

	// Other files in the directory are ignored; the config file is not.
	// Writes are retried until the watcher, which starts asynchronously,
	// reports one.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o600))
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("obs:\n  address: b:2\n"), 0o600)
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 3*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/germanamz/mixbridge/pkg/config"
	"github.com/germanamz/mixbridge/pkg/surfaces/midisurface"
	"github.com/joho/godotenv"
)

// passwordEnv is the variable the generated config reads the password from.
const passwordEnv = "OBS_PASSWORD"

// wizardAnswers holds what the init form collects.
type wizardAnswers struct {
	Address       string
	Password      string //nolint:gosec // user input, not a hardcoded secret
	PasswordInEnv bool
	Surfaces      []string
	MetricsListen string
	WatchConfig   bool
	MIDIInput     string
	MIDIOutput    string
}

func defaultAnswers() wizardAnswers {
	def := config.Default()
	return wizardAnswers{
		Address:       def.OBS.Address,
		PasswordInEnv: true,
		Surfaces:      def.Surfaces,
		WatchConfig:   def.WatchConfig,
	}
}

// config builds the configuration and the .env entries to write.
func (a wizardAnswers) config() (config.Config, map[string]string) {
	cfg := config.Default()
	cfg.OBS.Address = strings.TrimSpace(a.Address)
	cfg.Surfaces = slices.Clone(a.Surfaces)
	cfg.Metrics.Listen = strings.TrimSpace(a.MetricsListen)
	cfg.WatchConfig = a.WatchConfig

	var env map[string]string
	switch {
	case a.Password == "":
	case a.PasswordInEnv:
		cfg.OBS.Password = "${" + passwordEnv + "}"
		env = map[string]string{passwordEnv: a.Password}
	default:
		cfg.OBS.Password = a.Password
	}

	if cfg.HasSurface(config.SurfaceMIDI) {
		cfg.MIDI.Input = a.MIDIInput
		cfg.MIDI.Output = a.MIDIOutput
	}

	return cfg, env
}

func runInit(configPath string, force bool) error {
	configPath, envFile, err := resolvePaths(configPath, "")
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	answers := defaultAnswers()
	if err := runWizard(&answers); err != nil {
		return err
	}

	cfg, env := answers.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := writeInit(configPath, envFile, cfg, env); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", configPath)
	if cfg.HasSurface(config.SurfaceMIDI) {
		fmt.Println("Add fader and button mappings under midi: before starting.")
	}

	return nil
}

// writeInit writes cfg and, when env is not empty, the .env file next to it.
func writeInit(configPath, envFile string, cfg config.Config, env map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if len(env) == 0 {
		return nil
	}

	existing, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("init: read %s: %w", envFile, err)
	}
	if existing == nil {
		existing = make(map[string]string)
	}
	for k, v := range env {
		existing[k] = v
	}

	if err := godotenv.Write(existing, envFile); err != nil {
		return fmt.Errorf("init: write %s: %w", envFile, err)
	}
	return os.Chmod(envFile, 0o600)
}

func runWizard(a *wizardAnswers) error {
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OBS websocket address").
				Description("host:port of the obs-websocket plugin").
				Value(&a.Address).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				Description("Leave empty if authentication is disabled").
				EchoMode(huh.EchoModePassword).
				Value(&a.Password),
			huh.NewConfirm().
				Title("Store the password in .env?").
				Description("The config then references ${"+passwordEnv+"}").
				Value(&a.PasswordInEnv),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Control surfaces").
				Options(huh.NewOptions(config.SurfaceTUI, config.SurfaceMIDI, config.SurfaceMCP)...).
				Value(&a.Surfaces).
				Validate(func(s []string) error {
					if slices.Contains(s, config.SurfaceTUI) && slices.Contains(s, config.SurfaceMCP) {
						return errors.New("tui and mcp both need the terminal")
					}
					return nil
				}),
			huh.NewInput().
				Title("Metrics listen address").
				Description("e.g. 127.0.0.1:9464; empty disables metrics").
				Value(&a.MetricsListen),
			huh.NewConfirm().
				Title("Reconnect when the config file changes?").
				Value(&a.WatchConfig),
		),
	).Run(); err != nil {
		return err
	}

	if !slices.Contains(a.Surfaces, config.SurfaceMIDI) {
		return nil
	}

	return wizardMIDI(a)
}

func wizardMIDI(a *wizardAnswers) error {
	ins, outs := midisurface.Ports()
	if len(ins) == 0 && len(outs) == 0 {
		return errors.New("no MIDI ports found; connect the controller and try again")
	}

	fields := make([]huh.Field, 0, 2)
	if len(ins) > 0 {
		a.MIDIInput = ins[0]
		fields = append(fields, huh.NewSelect[string]().
			Title("MIDI input").
			Options(huh.NewOptions(ins...)...).
			Value(&a.MIDIInput))
	}
	if len(outs) > 0 {
		a.MIDIOutput = outs[0]
		fields = append(fields, huh.NewSelect[string]().
			Title("MIDI output").
			Options(huh.NewOptions(outs...)...).
			Value(&a.MIDIOutput))
	}

	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/germanamz/mixbridge/pkg/config"
)

// resolvePaths fills in the default config and .env locations. The .env file
// defaults to the one next to the config file.
func resolvePaths(configPath, envFile string) (string, string, error) {
	if configPath == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return "", "", err
		}
		configPath = dir.ConfigPath()
	}

	if envFile == "" {
		envFile = filepath.Join(filepath.Dir(configPath), ".env")
	}

	return configPath, envFile, nil
}

// loadConfig loads the .env file, then the validated config.
func loadConfig(configPath, envFile string) (config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("%s does not exist; run \"mixbridge init\" first", configPath)
	}
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

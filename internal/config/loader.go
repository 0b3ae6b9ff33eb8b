package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mcpgateway/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/mcpgateway"
	configFileName = "config.yaml"
	upstreamsDir   = "upstreams"
)

// GetDefaultConfigPathOrPanic returns $HOME/.config/mcpgateway.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath, falling back to defaults for
// any field it doesn't set and for a missing file entirely. DATABASE_URL,
// PORT, and MCP_GATEWAY_AUTH_BYPASS (the external environment interface) are
// applied last and override whatever config.yaml set, so a deployment can
// pin the gateway's listening port, database target and auth bypass without
// a file on disk at all.
func LoadConfig(configPath string) (GatewayConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			cfg = applyDefaults(applyEnvOverrides(cfg))
			return cfg, nil
		}
		return GatewayConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GatewayConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	cfg = applyDefaults(applyEnvOverrides(cfg))
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return cfg, nil
}

// applyEnvOverrides layers DATABASE_URL, PORT, and MCP_GATEWAY_AUTH_BYPASS
// on top of cfg. These are the only environment variables the gateway
// consults; every other setting lives in config.yaml.
func applyEnvOverrides(cfg GatewayConfig) GatewayConfig {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			logging.Warn("ConfigLoader", "ignoring invalid PORT=%q: %v", v, err)
		} else {
			cfg.Port = port
		}
	}
	if v := os.Getenv("MCP_GATEWAY_AUTH_BYPASS"); v != "" {
		bypass, err := strconv.ParseBool(v)
		if err != nil {
			logging.Warn("ConfigLoader", "ignoring invalid MCP_GATEWAY_AUTH_BYPASS=%q: %v", v, err)
		} else {
			cfg.AuthBypass = bypass
		}
	}
	return cfg
}

// LoadUpstreams loads every *.yaml/*.yml file under <configPath>/upstreams,
// validating each with validator. Malformed or invalid files are collected
// rather than aborting the whole load, so one bad definition doesn't take
// every upstream down with it.
func LoadUpstreams(configPath string, validator func(UpstreamConfig) error) ([]UpstreamConfig, *ConfigurationErrorCollection, error) {
	dir := filepath.Join(configPath, upstreamsDir)
	errs := NewConfigurationErrorCollection()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs, nil
		}
		return nil, errs, fmt.Errorf("reading %s: %w", dir, err)
	}

	var defs []UpstreamConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs.Add(ConfigurationError{FilePath: path, FileName: name, Category: "upstreams", ErrorType: "io", Message: err.Error()})
			continue
		}

		var def UpstreamConfig
		if err := yaml.Unmarshal(data, &def); err != nil {
			errs.Add(ConfigurationError{FilePath: path, FileName: name, Category: "upstreams", ErrorType: "parse", Message: err.Error()})
			continue
		}
		if def.ID == "" {
			def.ID = strings.TrimSuffix(name, ext)
		}
		if validator != nil {
			if err := validator(def); err != nil {
				errs.Add(ConfigurationError{FilePath: path, FileName: name, Category: "upstreams", ErrorType: "validation", Message: err.Error()})
				continue
			}
		}
		defs = append(defs, def)
	}

	return defs, errs, nil
}

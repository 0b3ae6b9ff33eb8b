package config

import "time"

// Default values drawn from the specification's concurrency and HTTP sections.
const (
	DefaultPort                   = 3001
	DefaultSDKCompatPort          = 3002
	DefaultRequestTimeout         = 30 * time.Second
	DefaultConnectTimeout         = 30 * time.Second
	DefaultSessionIdleTimeout     = 60 * time.Minute
	DefaultSessionCleanupInterval = 10 * time.Minute
)

// GetDefaultConfig returns the gateway configuration used when no config.yaml
// is present, or to fill in zero-valued fields after a partial load.
func GetDefaultConfig() GatewayConfig {
	return GatewayConfig{
		Host:                   "0.0.0.0",
		Port:                   DefaultPort,
		SDKCompatPort:          DefaultSDKCompatPort,
		RequestTimeout:         DefaultRequestTimeout,
		ConnectTimeout:         DefaultConnectTimeout,
		SessionIdleTimeout:     DefaultSessionIdleTimeout,
		SessionCleanupInterval: DefaultSessionCleanupInterval,
	}
}

// applyDefaults fills any zero-valued field of cfg from GetDefaultConfig.
func applyDefaults(cfg GatewayConfig) GatewayConfig {
	defaults := GetDefaultConfig()
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.SDKCompatPort == 0 {
		cfg.SDKCompatPort = defaults.SDKCompatPort
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.SessionIdleTimeout == 0 {
		cfg.SessionIdleTimeout = defaults.SessionIdleTimeout
	}
	if cfg.SessionCleanupInterval == 0 {
		cfg.SessionCleanupInterval = defaults.SessionCleanupInterval
	}
	return cfg
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the bridge.
type Config struct {
	General     GeneralConfig     `json:"general"`
	Server      ServerConfig      `json:"server"`
	Twilio      TwilioConfig      `json:"twilio"`
	Recognition RecognitionConfig `json:"recognition"`
	Sessions    SessionsConfig    `json:"sessions"`
	Metrics     MetricsConfig     `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel    string `json:"logLevel"`
	EventBuffer int    `json:"eventBuffer"` // intake channel capacity
}

// ServerConfig configures the HTTP server hosting the webhook endpoint.
type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	EventStream bool   `json:"eventStream"` // expose the /events websocket feed
}

// TwilioConfig holds the provider account credentials. Both fields empty is
// a supported degraded mode: inbound processing works, outbound send does
// not. An account SID without an auth token is a configuration error.
type TwilioConfig struct {
	AccountSID      string `json:"accountSid,omitempty"`
	AuthToken       string `json:"authToken,omitempty"`
	ValidateOnStart bool   `json:"validateOnStart"` // verify credentials against the API at startup
}

// RecognitionConfig selects the intent recognizer: a remote engine when
// Endpoint is set, the local keyword matcher otherwise.
type RecognitionConfig struct {
	Endpoint       string `json:"endpoint,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	IntentsDir     string `json:"intentsDir,omitempty"` // YAML patterns for the keyword matcher
}

type SessionsConfig struct {
	DBPath string `json:"dbPath"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.smsbridge).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smsbridge"
	}
	return filepath.Join(home, ".smsbridge")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Sessions.DBPath = ExpandPath(cfg.Sessions.DBPath)
	cfg.Recognition.IntentsDir = ExpandPath(cfg.Recognition.IntentsDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.EventBuffer < 1 {
		errs = append(errs, "general.eventBuffer must be >= 1")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}

	// Partial credentials are a hard error; none at all is degraded mode.
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken == "" {
		errs = append(errs, "twilio.authToken is required when twilio.accountSid is set")
	}
	if cfg.Twilio.AccountSID == "" && cfg.Twilio.AuthToken != "" {
		errs = append(errs, "twilio.accountSid is required when twilio.authToken is set")
	}

	if cfg.Recognition.TimeoutSeconds < 1 {
		errs = append(errs, "recognition.timeoutSeconds must be >= 1")
	}
	if cfg.Sessions.DBPath == "" {
		errs = append(errs, "sessions.dbPath must not be empty")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Degraded reports whether the bridge runs without provider credentials:
// inbound dispatch still works, outbound send is disabled.
func (c *Config) Degraded() bool {
	return c.Twilio.AccountSID == "" && c.Twilio.AuthToken == ""
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

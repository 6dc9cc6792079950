package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Config is the root configuration for lorisbot.
type Config struct {
	General   GeneralConfig             `json:"general"`
	WhatsApp  WhatsAppConfig            `json:"whatsapp"`
	Providers map[string]ProviderConfig `json:"providers"`
	OCR       OCRConfig                 `json:"ocr"`
	Storage   StorageConfig             `json:"storage"`
}

type GeneralConfig struct {
	LogLevel        string   `json:"logLevel"`
	DefaultProvider string   `json:"defaultProvider"`
	FallbackChain   []string `json:"fallbackChain,omitempty"` // provider fallback order; default: defaultProvider first, then the rest
}

// WhatsAppConfig holds the Meta Graph API credentials and the inbound
// webhook surface.
type WhatsAppConfig struct {
	AccessToken   string `json:"accessToken"`
	VerifyToken   string `json:"verifyToken"`
	AppSecret     string `json:"appSecret,omitempty"` // enables X-Hub-Signature-256 verification when set
	PhoneNumberID string `json:"phoneNumberId"`
	APIVersion    string `json:"apiVersion"`
	WebhookPath   string `json:"webhookPath"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
}

type ProviderConfig struct {
	Enabled            bool   `json:"enabled"`
	APIBase            string `json:"apiBase,omitempty"`
	APIKey             string `json:"apiKey,omitempty"`
	Model              string `json:"model,omitempty"`
	TranscriptionModel string `json:"transcriptionModel,omitempty"`
}

type OCRConfig struct {
	Languages  []string `json:"languages"`            // tesseract language codes
	LabelsFile string   `json:"labelsFile,omitempty"` // optional YAML file extending the canonical receipt labels
}

type StorageConfig struct {
	DataDir    string `json:"dataDir"`
	LedgerPath string `json:"ledgerPath"`
}

// DefaultConfigDir returns the default config directory (~/.lorisbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lorisbot"
	}
	return filepath.Join(home, ".lorisbot")
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

	cfg.Storage.DataDir = ExpandPath(cfg.Storage.DataDir)
	cfg.Storage.LedgerPath = ExpandPath(cfg.Storage.LedgerPath)
	cfg.OCR.LabelsFile = ExpandPath(cfg.OCR.LabelsFile)

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

	return os.WriteFile(path, data, 0o644)
}

// ProviderOrder returns the provider names in fallback order: the explicit
// fallbackChain when configured, otherwise the default provider followed by
// every other enabled provider in stable (sorted) order.
func (c *Config) ProviderOrder() []string {
	if len(c.General.FallbackChain) > 0 {
		return c.General.FallbackChain
	}

	rest := make([]string, 0, len(c.Providers))
	for name, pc := range c.Providers {
		if !pc.Enabled || name == c.General.DefaultProvider {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)

	order := make([]string, 0, len(rest)+1)
	if pc, ok := c.Providers[c.General.DefaultProvider]; ok && pc.Enabled {
		order = append(order, c.General.DefaultProvider)
	}
	return append(order, rest...)
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

	if cfg.WhatsApp.Port < 0 || cfg.WhatsApp.Port > 65535 {
		errs = append(errs, "whatsapp.port must be between 0 and 65535")
	}
	if cfg.WhatsApp.VerifyToken == "" {
		errs = append(errs, "whatsapp.verifyToken is required")
	}
	if cfg.WhatsApp.APIVersion == "" {
		errs = append(errs, "whatsapp.apiVersion is required")
	}
	if !strings.HasPrefix(cfg.WhatsApp.WebhookPath, "/") {
		errs = append(errs, "whatsapp.webhookPath must start with /")
	}

	if cfg.Storage.DataDir == "" {
		errs = append(errs, "storage.dataDir is required")
	}

	// Validate fallback chain references exist in providers.
	for _, provName := range cfg.General.FallbackChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.fallbackChain references unknown provider: %s", provName))
		}
	}

	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.APIBase == "" && name != "ollama" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
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

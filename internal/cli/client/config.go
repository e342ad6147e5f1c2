package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// GlobalConfig holds the credentials persisted by `brandgov auth login`.
type GlobalConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// Keys are bg_ followed by 64 hex characters, the format minted by the
// server when a key is created.
var apiKeyPattern = regexp.MustCompile(`^bg_[0-9a-fA-F]{64}$`)

// IsValidAPIKey reports whether key matches the issued key format.
func IsValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// Path lookups go through vars so tests can point the config at a
// temp directory.
var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "brandgov"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform config directory for the CLI,
// e.g. ~/.config/brandgov on Linux.
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path of config.json.
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file is not an error;
// it returns a nil config so callers can fall through the credential
// cascade.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes config.json, creating the directory if
// needed. The file is mode 0600 since it holds a plaintext key.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes config.json. Deleting a config that was
// never written succeeds.
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// CredentialSource names where the active credentials were found.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnvFile      CredentialSource = "env_file"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource resolves credentials through the cascade:
// explicit flags, then BRANDGOV_API_KEY/BRANDGOV_API_URL, then the
// saved global config. Both key and URL must come from the same source.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	if flagAPIKey != "" && flagAPIURL != "" {
		return SourceFlag, flagAPIKey, flagAPIURL
	}

	envAPIKey := os.Getenv("BRANDGOV_API_KEY")
	envAPIURL := os.Getenv("BRANDGOV_API_URL")
	if envAPIKey != "" && envAPIURL != "" {
		return SourceEnvFile, envAPIKey, envAPIURL
	}

	if config, err := LoadGlobalConfig(); err == nil && config != nil &&
		config.APIKey != "" && config.APIURL != "" {
		return SourceGlobalConfig, config.APIKey, config.APIURL
	}

	return SourceNone, "", ""
}

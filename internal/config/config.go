package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the core components need. It is loaded once at
// startup and passed explicitly into each constructor.
type Config struct {
	DataDir    string
	APIBaseURL string

	CaptureInterval time.Duration
	SyncInterval    time.Duration
	// PersistInterval bounds how often a running session is written back to
	// the store between transitions.
	PersistInterval time.Duration

	OrgID       string
	WorkspaceID string
	UserID      string

	path string
}

// Credentials is the stored token pair for the sync endpoint.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func configHome() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting user home directory: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(homeDir, "AppData", "Roaming"), nil
	}
	return filepath.Join(homeDir, ".config"), nil
}

// Load reads (creating with defaults if missing) the worklens config file.
func Load() (*Config, error) {
	home, err := configHome()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, "worklens", "worklens.yml")
	return LoadFrom(path)
}

// LoadFrom reads the config file at an explicit path.
func LoadFrom(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating config directory: %w", err)
	}

	homeDir, _ := os.UserHomeDir()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(path)

	viper.SetDefault("data_dir", filepath.Join(homeDir, ".worklens"))
	viper.SetDefault("api.base_url", "https://api.worklens.app")
	viper.SetDefault("capture.interval", "5m")
	viper.SetDefault("sync.interval", "10m")
	viper.SetDefault("tracker.persist_interval", "60s")
	viper.SetDefault("org_id", "")
	viper.SetDefault("workspace_id", "")
	viper.SetDefault("user_id", "")
	viper.SetDefault("auth.access_token", "")
	viper.SetDefault("auth.refresh_token", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err := viper.WriteConfigAs(path); err != nil {
				return nil, fmt.Errorf("error creating config file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return &Config{
		DataDir:         viper.GetString("data_dir"),
		APIBaseURL:      viper.GetString("api.base_url"),
		CaptureInterval: viper.GetDuration("capture.interval"),
		SyncInterval:    viper.GetDuration("sync.interval"),
		PersistInterval: viper.GetDuration("tracker.persist_interval"),
		OrgID:           viper.GetString("org_id"),
		WorkspaceID:     viper.GetString("workspace_id"),
		UserID:          viper.GetString("user_id"),
		path:            path,
	}, nil
}

// Tokens returns the stored credential pair.
func (c *Config) Tokens() Credentials {
	return Credentials{
		AccessToken:  viper.GetString("auth.access_token"),
		RefreshToken: viper.GetString("auth.refresh_token"),
	}
}

// SaveTokens persists a rotated credential pair back to the config file.
func (c *Config) SaveTokens(creds Credentials) error {
	viper.Set("auth.access_token", creds.AccessToken)
	viper.Set("auth.refresh_token", creds.RefreshToken)
	return viper.WriteConfigAs(c.path)
}

// ClearTokens drops stored credentials, forcing a fresh login.
func (c *Config) ClearTokens() error {
	return c.SaveTokens(Credentials{})
}

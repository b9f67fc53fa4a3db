package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pinbot/core/log"
)

const (
	envPrefix = "PINBOT"

	keyToken          = "token"
	keyLogLevel       = "log_level"
	keyCleanupWorkers = "cleanup_workers"
	keyHealthAddr     = "health_addr"
	keyLockDir        = "lock_dir"

	DefaultConfigPath     = "config.json"
	DefaultCleanupWorkers = 4
)

type AppConfig struct {
	Token          string
	LogLevel       string // Optional with default "info"
	CleanupWorkers int    // Optional with default 4
	HealthAddr     string // Optional, health endpoint disabled when empty
	LockDir        string // Optional with default $TMPDIR/pinbot
}

// LoadConfig reads the JSON config file at path, then lets PINBOT_* environment variables
// (including ones from a .env file) override it. A missing file is fine as long as the
// token comes from the environment.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("⚠️ Could not load .env file, continuing with system env vars")
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyCleanupWorkers, DefaultCleanupWorkers)
	v.SetDefault(keyHealthAddr, "")
	v.SetDefault(keyLockDir, filepath.Join(os.TempDir(), "pinbot"))
	if err := v.BindEnv(keyToken); err != nil {
		return nil, fmt.Errorf("failed to bind token env var: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			log.Info("📋 Loaded config file", "path", path)
		} else if os.IsNotExist(err) {
			log.Info("⚠️ Config file not found, using environment only", "path", path)
		} else {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	config := &AppConfig{
		Token:          strings.TrimSpace(v.GetString(keyToken)),
		LogLevel:       v.GetString(keyLogLevel),
		CleanupWorkers: v.GetInt(keyCleanupWorkers),
		HealthAddr:     v.GetString(keyHealthAddr),
		LockDir:        v.GetString(keyLockDir),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the fields the bot can't start without
func (c *AppConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is not set (config file key %q or %s_TOKEN)", keyToken, envPrefix)
	}
	if c.CleanupWorkers < 1 {
		return fmt.Errorf("cleanup_workers must be at least 1, got %d", c.CleanupWorkers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LockDir == "" {
		return fmt.Errorf("lock_dir cannot be empty")
	}
	return nil
}

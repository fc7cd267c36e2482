package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentimages/hoster/internal/logger"
)

// Config holds the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      logger.Config  `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port       string `mapstructure:"port"`
	CORSOrigin string `mapstructure:"corsorigin"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	MigrationsPath string `mapstructure:"migrationspath"`
}

// StorageConfig holds MinIO connection settings.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accesskeyid"`
	SecretAccessKey string `mapstructure:"secretaccesskey"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"usessl"`
}

// AuthConfig holds identity-provider settings. SessionSecret verifies
// the HS256 session JWTs minted by the external identity provider.
type AuthConfig struct {
	SessionSecret string `mapstructure:"sessionsecret"`
}

// Load loads configuration from an optional .env file and environment
// variables with the given prefix (e.g. "AGENTIMAGES_") into target.
// AGENTIMAGES_DATABASE_HOST maps to database.host, and so on.
func Load(prefix string, target interface{}) error {
	v := viper.New()

	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// .env is optional; a parse problem surfaces during Unmarshal
			// if anything critical is missing.
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, prefixUpper) {
			// AGENTIMAGES_DATABASE_HOST -> database.host
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			propKey = strings.TrimPrefix(propKey, ".")

			v.Set(propKey, value)
		}
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// Defaults returns a Config with local development defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       "3001",
			CORSOrigin: "http://localhost:5173",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "agentimages",
			MigrationsPath: "./migrations",
		},
		Storage: StorageConfig{
			Bucket: "agent-images",
		},
		Log: logger.Config{
			Level:  "INFO",
			Format: "json",
		},
	}
}

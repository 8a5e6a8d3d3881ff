package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port      string `mapstructure:"port"`
		StaticDir string `mapstructure:"static_dir"`
		Debug     bool   `mapstructure:"debug"`
	} `mapstructure:"server"`

	Database struct {
		Backend string `mapstructure:"backend"` // "sqlite", "firestore" or "memory"
		Path    string `mapstructure:"path"`
	} `mapstructure:"database"`

	Firestore struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"firestore"`

	ML MLConfig `mapstructure:"ml"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// MLConfig selects and configures the model backend
type MLConfig struct {
	Type      string `mapstructure:"type"` // "google", "gemini", "ollama" or "local"
	ModelName string `mapstructure:"model_name"`

	Google struct {
		ProjectID       string `mapstructure:"project_id"`
		Location        string `mapstructure:"location"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"google"`

	Gemini struct {
		APIKey  string `mapstructure:"api_key"`
		Backend string `mapstructure:"backend"` // "gemini" or "vertex"
	} `mapstructure:"gemini"`

	Ollama struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"ollama"`
}

const envPrefix = "FOODDIARY"

var defaults = map[string]any{
	"server.port":                "8080",
	"server.static_dir":          "./static",
	"server.debug":               false,
	"database.backend":           "sqlite",
	"database.path":              "fooddiary.db",
	"firestore.project_id":       "",
	"firestore.credentials_file": "",
	"ml.type":                    "local",
	"ml.model_name":              "gemini-2.5-flash",
	"ml.google.project_id":       "",
	"ml.google.location":         "us-central1",
	"ml.google.credentials_file": "",
	"ml.gemini.api_key":          "",
	"ml.gemini.backend":          "gemini",
	"ml.ollama.url":              "http://localhost:11434",
	"auth.jwt_secret":            "",
	"log.level":                  "info",
}

// LoadConfig loads configuration from a JSON file, with FOODDIARY_* environment
// variables (and a .env file, if any) taking precedence. A missing file is not
// an error; every key has a default.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is not set in config file")
	}

	switch c.Database.Backend {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite backend")
		}
	case "firestore":
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore project_id is required for the firestore backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database backend: %s", c.Database.Backend)
	}

	switch c.ML.Type {
	case "google", "gemini", "ollama", "local":
	default:
		return fmt.Errorf("unsupported ml type: %s", c.ML.Type)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	GitHub  GitHubConfig
	Refresh RefreshConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type StorageConfig struct {
	DataPath          string
	SortColumn        string
	ScoreSettingsPath string
}

type GitHubConfig struct {
	Token       string
	APIURL      string
	HTTPTimeout time.Duration
}

type RefreshConfig struct {
	DaysBack          int
	ExcludePrivate    bool
	OnlyOrganizations bool
	Interval          time.Duration
}

type LogConfig struct {
	Level string
}

// Load loads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Storage: StorageConfig{
			DataPath:          getEnv("DATA_PATH", "data/people.csv"),
			SortColumn:        getEnv("SORT_COLUMN", "fullname"),
			ScoreSettingsPath: getEnv("SCORE_SETTINGS_PATH", ""),
		},
		GitHub: GitHubConfig{
			Token:       getEnv("GITHUB_TOKEN", ""),
			APIURL:      normalizeAPIURL(getEnv("GITHUB_API_URL", "https://api.github.com/")),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Refresh: RefreshConfig{
			DaysBack:          getEnvAsInt("DAYS_BACK", 365),
			ExcludePrivate:    getEnvAsBool("EXCLUDE_PRIVATE", false),
			OnlyOrganizations: getEnvAsBool("ONLY_ORGANIZATIONS", false),
			Interval:          getEnvAsDuration("REFRESH_INTERVAL", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// normalizeAPIURL makes sure the base URL ends with a slash, which go-github
// requires for relative request paths.
func normalizeAPIURL(apiURL string) string {
	apiURL = strings.TrimSuffix(apiURL, "graphql")
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return apiURL
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as time.Duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

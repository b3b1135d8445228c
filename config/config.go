package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Storage StorageConfig
	JWT     JWTConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type StorageConfig struct {
	DataDir      string
	DocumentFile string
	HistoryFile  string
	UsersFile    string
	LoginLogFile string
}

type JWTConfig struct {
	SecretKey  string
	TTLMinutes int
}

type AuthConfig struct {
	BootstrapAdmin    string
	BootstrapPassword string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			HTTPPort: getEnv("HTTP_PORT", ":8080"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Storage: StorageConfig{
			DataDir:      getEnv("DATA_DIR", "data"),
			DocumentFile: getEnv("DOCUMENT_FILE", "inventory_data.json"),
			HistoryFile:  getEnv("HISTORY_FILE", "inventory_data.history.jsonl"),
			UsersFile:    getEnv("USERS_FILE", "users.json"),
			LoginLogFile: getEnv("LOGIN_LOG_FILE", "login_logs.db"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-this-in-prod"),
			TTLMinutes: getEnvInt("JWT_TTL_MINUTES", 12*60),
		},
		Auth: AuthConfig{
			BootstrapAdmin:    getEnv("BOOTSTRAP_ADMIN", "admin"),
			BootstrapPassword: getEnv("BOOTSTRAP_PASSWORD", "admin123"),
		},
	}
}

// DocumentPath returns the ledger document location under the data dir.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DocumentFile)
}

func (c *Config) HistoryPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.HistoryFile)
}

func (c *Config) UsersPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.UsersFile)
}

func (c *Config) LoginLogPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.LoginLogFile)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

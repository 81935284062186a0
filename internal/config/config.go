package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	CompletionProvider string
	CompletionAPIKey   string
	CompletionBaseURL  string
	CompletionModel    string
	StorageBackend     string
	DataDir            string
	DatabaseURL        string
	RoomsFile          string
	HistoryWindow      int
	HTTPPort           string
	LogLevel           string
	JWTSecret          string
}

var AppConfig Config

// LoadConfig populates AppConfig and exits the process when it is unusable.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg
}

// LoadStorageConfig is LoadConfig for commands that only touch storage, such
// as history pruning. Completion and auth settings are not required.
func LoadStorageConfig() {
	cfg, err := LoadStorage()
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg
}

// Load reads and validates the full server configuration.
func Load() (Config, error) {
	cfg, err := LoadStorage()
	if err != nil {
		return cfg, err
	}

	if cfg.CompletionAPIKey == "" {
		return cfg, fmt.Errorf("COMPLETION_API_KEY environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch cfg.CompletionProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return cfg, fmt.Errorf("unknown COMPLETION_PROVIDER %q", cfg.CompletionProvider)
	}

	return cfg, nil
}

// LoadStorage reads the configuration and validates only the storage settings.
func LoadStorage() (Config, error) {
	if err := godotenv.Load(); err != nil { // Load .env file if it exists
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := Config{
		CompletionProvider: strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderOpenAI)),
		CompletionAPIKey:   getEnv("COMPLETION_API_KEY", ""),
		CompletionBaseURL:  getEnv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
		CompletionModel:    getEnv("COMPLETION_MODEL", ""),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		DataDir:            getEnv("DATA_DIR", "data"),
		DatabaseURL:        getEnv("DATABASE_URL", "reply_engine.db"),
		RoomsFile:          getEnv("ROOMS_FILE", ""),
		HistoryWindow:      getEnvAsInt("HISTORY_WINDOW", 5),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
	}

	switch cfg.StorageBackend {
	case BackendFile, BackendMemory, BackendSQLite:
	default:
		return cfg, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

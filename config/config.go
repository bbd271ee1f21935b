package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	// TransportStdio serves the tool surface over standard input/output.
	TransportStdio = "stdio"
	// TransportHTTP serves the tool surface over streamable HTTP.
	TransportHTTP = "http"
)

type AppConfig struct {
	// Port web server port when Transport is "http"
	Port string
	// Transport is either "stdio" or "http"
	Transport string

	// AppEnv represent the environment in which the server runs
	AppEnv string

	// DataStore used as the data store implementation: memory, sqlite or postgresql
	DataStore string
	// DatabaseURL is the PostgreSQL connection string when DataStore is postgresql
	DatabaseURL string
	// StoragePath is the SQLite database file when DataStore is sqlite
	StoragePath string
	// SearchIndexPath is the on-disk bleve index, in-memory when empty
	SearchIndexPath string

	// MaxFunctions caps how many functions the catalog may hold
	MaxFunctions int
	// ExecTimeoutSeconds bounds a single code execution
	ExecTimeoutSeconds int

	// EnableExecution turns the execute_code / execute_with_functions tools on
	EnableExecution bool
	// EnableFunctionStore turns the function catalog tools on
	EnableFunctionStore bool

	// AWSRegion default region forwarded into the helper bindings
	AWSRegion string
	// AWSProfile default shared-credentials profile for the helper bindings
	AWSProfile string

	// RedisURL URL for Redis
	RedisURL string
	// RedisHost if RedisURL is not used, host for Redis
	RedisHost string
	// RedisPassword if RedisURL is not used, password for Redis
	RedisPassword string

	// LogFilename writes logs to this file on top of the console when set
	LogFilename string
	// LogConsoleLevel minimum level for log output
	LogConsoleLevel string
}

func LoadConfig() AppConfig {
	return AppConfig{
		Port:                getenv("PORT", "8099"),
		Transport:           getenv("TRANSPORT", TransportStdio),
		AppEnv:              os.Getenv("APP_ENV"),
		DataStore:           getenv("DATA_STORE", "sqlite"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StoragePath:         getenv("STORAGE_PATH", "data/functions.db"),
		SearchIndexPath:     os.Getenv("SEARCH_INDEX_PATH"),
		MaxFunctions:        getint("MAX_FUNCTIONS", 20),
		ExecTimeoutSeconds:  getint("EXECUTION_TIMEOUT", 300),
		EnableExecution:     getbool("ENABLE_CODE_EXECUTION", true),
		EnableFunctionStore: getbool("ENABLE_FUNCTION_STORAGE", true),
		AWSRegion:           getenv("AWS_DEFAULT_REGION", "us-east-1"),
		AWSProfile:          os.Getenv("AWS_PROFILE"),
		RedisURL:            os.Getenv("REDIS_URL"),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		LogFilename:         os.Getenv("LOG_FILENAME"),
		LogConsoleLevel:     os.Getenv("LOG_LEVEL"),
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getbool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"macroclock/version"

	"github.com/joho/godotenv"
)

// Config holds the settings bridge runtime configuration.
type Config struct {
	LogLevel    string
	LogFilePath string
	Port        int

	// Key-value store backing the settings record
	StoreBackend         string // sqlite, badger, pebble, memory
	DatabaseURL          string
	DataDir              string
	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int
	SQLiteConnMaxIdleSec int
	SQLiteConnMaxLifeSec int
	BadgerSyncWrites     bool

	// Configuration page and record slot
	ConfigHost   string
	ConfigLayout string // classic, beta
	StorageKey   string

	// Watchface message delivery
	AckTimeoutSeconds    int
	DeliveryMaxRetries   int
	DeliveryBackoffMS    int
	DeliveryMaxBackoffMS int

	CLIMode   bool
	CLIServer string // Server URL for CLI mode
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = FromEnv()
}

// FromEnv builds a Config from environment variables, falling back to defaults.
func FromEnv() *Config {
	return &Config{
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		LogFilePath: getEnv("LOG_FILE", "./macroclock.log"),
		Port:        getEnvInt("PORT", 7790),

		StoreBackend:         getEnv("STORE_BACKEND", "sqlite"),
		DatabaseURL:          getEnv("DATABASE_URL", "macroclock.db"),
		DataDir:              getEnv("DATA_DIR", "./data"),
		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),
		SQLiteConnMaxIdleSec: getEnvInt("SQLITE_CONN_MAX_IDLE_SECONDS", 300),
		SQLiteConnMaxLifeSec: getEnvInt("SQLITE_CONN_MAX_LIFETIME_SECONDS", 0),
		BadgerSyncWrites:     getEnvBool("BADGER_SYNC_WRITES", true),

		ConfigHost:   getEnv("CONFIG_HOST", "dustinhu.com/projects/library/MacroClock"),
		ConfigLayout: getEnv("CONFIG_LAYOUT", "classic"),
		StorageKey:   getEnv("STORAGE_KEY", "macroClockOptions"),

		AckTimeoutSeconds:    getEnvInt("ACK_TIMEOUT_SECONDS", 10),
		DeliveryMaxRetries:   getEnvInt("DELIVERY_MAX_RETRIES", 0),
		DeliveryBackoffMS:    getEnvInt("DELIVERY_BACKOFF_MS", 500),
		DeliveryMaxBackoffMS: getEnvInt("DELIVERY_MAX_BACKOFF_MS", 8000),

		CLIMode:   getEnvBool("CLI_MODE", false),
		CLIServer: getEnv("CLI_SERVER", "http://localhost:7790"),
	}
}

// LoadDotEnv loads variables from a .env file in the working directory.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags loads .env, rebuilds Settings from the environment and applies command-line overrides.
// It handles --help (prints usage and exits) and --version (prints build info and exits).
func ParseFlags() {
	if err := LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	Settings = FromEnv()

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "MacroClock settings bridge\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables (also read from ./.env):")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path (default ./macroclock.log)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 7790)")
		fmt.Fprintln(out, "  STORE_BACKEND                     Settings store: sqlite, badger, pebble, memory (default sqlite)")
		fmt.Fprintln(out, "  DATABASE_URL                      SQLite database path (default macroclock.db)")
		fmt.Fprintln(out, "  DATA_DIR                          Directory for badger/pebble stores (default ./data)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  SQLITE_MAX_OPEN_CONNS             SQLite MaxOpenConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_MAX_IDLE_CONNS             SQLite MaxIdleConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_IDLE_SECONDS      SQLite ConnMaxIdleTime in seconds (default 300)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_LIFETIME_SECONDS  SQLite ConnMaxLifetime in seconds (default 0)")
		fmt.Fprintln(out, "  BADGER_SYNC_WRITES                Sync badger writes to disk (default true)")
		fmt.Fprintln(out, "  CONFIG_HOST                       Host and path of the configuration pages")
		fmt.Fprintln(out, "  CONFIG_LAYOUT                     Configuration page layout: classic, beta (default classic)")
		fmt.Fprintln(out, "  STORAGE_KEY                       Key of the settings record (default macroClockOptions)")
		fmt.Fprintln(out, "  ACK_TIMEOUT_SECONDS               Seconds to wait for a watchface ack (default 10)")
		fmt.Fprintln(out, "  DELIVERY_MAX_RETRIES              Retries after a rejected delivery (default 0)")
		fmt.Fprintln(out, "  DELIVERY_BACKOFF_MS               Initial retry backoff in ms (default 500)")
		fmt.Fprintln(out, "  DELIVERY_MAX_BACKOFF_MS           Maximum retry backoff in ms (default 8000)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	storeBackend := flag.String("store", Settings.StoreBackend, "Settings store backend (overrides STORE_BACKEND)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	dataDir := flag.String("data-dir", Settings.DataDir, "Data directory for badger/pebble (overrides DATA_DIR)")
	sqlitePragmasEnabled := flag.Bool("sqlite-pragmas", Settings.SQLitePragmasEnabled, "Enable SQLite PRAGMAs (overrides SQLITE_PRAGMAS_ENABLED)")
	sqliteJournalMode := flag.String("sqlite-journal-mode", Settings.SQLiteJournalMode, "SQLite journal_mode (overrides SQLITE_JOURNAL_MODE)")
	configHost := flag.String("config-host", Settings.ConfigHost, "Host and path of the configuration pages (overrides CONFIG_HOST)")
	configLayout := flag.String("layout", Settings.ConfigLayout, "Configuration page layout: classic or beta (overrides CONFIG_LAYOUT)")
	storageKey := flag.String("storage-key", Settings.StorageKey, "Key of the stored settings record (overrides STORAGE_KEY)")
	ackTimeout := flag.Int("ack-timeout", Settings.AckTimeoutSeconds, "Seconds to wait for watchface ack (overrides ACK_TIMEOUT_SECONDS)")
	maxRetries := flag.Int("retries", Settings.DeliveryMaxRetries, "Retries after a rejected delivery (overrides DELIVERY_MAX_RETRIES)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (HTTP client only, no store)")
	cliServer := flag.String("server", Settings.CLIServer, "Server URL for CLI mode")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	Settings.Port = *port
	Settings.StoreBackend = *storeBackend
	Settings.DatabaseURL = *db
	Settings.DataDir = *dataDir
	Settings.SQLitePragmasEnabled = *sqlitePragmasEnabled
	Settings.SQLiteJournalMode = *sqliteJournalMode
	Settings.ConfigHost = *configHost
	Settings.ConfigLayout = *configLayout
	Settings.StorageKey = *storageKey
	Settings.AckTimeoutSeconds = *ackTimeout
	Settings.DeliveryMaxRetries = *maxRetries
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

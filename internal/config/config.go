package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	runAddr       string
	logLevel      string
	dataBaseDSN   string
	redisAddr     string
	redisPassword string
	redisDB       int
	storeBackend  string
	sessionSecret string
	sessionTTL    time.Duration
	purgeInterval time.Duration
	catalogFile   string
	migrationsDir string
	appEnv        string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	loadEnvFile()

	if err := o.parse(flag.CommandLine, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// Parse builds Options from args without touching the global flag set.
// Environment variables still provide the defaults.
func Parse(args []string) (*Options, error) {
	o := NewOptions()
	fs := flag.NewFlagSet("cartwidget", flag.ContinueOnError)
	return o, o.parse(fs, args)
}

func (o *Options) parse(fs *flag.FlagSet, args []string) error {
	// Environment values become the flag defaults, so flags win over env.
	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string")
	fs.StringVar(&o.redisAddr, "r", getEnvOrDefault("REDIS_ADDRESS", ""), "redis address")
	fs.StringVar(&o.redisPassword, "redis-password", getEnvOrDefault("REDIS_PASSWORD", ""), "redis password")
	fs.IntVar(&o.redisDB, "redis-db", getEnvIntOrDefault("REDIS_DB", 0), "redis database number")
	fs.StringVar(&o.storeBackend, "s", getEnvOrDefault("STORE_BACKEND", BackendMemory), "session store backend: memory, redis or postgres")
	fs.StringVar(&o.sessionSecret, "k", getEnvOrDefault("SESSION_SECRET", ""), "session cookie signing key")
	fs.DurationVar(&o.sessionTTL, "t", getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour), "idle time after which a session is dropped")
	fs.DurationVar(&o.purgeInterval, "p", getEnvDurationOrDefault("PURGE_INTERVAL", 10*time.Minute), "how often idle sessions are purged")
	fs.StringVar(&o.catalogFile, "c", getEnvOrDefault("CATALOG_FILE", ""), "product catalog YAML file")
	fs.StringVar(&o.migrationsDir, "m", getEnvOrDefault("MIGRATIONS_DIR", "migrations"), "database migrations directory")
	fs.StringVar(&o.appEnv, "e", getEnvOrDefault("APP_ENV", "development"), "application environment")

	if err := fs.Parse(args); err != nil {
		return err
	}
	return o.validate()
}

func (o *Options) validate() error {
	switch o.storeBackend {
	case BackendMemory:
	case BackendRedis:
		if o.redisAddr == "" {
			return fmt.Errorf("store backend %q requires REDIS_ADDRESS", o.storeBackend)
		}
	case BackendPostgres:
		if o.dataBaseDSN == "" {
			return fmt.Errorf("store backend %q requires DATABASE_URI", o.storeBackend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", o.storeBackend)
	}

	if o.sessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", o.sessionTTL)
	}
	if o.purgeInterval <= 0 {
		return fmt.Errorf("purge interval must be positive, got %s", o.purgeInterval)
	}
	if o.IsProduction() && len(o.sessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in production")
	}
	return nil
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) RedisAddr() string {
	return o.redisAddr
}

func (o *Options) RedisPassword() string {
	return o.redisPassword
}

func (o *Options) RedisDB() int {
	return o.redisDB
}

func (o *Options) StoreBackend() string {
	return o.storeBackend
}

// SessionSecret returns the cookie signing key. Outside production an empty
// secret falls back to a fixed development key.
func (o *Options) SessionSecret() string {
	if o.sessionSecret == "" && !o.IsProduction() {
		return "cartwidget-development-secret-key"
	}
	return o.sessionSecret
}

func (o *Options) SessionTTL() time.Duration {
	return o.sessionTTL
}

func (o *Options) PurgeInterval() time.Duration {
	return o.purgeInterval
}

func (o *Options) CatalogFile() string {
	return o.catalogFile
}

func (o *Options) MigrationsDir() string {
	return o.migrationsDir
}

func (o *Options) IsProduction() bool {
	return o.appEnv == "production"
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// loadEnvFile loads environment variables from a .env file in the working
// directory or two levels up. Existing variables are never overridden.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for _, envPath := range []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "..", "..", ".env"),
	} {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf(".env file loaded from %s", envPath)
			return
		}
	}
	log.Printf("No .env file found, proceeding without it")
}

package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

const (
    DriverPostgres = "postgres"
    DriverMemory   = "memory"
)

type Config struct {
    Env        string
    ListenAddr string

    StoreDriver     string
    DatabaseURL     string
    MigrateOnStart  bool
    CatalogSeedFile string

    RedisAddr     string
    RedisPassword string
    RedisDB       int

    OverviewCacheTTL        time.Duration
    OverviewRefreshInterval time.Duration
    ActivationRetries       int

    LogLevel  string
    LogFormat string
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set win over the file.
func Load() (Config, error) {
    _ = godotenv.Load()

    cfg := Config{
        Env:                     getenv("APP_ENV", "development"),
        ListenAddr:              getenv("LISTEN_ADDR", ":8080"),
        StoreDriver:             getenv("STORE_DRIVER", DriverPostgres),
        DatabaseURL:             os.Getenv("DATABASE_URL"),
        MigrateOnStart:          getenvBool("MIGRATE_ON_START", true),
        CatalogSeedFile:         os.Getenv("CATALOG_SEED_FILE"),
        RedisAddr:               os.Getenv("REDIS_ADDR"),
        RedisPassword:           os.Getenv("REDIS_PASSWORD"),
        RedisDB:                 getenvInt("REDIS_DB", 0),
        OverviewCacheTTL:        getenvDuration("OVERVIEW_CACHE_TTL", 5*time.Minute),
        OverviewRefreshInterval: getenvDuration("OVERVIEW_REFRESH_INTERVAL", time.Minute),
        ActivationRetries:       getenvInt("ACTIVATION_RETRIES", 3),
        LogLevel:                getenv("LOG_LEVEL", "info"),
        LogFormat:               getenv("LOG_FORMAT", "json"),
    }
    switch cfg.StoreDriver {
    case DriverPostgres:
        if cfg.DatabaseURL == "" {
            return cfg, fmt.Errorf("DATABASE_URL is required with STORE_DRIVER=%s", DriverPostgres)
        }
    case DriverMemory:
        if cfg.CatalogSeedFile == "" {
            return cfg, fmt.Errorf("CATALOG_SEED_FILE is required with STORE_DRIVER=%s", DriverMemory)
        }
    default:
        return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
    }
    if cfg.ActivationRetries < 0 {
        return cfg, fmt.Errorf("ACTIVATION_RETRIES must not be negative")
    }
    return cfg, nil
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var out int
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil {
            return out
        }
    }
    return def
}

func getenvBool(key string, def bool) bool {
    if v := os.Getenv(key); v != "" {
        if b, err := strconv.ParseBool(v); err == nil {
            return b
        }
    }
    return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil {
            return d
        }
    }
    return def
}

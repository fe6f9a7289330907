package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Wildberries WBConfig
	Costs       CostConfig
	Cache       CacheConfig
	Storage     StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// WBConfig holds marketplace API access and pacing settings. The sales
// history endpoint rejects callers faster than one batch of 20 items per
// ~20 seconds, so the pause defaults to exactly that.
type WBConfig struct {
	APIKey         string
	BatchSize      int
	BatchPause     time.Duration
	RequestTimeout time.Duration
}

// CostConfig holds baselines applied when an item has no persisted cost
// components yet. Tax and defect rate are percentages of sale price.
type CostConfig struct {
	TaxPercent         float64
	DefectPercent      float64
	AcquiringSurcharge float64
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig configures the optional S3-compatible upload target for
// ledger Excel exports.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8000")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "wildberries")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("WB_API_KEY", "")
		viper.SetDefault("WB_BATCH_SIZE", 20)
		viper.SetDefault("WB_BATCH_PAUSE_SECONDS", 20)
		viper.SetDefault("WB_REQUEST_TIMEOUT_SECONDS", 30)
		viper.SetDefault("COST_TAX_PERCENT", 12.0)
		viper.SetDefault("COST_DEFECT_PERCENT", 2.0)
		viper.SetDefault("COST_ACQUIRING_SURCHARGE", 1.1)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "ledger-exports")
		viper.SetDefault("STORAGE_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Wildberries: WBConfig{
				APIKey:         viper.GetString("WB_API_KEY"),
				BatchSize:      viper.GetInt("WB_BATCH_SIZE"),
				BatchPause:     time.Duration(viper.GetInt("WB_BATCH_PAUSE_SECONDS")) * time.Second,
				RequestTimeout: time.Duration(viper.GetInt("WB_REQUEST_TIMEOUT_SECONDS")) * time.Second,
			},
			Costs: CostConfig{
				TaxPercent:         viper.GetFloat64("COST_TAX_PERCENT"),
				DefectPercent:      viper.GetFloat64("COST_DEFECT_PERCENT"),
				AcquiringSurcharge: viper.GetFloat64("COST_ACQUIRING_SURCHARGE"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
		}
	})

	return instance
}

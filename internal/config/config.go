package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the server settings read from the environment (and .env when present).
type Config struct {
	DatabaseURL       string   `mapstructure:"database_url"`
	Port              string   `mapstructure:"port"`
	CORSOrigins       []string `mapstructure:"-"`
	LogLevel          string   `mapstructure:"log_level"`
	GinMode           string   `mapstructure:"gin_mode"`
	FuzzyThreshold    float64  `mapstructure:"fuzzy_threshold"`
	SimilarityScorer  string   `mapstructure:"similarity_scorer"`
	MaxBatchSize      int      `mapstructure:"max_batch_size"`
	BootstrapAPIToken string   `mapstructure:"bootstrap_api_token"`
	BootstrapUserID   string   `mapstructure:"bootstrap_user_id"`
}

// Load reads .env (if any) and the process environment. envLoaded reports whether a .env file was found.
func Load() (cfg *Config, envLoaded bool, err error) {
	envLoaded = godotenv.Load() == nil

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range []string{"database_url", "port", "cors_origins", "log_level", "gin_mode",
		"fuzzy_threshold", "similarity_scorer", "max_batch_size", "bootstrap_api_token", "bootstrap_user_id"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, envLoaded, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg, err = fromViper(v)
	return cfg, envLoaded, err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("fuzzy_threshold", 0.7)
	v.SetDefault("similarity_scorer", "token")
	v.SetDefault("max_batch_size", 100)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		return nil, fmt.Errorf("FUZZY_THRESHOLD must be in (0, 1], got %v", cfg.FuzzyThreshold)
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", cfg.MaxBatchSize)
	}
	return &cfg, nil
}

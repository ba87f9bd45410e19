package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/match-engine/internal/api"
	"github.com/spigell/match-engine/internal/marketplace"
	"github.com/spigell/match-engine/internal/matching"
	"github.com/spigell/match-engine/internal/store/postgres"
)

const (
	app = "match-engine"
)

type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Matching  matching.Config `mapstructure:"matching"`
	Server    api.Config      `mapstructure:"server"`
}

type StoreConfig struct {
	// Backend is one of memory, postgres or marketplace.
	Backend     string            `mapstructure:"backend"`
	Fixture     string            `mapstructure:"fixture"`
	Postgres    postgres.Config   `mapstructure:"postgres"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
}

type MarketplaceConfig struct {
	marketplace.Config `mapstructure:",squash"`
	TokenFile          string `mapstructure:"token-file"`
}

type EmbeddingConfig struct {
	// Provider is one of gemini, openai or none.
	Provider string        `mapstructure:"provider"`
	MemoSize int           `mapstructure:"memo-size"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	MaxRetries        int     `mapstructure:"max-retries"`
	Dimensions        int     `mapstructure:"dimensions"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type OpenAIConfig struct {
	APIKeyFile        string  `mapstructure:"api-key-file"`
	BaseURL           string  `mapstructure:"base-url"`
	Model             string  `mapstructure:"model"`
	MaxRetries        int     `mapstructure:"max-retries"`
	Dimensions        int     `mapstructure:"dimensions"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	// RedisURL enables the shared second cache tier when set.
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "match-engine ranks jobs for professionals and professionals for jobs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"embedding.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"embedding.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"store.marketplace.token-file":  "MARKETPLACE_TOKEN_FILE",
		"store.postgres.url":            "DATABASE_URL",
		"cache.redis-url":               "REDIS_URL",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is match-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Without a config file every setting falls back to its default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	GitHub    GitHubConfig    `mapstructure:"github"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Meta      MetaConfig      `mapstructure:"meta"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Indexing  IndexingConfig  `mapstructure:"indexing"`
	Log       LogConfig       `mapstructure:"log"`
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

// VectorConfig points at the Qdrant instance holding chunk vectors.
type VectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MetaConfig locates the Badger database holding collection metadata.
type MetaConfig struct {
	Path string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "ollama" or "openai"
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	NLPModel  string `mapstructure:"nlp_model"`
	CodeModel string `mapstructure:"code_model"`
	BatchSize int    `mapstructure:"batch_size"`
}

type IndexingConfig struct {
	Workers      int           `mapstructure:"workers"`       // per-file parse+extract concurrency
	JobPoolSize  int           `mapstructure:"job_pool_size"` // concurrent background jobs
	MaxFileSize  int64         `mapstructure:"max_file_size"` // bytes, per-file ceiling
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		warnings = append(warnings, "embedding provider 'openai' is configured but api_key is empty")
	}
	if c.Embedding.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("embedding batch_size %d is not positive, using default", c.Embedding.BatchSize))
	}
	if c.Indexing.MaxFileSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("indexing max_file_size %d is not positive, using default", c.Indexing.MaxFileSize))
	}
	if c.Indexing.FetchTimeout < 0 {
		warnings = append(warnings, "indexing fetch_timeout is negative")
	}

	return warnings
}

// Load reads configuration from file and environment. Environment variables
// use the BEE2BEE_ prefix with sections joined by underscores, e.g.
// BEE2BEE_GITHUB_TOKEN overrides github.token.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BEE2BEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("meta.path", ".bee2bee/meta")
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.nlp_model", "nomic-embed-text")
	v.SetDefault("embedding.code_model", "unclemusclez/jina-embeddings-v2-base-code")
	v.SetDefault("embedding.batch_size", 50)
	v.SetDefault("indexing.workers", 0) // 0 = NumCPU
	v.SetDefault("indexing.job_pool_size", 4)
	v.SetDefault("indexing.max_file_size", 1<<20)
	v.SetDefault("indexing.fetch_timeout", 120*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

package config

import (
	"time"

	"github.com/tclab/textbench/internal/cache"
)

// Config represents the main configuration structure
type Config struct {
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`
	Encoder   EncoderConfig   `yaml:"encoder" mapstructure:"encoder"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Cache     cache.Config    `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ArtifactsConfig locates the model and preprocessing artifacts
type ArtifactsConfig struct {
	ModelPath  string `yaml:"model_path" mapstructure:"model_path"`
	VocabPath  string `yaml:"vocab_path" mapstructure:"vocab_path"`
	ScalerPath string `yaml:"scaler_path" mapstructure:"scaler_path"`
	TokensPath string `yaml:"tokens_path" mapstructure:"tokens_path"`
	LabelsPath string `yaml:"labels_path" mapstructure:"labels_path"`
}

// EncoderConfig selects and parameterizes the feature encoder
type EncoderConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // tfidf or sequence
	// Normalize enables L2 normalization of TF-IDF vectors. Fixed per
	// deployment to match model training; never decided per input.
	Normalize      bool `yaml:"normalize" mapstructure:"normalize"`
	SequenceLength int  `yaml:"sequence_length" mapstructure:"sequence_length"`
	// Scale applies standardization on the tfidf path
	Scale bool `yaml:"scale" mapstructure:"scale"`
}

// MonitorConfig contains resource sampling configuration
type MonitorConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval" mapstructure:"sample_interval"`
}

// BenchmarkConfig contains benchmark harness configuration
type BenchmarkConfig struct {
	Warmup int `yaml:"warmup" mapstructure:"warmup"`
	// TargetRate paces iterations per second; 0 runs back to back
	TargetRate float64 `yaml:"target_rate" mapstructure:"target_rate"`
	// DatabaseURL, when set, enables the Postgres result sink
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Artifacts: ArtifactsConfig{
			ModelPath:  "./models/classifier.onnx",
			VocabPath:  "./models/tfidf_vocab.json",
			ScalerPath: "./models/scaler.json",
			TokensPath: "./models/token_map.json",
			LabelsPath: "./models/labels.json",
		},
		Encoder: EncoderConfig{
			Type:           "tfidf",
			Normalize:      false,
			SequenceLength: 30,
			Scale:          true,
		},
		Monitor: MonitorConfig{
			SampleInterval: 100 * time.Millisecond,
		},
		Benchmark: BenchmarkConfig{
			Warmup:     5,
			TargetRate: 0,
		},
		Cache: cache.Config{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			KeyPrefix:      "textbench",
			DefaultTTL:     6 * time.Hour,
			MaxConnections: 10,
			MinIdleConns:   2,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

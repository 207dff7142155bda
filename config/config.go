package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Optionflow OptionflowConfig `yaml:"optionflow"`
	Reader     ReaderConfig     `yaml:"reader"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Writer     WriterConfig     `yaml:"writer"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type OptionflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	CloudWatch     bool          `yaml:"cloudwatch"`
	Namespace      string        `yaml:"namespace"`
	Region         string        `yaml:"region"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

type ReaderConfig struct {
	InputDir string `yaml:"input_dir"`
	Pattern  string `yaml:"pattern"`
}

// AnalyticsConfig carries the fixed constants of the derivation pipeline.
// Defaults match the reference weighting: 0.4 price/OI, 0.3 price/volume,
// 0.3 mean OI imbalance, with 0.7/0.4 correlation strength cutoffs.
type AnalyticsConfig struct {
	Epsilon    float64          `yaml:"epsilon"`
	Weights    WeightsConfig    `yaml:"weights"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

type WeightsConfig struct {
	PriceOI     float64 `yaml:"price_oi"`
	PriceVolume float64 `yaml:"price_volume"`
	OIImbalance float64 `yaml:"oi_imbalance"`
}

type ThresholdsConfig struct {
	Strong   float64 `yaml:"strong"`
	Moderate float64 `yaml:"moderate"`
}

type WriterConfig struct {
	OutputDir    string             `yaml:"output_dir"`
	Formats      FormatsConfig      `yaml:"formats"`
	Partitioning PartitioningConfig `yaml:"partitioning"`
}

type FormatsConfig struct {
	CSV     bool          `yaml:"csv"`
	Parquet ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type PartitioningConfig struct {
	TimeFormat     string   `yaml:"time_format"`
	AdditionalKeys []string `yaml:"additional_keys"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Analytics: AnalyticsConfig{
			Epsilon: 1e-9,
			Weights: WeightsConfig{
				PriceOI:     0.4,
				PriceVolume: 0.3,
				OIImbalance: 0.3,
			},
			Thresholds: ThresholdsConfig{
				Strong:   0.7,
				Moderate: 0.4,
			},
		},
		Reader: ReaderConfig{Pattern: "*.csv"},
		Writer: WriterConfig{
			Formats: FormatsConfig{CSV: true},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Optionflow.Name == "" {
		return fmt.Errorf("optionflow.name is required")
	}

	if cfg.Optionflow.Version == "" {
		return fmt.Errorf("optionflow.version is required")
	}

	if cfg.Analytics.Epsilon <= 0 {
		return fmt.Errorf("analytics.epsilon must be greater than 0")
	}

	w := cfg.Analytics.Weights
	if w.PriceOI < 0 || w.PriceVolume < 0 || w.OIImbalance < 0 {
		return fmt.Errorf("analytics.weights must not be negative")
	}
	if w.PriceOI+w.PriceVolume+w.OIImbalance == 0 {
		return fmt.Errorf("analytics.weights must not all be zero")
	}

	th := cfg.Analytics.Thresholds
	if th.Moderate <= 0 || th.Strong <= th.Moderate || th.Strong > 1 {
		return fmt.Errorf("analytics.thresholds require 0 < moderate < strong <= 1")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	Output   OutputConfig   `yaml:"output"   mapstructure:"output"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server   ServerConfig   `yaml:"server"   mapstructure:"server"`
}

// OutputConfig represents report output settings
type OutputConfig struct {
	File   string `yaml:"file"   mapstructure:"file"`
	Format string `yaml:"format" mapstructure:"format"` // json, csv, html, summary
	Title  string `yaml:"title"  mapstructure:"title"`
}

// AnalysisConfig represents analysis tuning settings
type AnalysisConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	DecodeWorkers  int `yaml:"decode_workers"  mapstructure:"decode_workers"`
}

// ServerConfig represents the HTTP surface settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
	APIKey     string `yaml:"api_key"     mapstructure:"api_key"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func LoadConfig(configPath string) (*Config, error) {
	// Create a new Viper instance to avoid data races in concurrent tests
	v := viper.New()

	setDefaultValues(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("output.file", "ANALYZER_OUTPUT_FILE")
	_ = v.BindEnv("output.format", "ANALYZER_OUTPUT_FORMAT")
	_ = v.BindEnv("analysis.timeout_seconds", "ANALYZER_TIMEOUT_SECONDS")
	_ = v.BindEnv("server.listen_addr", "ANALYZER_LISTEN_ADDR")
	_ = v.BindEnv("server.api_key", "ANALYZER_API_KEY")

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaultValues sets default configuration values
func setDefaultValues(v *viper.Viper) {
	v.SetDefault("output.file", "")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.title", "WAR File API Analysis Report")

	v.SetDefault("analysis.timeout_seconds", 300)
	v.SetDefault("analysis.decode_workers", 4)

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.api_key", "")

	v.SetDefault("logging.level", "info")
}

// validateConfig validates the configuration
func validateConfig(config Config) error {
	switch config.Output.Format {
	case "json", "csv", "html", "summary":
	default:
		return fmt.Errorf("output.format must be one of json, csv, html, summary; got %q", config.Output.Format)
	}

	if config.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("analysis.timeout_seconds must be positive")
	}

	if config.Analysis.DecodeWorkers <= 0 {
		return fmt.Errorf("analysis.decode_workers must be positive")
	}

	if config.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	return nil
}

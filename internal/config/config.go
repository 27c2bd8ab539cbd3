package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Evaluation  EvaluationConfig `mapstructure:"evaluation"`
	Monitor     MonitorConfig    `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EvaluationConfig struct {
	ResultTTL       string `mapstructure:"result_ttl"`
	MaxObservations int    `mapstructure:"max_observations"`
}

type MonitorConfig struct {
	SampleInterval string `mapstructure:"sample_interval"`
	HistorySize    int    `mapstructure:"history_size"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if config.Evaluation.ResultTTL != "" {
		if _, err := time.ParseDuration(config.Evaluation.ResultTTL); err != nil {
			return nil, fmt.Errorf("invalid evaluation result TTL: %w", err)
		}
	}
	if config.Monitor.SampleInterval != "" {
		if _, err := time.ParseDuration(config.Monitor.SampleInterval); err != nil {
			return nil, fmt.Errorf("invalid monitor sample interval: %w", err)
		}
	}

	return &config, nil
}

// ResultTTL returns the parsed evaluation result TTL.
func (c *Config) ResultTTL() time.Duration {
	d, err := time.ParseDuration(c.Evaluation.ResultTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SampleInterval returns the parsed monitor sample interval.
func (c *Config) SampleInterval() time.Duration {
	d, err := time.ParseDuration(c.Monitor.SampleInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "forecast_baseline")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Evaluation
	viper.SetDefault("evaluation.result_ttl", "24h")
	viper.SetDefault("evaluation.max_observations", 100000)

	// Monitor
	viper.SetDefault("monitor.sample_interval", "1m")
	viper.SetDefault("monitor.history_size", 60)
}

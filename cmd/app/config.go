package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"refbot/internal/repository"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	Telegram     TelegramConfig     `yaml:"telegram"`
	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
	Authoring    AuthoringConfig    `yaml:"authoring"`
	Broadcast    BroadcastConfig    `yaml:"broadcast"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramConfig struct {
	BotToken         string `yaml:"botToken"`
	Debug            bool   `yaml:"debug"`
	BootstrapAdminID int64  `yaml:"bootstrapAdminID"`
	PollTimeout      int    `yaml:"pollTimeout"`
	ImagesDir        string `yaml:"imagesDir"`
}

type TelegramAuthConfig struct {
	DebugMode bool `yaml:"debugMode"`
}

type AuthoringConfig struct {
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

type BroadcastConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Workers       int     `yaml:"workers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "refbot")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8888")
	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.bootstrapAdminID", 0)
	v.SetDefault("telegram.pollTimeout", 60)
	v.SetDefault("telegram.imagesDir", "images")
	v.SetDefault("telegramAuth.debugMode", false)
	v.SetDefault("authoring.sessionTTL", 15*time.Minute)
	v.SetDefault("broadcast.ratePerSecond", 25)
	v.SetDefault("broadcast.workers", 8)
	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml (or the file given) and APP_* environment
// variables. A missing default config file is not an error.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(configPath)
		v.SetConfigType(configFormat)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

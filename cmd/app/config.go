package main

import (
	"fmt"
	"strings"
	"time"

	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `mapstructure:"database"`
	Server   ServerConfig      `mapstructure:"server"`

	TelegramAuth TelegramAuthConfig `mapstructure:"telegramAuth"`

	Meow  service.MeowConfig `mapstructure:"meow"`
	Redis RedisConfig        `mapstructure:"redis"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	DebugMode        bool   `mapstructure:"debugMode"`
	NotifyClaims     bool   `mapstructure:"notifyClaims"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", repository.DriverPgx)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.lockTimeout", 3*time.Second)
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.migrate", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("telegramAuth.telegramBotToken", "")
	v.SetDefault("telegramAuth.debugMode", false)
	v.SetDefault("telegramAuth.notifyClaims", false)

	v.SetDefault("meow.tapCap", service.DefaultTapCap)
	v.SetDefault("meow.dailyQuota", service.DefaultDailyQuota)
	v.SetDefault("meow.throttleWindow", 220*time.Millisecond)
	v.SetDefault("meow.throttleBackend", service.ThrottleMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logLevel", "info")
}

func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), configPath)
}

func loadConfig(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigName(configName)
	v.AddConfigPath(path)
	v.SetConfigType(configFormat)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GraphAPI GraphAPIConfig `mapstructure:"graphapi"`
	Upload   UploadConfig   `mapstructure:"upload"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// GraphAPIConfig описывает удалённый эндпоинт профиля
type GraphAPIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Fields  string        `mapstructure:"fields" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type UploadConfig struct {
	MaxBytes int64  `mapstructure:"max_bytes" validate:"gt=0"`
	Dir      string `mapstructure:"dir" validate:"required"`
}

// NATSConfig: пустой URL отключает публикацию итогов проверки
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("graphapi.base_url", "https://graph.facebook.com/me")
	v.SetDefault("graphapi.fields", "name,id,email")
	v.SetDefault("graphapi.timeout", "10s")

	v.SetDefault("upload.max_bytes", 2*1024*1024)
	v.SetDefault("upload.dir", os.TempDir())

	v.SetDefault("nats.url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	SendBuffer       int           `mapstructure:"send_buffer"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	Secret           string        `mapstructure:"secret"`
	AuthMode         string        `mapstructure:"auth_mode"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AuthRateLimit    int           `mapstructure:"auth_rate_limit"`
	AuthRateInterval time.Duration `mapstructure:"auth_rate_interval"`
	STUNURLs         []string      `mapstructure:"stun_urls"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("auth_mode", "static")
	v.SetDefault("auth_rate_limit", 10)
	v.SetDefault("auth_rate_interval", "1m")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302"})

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Auth: %s\n", cfg.Mode, cfg.Port, cfg.AuthMode)
	return &cfg, nil
}

package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

// GameConfig holds pacing knobs only. Delays exist for presentation;
// the round engine is correct with all of them at zero.
type GameConfig struct {
	TurnSeconds      int `mapstructure:"turnSeconds"`
	DealStepMs       int `mapstructure:"dealStepMs"`
	DealerStepMs     int `mapstructure:"dealerStepMs"`
	RoundOverSeconds int `mapstructure:"roundOverSeconds"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	applyDefaults(&cfg)
	GlobalConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Game.TurnSeconds <= 0 {
		cfg.Game.TurnSeconds = 30
	}
	if cfg.Game.DealStepMs <= 0 {
		cfg.Game.DealStepMs = 200
	}
	if cfg.Game.DealerStepMs <= 0 {
		cfg.Game.DealerStepMs = 1000
	}
	if cfg.Game.RoundOverSeconds <= 0 {
		cfg.Game.RoundOverSeconds = 5
	}
}

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
	Poker    PokerConfig    `mapstructure:"poker"`
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

type GameConfig struct {
	CatalogDir    string `mapstructure:"catalogDir"`
	TurnSeconds   int    `mapstructure:"turnSeconds"`
	SweepInterval int    `mapstructure:"sweepIntervalMs"`
}

type PokerConfig struct {
	SmallBlind  int64 `mapstructure:"smallBlind"`
	BigBlind    int64 `mapstructure:"bigBlind"`
	MaxSeats    int   `mapstructure:"maxSeats"`
	ActSeconds  int   `mapstructure:"actSeconds"`
	MinBuyInBB int64 `mapstructure:"minBuyInBB"` // multiples of the big blind
	MaxBuyInBB int64 `mapstructure:"maxBuyInBB"` // 0 = uncapped
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
		cfg.Game.TurnSeconds = 90
	}
	if cfg.Game.SweepInterval <= 0 {
		cfg.Game.SweepInterval = 1000
	}
	if cfg.Game.CatalogDir == "" {
		cfg.Game.CatalogDir = "catalogs"
	}
	if cfg.Poker.SmallBlind <= 0 {
		cfg.Poker.SmallBlind = 50
	}
	if cfg.Poker.BigBlind <= 0 {
		cfg.Poker.BigBlind = cfg.Poker.SmallBlind * 2
	}
	if cfg.Poker.MaxSeats <= 0 {
		cfg.Poker.MaxSeats = 6
	}
	if cfg.Poker.ActSeconds <= 0 {
		cfg.Poker.ActSeconds = 30
	}
	if cfg.Poker.MinBuyInBB <= 0 {
		cfg.Poker.MinBuyInBB = 20
	}
}

package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Defaults DefaultsConfig `yaml:"defaults"`
	AI       AIConfig       `yaml:"ai"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:3000/api"`
	Timeout     time.Duration `yaml:"timeout" env-default:"30s"`
	RequestsPer time.Duration `yaml:"requests_per" env-default:"100ms"`
	Burst       int           `yaml:"burst" env-default:"5"`
}

type AuthConfig struct {
	TokenFile string `yaml:"token_file" env:"TOKEN_FILE" env-default:".diary_console_token"`
}

type DefaultsConfig struct {
	Page  int `yaml:"page" env-default:"1"`
	Limit int `yaml:"limit" env-default:"10"`
	Days  int `yaml:"days" env-default:"7"`
}

type AIConfig struct {
	SuggestionTTL time.Duration `yaml:"suggestion_ttl" env-default:"10m"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Addr    string `yaml:"addr" env-default:":9190"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		// no file is fine, env defaults carry the config
		var cfg Config
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			panic("cannot read config from env: " + err.Error())
		}
		return &cfg
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	return os.Getenv("CONFIG_PATH")
}

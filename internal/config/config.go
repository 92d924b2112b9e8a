// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/musiclands/festival-companion/internal/store/appstore"
	"github.com/musiclands/festival-companion/internal/store/googleplay"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                      string `yaml:"env" env-default:"local"`
	StorageConnectionString  string `yaml:"storage_connection_string"`
	RabbitmqConnectionString string `yaml:"rabbitmq_connection_string"`
	RedisConnection          `yaml:"redis_connection"`
	HTTPServer               `yaml:"http_server"`
	OpenAI                   `yaml:"openai"`
	Store                    StoreConfig `yaml:"store"`
	SMTP                     `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// OpenAI структура для настройки клиента LLM
type OpenAI struct {
	APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model  string `yaml:"model"`
}

// StoreConfig выбирает платформенный магазин покупок и его учетные данные.
// Platform принимает значения "google", "apple" или "none": последнее
// сразу включает деградированный режим.
type StoreConfig struct {
	Platform string            `yaml:"platform" env-default:"none"`
	Google   googleplay.Config `yaml:"google"`
	Apple    appstore.Config   `yaml:"apple"`
}

// SMTP структура для настройки почтового транспорта
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
	OpsEmail string `yaml:"ops_email"`
}

// MustLoad функция для загрузки конфига, путь берется из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RabbitmqConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"OpenAI:\n"+
			"  Model: %s\n"+
			"Store:\n"+
			"  Platform: %s\n"+
			"SMTP:\n"+
			"  Host: %s\n"+
			"  OpsEmail: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.RabbitmqConnectionString,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Model,
		c.Store.Platform,
		c.SMTPHost,
		c.OpsEmail,
	)
}

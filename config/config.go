package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"` // пусто — архив сообщений выключен
}

type DefaultRoom struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Chat struct {
	HistoryCap    int    `yaml:"historyCap"`
	MaxOccupancy  int    `yaml:"maxOccupancy"` // 0 — без лимита
	MaxMessageLen int    `yaml:"maxMessageLen"`
	EditWindow    string `yaml:"editWindow"`
	TypingTimeout string `yaml:"typingTimeout"`
	SweepInterval string `yaml:"sweepInterval"`

	DefaultRooms []DefaultRoom `yaml:"defaultRooms"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Chat     Chat     `yaml:"chat"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Chat.HistoryCap <= 0 {
		c.Chat.HistoryCap = 1000
	}
	if c.Chat.MaxMessageLen <= 0 {
		c.Chat.MaxMessageLen = 4000
	}
	if len(c.Chat.DefaultRooms) == 0 {
		c.Chat.DefaultRooms = []DefaultRoom{
			{Name: "general", Description: "General discussion"},
			{Name: "random", Description: "Off-topic"},
		}
	}
	return nil
}

func (c *Chat) EditWindowDuration() time.Duration {
	return parseDurationOr(5*time.Minute, c.EditWindow)
}

func (c *Chat) TypingTimeoutDuration() time.Duration {
	return parseDurationOr(5*time.Second, c.TypingTimeout)
}

func (c *Chat) SweepIntervalDuration() time.Duration {
	return parseDurationOr(time.Second, c.SweepInterval)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

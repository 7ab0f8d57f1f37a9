package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Email    EmailConfig    `yaml:"email"`
}

type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type StorageConfig struct {
	// DataDir holds the three table snapshot files (user accounts,
	// subscriptions, last-use times).
	DataDir    string `yaml:"dataDir"`
	SQLitePath string `yaml:"sqlitePath"`
}

type UpstreamConfig struct {
	TimeoutMs int              `yaml:"timeoutMs"`
	Retry     UpstreamRetryCfg `yaml:"retry"`
	UserAgent string           `yaml:"userAgent"`
	QPS       float64          `yaml:"qps"`
	Burst     int              `yaml:"burst"`
}

type UpstreamRetryCfg struct {
	Count     int `yaml:"count"`
	WaitMs    int `yaml:"waitMs"`
	MaxWaitMs int `yaml:"maxWaitMs"`
}

type ScheduleConfig struct {
	// CheckInHour is the wall-clock hour of the daily check-in window.
	// The resin sweep runs every two hours offset from it by one, so the
	// two windows can never coincide.
	CheckInHour     int `yaml:"checkInHour"`
	MaintenanceHour int `yaml:"maintenanceHour"`
	ResinThreshold  int `yaml:"resinThreshold"`
	TickIntervalMin int `yaml:"tickIntervalMin"`
	SubscriberGapMs int `yaml:"subscriberGapMs"`
	ExpiryDays      int `yaml:"expiryDays"`
}

type DeliveryConfig struct {
	TimeoutMs int `yaml:"timeoutMs"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

func (c UpstreamConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c UpstreamRetryCfg) Wait() time.Duration {
	if c.WaitMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.WaitMs) * time.Millisecond
}

func (c UpstreamRetryCfg) MaxWait() time.Duration {
	if c.MaxWaitMs <= 0 {
		return 1200 * time.Millisecond
	}
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}

func (c ScheduleConfig) TickInterval() time.Duration {
	if c.TickIntervalMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.TickIntervalMin) * time.Minute
}

func (c ScheduleConfig) SubscriberGap() time.Duration {
	if c.SubscriberGapMs < 0 {
		return 0
	}
	return time.Duration(c.SubscriberGapMs) * time.Millisecond
}

func (c ScheduleConfig) Expiry() time.Duration {
	days := c.ExpiryDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c DeliveryConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8070"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/history.db"
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.Upstream.QPS <= 0 {
		c.Upstream.QPS = 5
	}
	if c.Upstream.Burst <= 0 {
		c.Upstream.Burst = 10
	}
	if c.Upstream.Retry.Count < 0 {
		c.Upstream.Retry.Count = 0
	}
	if c.Schedule.CheckInHour <= 0 {
		c.Schedule.CheckInHour = 8
	}
	if c.Schedule.MaintenanceHour <= 0 {
		c.Schedule.MaintenanceHour = 1
	}
	if c.Schedule.ResinThreshold <= 0 {
		c.Schedule.ResinThreshold = 140
	}
	if c.Schedule.TickIntervalMin <= 0 {
		c.Schedule.TickIntervalMin = 10
	}
	if c.Schedule.SubscriberGapMs <= 0 {
		c.Schedule.SubscriberGapMs = 2000
	}
	if c.Schedule.ExpiryDays <= 0 {
		c.Schedule.ExpiryDays = 30
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Schedule.CheckInHour < 0 || c.Schedule.CheckInHour > 23 {
		return fmt.Errorf("schedule.checkInHour out of range: %d", c.Schedule.CheckInHour)
	}
	if c.Schedule.MaintenanceHour < 0 || c.Schedule.MaintenanceHour > 23 {
		return fmt.Errorf("schedule.maintenanceHour out of range: %d", c.Schedule.MaintenanceHour)
	}
	// The window width is one tick interval; each window fires exactly once
	// per qualifying hour only while the tick interval divides the hour.
	if 60%c.Schedule.TickIntervalMin != 0 {
		return fmt.Errorf("schedule.tickIntervalMin must divide 60, got %d", c.Schedule.TickIntervalMin)
	}
	if c.Email.Enabled {
		if c.Email.Host == "" || c.Email.To == "" {
			return errors.New("email.host and email.to are required when email is enabled")
		}
	}
	return nil
}

// Package config loads service settings from the environment.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/dipto-roy/courier-service-sub002/internal/core/pricing"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	Storage   string `env:"STORAGE,   default=mongo"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Tracking  TrackingConfig
	Pricing   PricingConfig
	Lifecycle LifecycleConfig
	Location  LocationConfig
	Dispatch  DispatchConfig
	Kafka     KafkaConfig
	AMQP      AMQPConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=courier_service"`
}

// RedisConfig leaves dedup and the rider cache disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type TrackingConfig struct {
	QueueSize    int           `env:"TRACKING_QUEUE_SIZE,    default=64"`
	WriteTimeout time.Duration `env:"TRACKING_WRITE_TIMEOUT, default=10s"`
	PingPeriod   time.Duration `env:"TRACKING_PING_PERIOD,   default=54s"`
	PongWait     time.Duration `env:"TRACKING_PONG_WAIT,     default=60s"`
}

// PricingConfig clips expected delivery times only when both hours are set.
type PricingConfig struct {
	Timezone   string   `env:"PRICING_TIMEZONE, default=Asia/Dhaka"`
	OpenHour   string   `env:"PRICING_OPEN_HOUR"`
	CloseHour  string   `env:"PRICING_CLOSE_HOUR"`
	ClosedDays []string `env:"PRICING_CLOSED_DAYS"`
}

type LifecycleConfig struct {
	MaxDeliveryAttempts int `env:"LIFECYCLE_MAX_DELIVERY_ATTEMPTS, default=0"`
}

type LocationConfig struct {
	Retention       time.Duration `env:"LOCATION_RETENTION,    default=720h"`
	DefaultSpeedKmh float64       `env:"ETA_DEFAULT_SPEED_KMH, default=25"`
	PositionTTL     time.Duration `env:"RIDER_POSITION_TTL,    default=15m"`
}

type DispatchConfig struct {
	Workers int `env:"DISPATCH_WORKERS, default=8"`
}

// KafkaConfig falls back to a log-only notification sink without brokers.
type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS"`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC, default=courier.notifications"`
}

// AMQPConfig disables the rider-ping consumer when URL is empty.
type AMQPConfig struct {
	URL           string `env:"AMQP_URL"`
	LocationQueue string `env:"AMQP_LOCATION_QUEUE, default=rider_locations"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage != StorageMongo && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("load config: STORAGE must be %q or %q, got %q", StorageMongo, StorageMemory, cfg.Storage)
	}
	if cfg.Storage == StorageMongo && cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("load config: MONGO_URI is required for mongo storage")
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BusinessHours returns nil when clipping is not configured.
func (p PricingConfig) BusinessHours() (*pricing.BusinessHours, error) {
	if p.OpenHour == "" || p.CloseHour == "" {
		return nil, nil
	}
	open, err := strconv.Atoi(p.OpenHour)
	if err != nil {
		return nil, fmt.Errorf("PRICING_OPEN_HOUR: %w", err)
	}
	closing, err := strconv.Atoi(p.CloseHour)
	if err != nil {
		return nil, fmt.Errorf("PRICING_CLOSE_HOUR: %w", err)
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("PRICING_TIMEZONE: %w", err)
	}
	days := make([]time.Weekday, 0, len(p.ClosedDays))
	for _, name := range p.ClosedDays {
		d, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return &pricing.BusinessHours{
		Location:   loc,
		OpenHour:   open,
		CloseHour:  closing,
		ClosedDays: days,
	}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("PRICING_CLOSED_DAYS: unknown weekday %q", s)
}

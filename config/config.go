package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config 服务全量配置（yaml + 环境变量覆盖）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Sharding ShardingConfig `mapstructure:"sharding"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string  `mapstructure:"addr"`
	RateLimitPerSec float64 `mapstructure:"rateLimitPerSec"`
	RateLimitBurst  int     `mapstructure:"rateLimitBurst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / console
}

type DatabaseConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	ConnMaxLifetime int    `mapstructure:"connMaxLifetimeMin"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupId"`
}

type OutboxConfig struct {
	PollIntervalMs int `mapstructure:"pollIntervalMs"`
	BatchSize      int `mapstructure:"batchSize"`
	RetentionHours int `mapstructure:"retentionHours"`
}

type TimelineConfig struct {
	MaxSize                    int `mapstructure:"maxSize"`
	DefaultPageSize            int `mapstructure:"defaultPageSize"`
	MaxPageSize                int `mapstructure:"maxPageSize"`
	CelebrityFollowerThreshold int `mapstructure:"celebrityFollowerThreshold"`
}

type ShardingConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Shards  []string `mapstructure:"shards"` // 每个分片一条 DSN
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load 读取 config.yaml，环境变量（MICROFEED_ 前缀）优先
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("MICROFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 缺省配置文件可接受，全部走默认值/环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rateLimitPerSec", 50.0)
	v.SetDefault("server.rateLimitBurst", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=microfeed port=5432 sslmode=disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetimeMin", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "timeline-events")
	v.SetDefault("kafka.groupId", "timeline-materializer")
	v.SetDefault("outbox.pollIntervalMs", 1000)
	v.SetDefault("outbox.batchSize", 100)
	v.SetDefault("outbox.retentionHours", 24)
	v.SetDefault("timeline.maxSize", 800)
	v.SetDefault("timeline.defaultPageSize", 20)
	v.SetDefault("timeline.maxPageSize", 100)
	v.SetDefault("timeline.celebrityFollowerThreshold", 10000)
	v.SetDefault("sharding.enabled", false)
	v.SetDefault("sharding.shards", []string{})
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
}

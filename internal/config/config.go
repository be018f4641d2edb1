package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig
	Worker     WorkerConfig
	Redis      RedisConfig
	MinIO      MinIOConfig
	RabbitMQ   RabbitMQConfig
	Conversion ConversionConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	Count           int           `envconfig:"WORKER_COUNT" default:"5"`
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp/metamorph"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"conversions"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// PublicBaseURL is the externally reachable prefix for uploaded
	// artifacts, ending with a slash.
	PublicBaseURL string `envconfig:"MINIO_PUBLIC_BASE_URL" default:"http://localhost:9000/conversions/"`
	// CDNHost, when set, replaces the authority of artifact URLs handed
	// to clients.
	CDNHost string `envconfig:"CDN_HOST" default:""`
}

type RabbitMQConfig struct {
	Host      string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port      int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User      string `envconfig:"RABBITMQ_USER" default:"metamorph"`
	Password  string `envconfig:"RABBITMQ_PASSWORD" default:"metamorph"`
	VHost     string `envconfig:"RABBITMQ_VHOST" default:"/"`
	QueueName string `envconfig:"RABBITMQ_QUEUE" default:"conversions"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type ConversionConfig struct {
	MaxDownloadMB int           `envconfig:"MAX_DOWNLOAD_MB" default:"100"`
	MinMaxAge     time.Duration `envconfig:"MIN_MAX_AGE" default:"5m"`
	WaitTimeout   time.Duration `envconfig:"WAIT_TIMEOUT" default:"20s"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"100ms"`
	// CacheVersion scopes every cache key; bump it to invalidate all
	// existing conversions.
	CacheVersion int `envconfig:"CACHE_VERSION" default:"1"`

	ToktxPath  string `envconfig:"TOKTX_PATH" default:"toktx"`
	FFmpegPath string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	// LocalCache switches the api process into single-node mode: a
	// directory-backed cache, an in-process queue and an in-process
	// worker pool, no Redis/MinIO/RabbitMQ needed.
	LocalCache    bool   `envconfig:"LOCAL_CACHE" default:"false"`
	LocalCacheDir string `envconfig:"LOCAL_CACHE_DIR" default:"/tmp/metamorph-cache"`
}

func (c ConversionConfig) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadMB) << 20
}

type MetricsConfig struct {
	BearerToken string `envconfig:"METRICS_BEARER_TOKEN" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

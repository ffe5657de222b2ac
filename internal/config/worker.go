package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type WorkerConfig struct {
	Environment string
	Redis       WorkerRedisConfig
	Storage     StorageConfig
	Queues      QueueConfig
	Logging     LoggingConfig
}

type WorkerRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketArchive string
	UseSSL        bool
	Region        string
}

type QueueConfig struct {
	ClaimInterval time.Duration
	BatchSize     int64
	Block         time.Duration
}

type LoggingConfig struct {
	Level string
}

func LoadWorker() (*WorkerConfig, error) {
	v := newViper("worker", "CODEPILOT_WORKER", ".", "./config", "../../config")
	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "generations:events")
	v.SetDefault("redis.group", "generation-archivers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketarchive", "codepilot-generations")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.batchsize", 10)
	v.SetDefault("queues.block", "5s")

	v.SetDefault("logging.level", "info")
}

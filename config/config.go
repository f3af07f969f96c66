package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	App     App           `yaml:"app"`
	DB      *sql.DB       `yaml:"db"`
	Queue   *RabbitMQ     `yaml:"rabbitmq"`
	Storage *minio.Client `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Buckets Buckets       `yaml:"buckets"`
	Upload  Upload        `yaml:"upload"`
	Engine  Engine        `yaml:"engine"`
	Sweep   Sweep         `yaml:"sweep"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Buckets struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

type Upload struct {
	SlotExpiry time.Duration `yaml:"slot_expiry"`
}

type Engine struct {
	Url     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Sweep struct {
	Interval      time.Duration `yaml:"interval"`
	MaxPendingAge time.Duration `yaml:"max_pending_age"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("upload.slot_expiry_seconds", 600)
	viper.SetDefault("engine.timeout_seconds", 120)
	viper.SetDefault("sweep.interval_seconds", 60)
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	slotExpiry := time.Duration(viper.GetInt("upload.slot_expiry_seconds")) * time.Second
	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Buckets: Buckets{
			Input:  viper.GetString("minio.input_bucket"),
			Output: viper.GetString("minio.output_bucket"),
		},
		Upload: Upload{
			SlotExpiry: slotExpiry,
		},
		Engine: Engine{
			Url:     viper.GetString("engine.url"),
			Timeout: time.Duration(viper.GetInt("engine.timeout_seconds")) * time.Second,
		},
		Sweep: Sweep{
			Interval: time.Duration(viper.GetInt("sweep.interval_seconds")) * time.Second,
			// An unused slot can still be exercised right up to its expiry,
			// so pending jobs only count as stale once the slot is dead.
			MaxPendingAge: slotExpiry + time.Duration(viper.GetInt("sweep.pending_slack_seconds"))*time.Second,
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}

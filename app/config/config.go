package config

import (
	"errors"
	"fmt"
	"time"

	"text2model/internal/domain/entity"
)

type Config struct {
	Server     HTTPServerConfig `json:"server"`
	Log        LogConfig        `json:"log"`
	LLM        LLMConfig        `json:"llm"`
	Generation GenerationConfig `json:"generation"`
	Retry      RetryConfig      `json:"retry"`
	Worker     WorkerConfig     `json:"worker"`
	Mongo      MongoConfig      `json:"mongo"`
	Redis      RedisConfig      `json:"redis"`
	Storage    StorageConfig    `json:"storage"`
}

type HTTPServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LLMConfig points at an Ollama server. BaseURL includes the /api prefix.
type LLMConfig struct {
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
}

// GenerationConfig names the remote apps used for each capability. The
// secondary apps are only called after the primary exhausted its retries.
type GenerationConfig struct {
	URLTemplate           string        `json:"url_template"`
	Timeout               time.Duration `json:"timeout"`
	TextToImage           string        `json:"text_to_image"`
	TextToImageSecondary  string        `json:"text_to_image_secondary"`
	ImageToModel          string        `json:"image_to_3d"`
	ImageToModelSecondary string        `json:"image_to_3d_secondary"`
}

type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	Multiplier  float64       `json:"multiplier"`
}

type WorkerConfig struct {
	Enabled      bool          `json:"enabled"`
	PollInterval time.Duration `json:"poll_interval"`
	JobTimeout   time.Duration `json:"job_timeout"`
	Concurrency  int           `json:"concurrency"`
}

// MongoConfig enables persistent job storage. Jobs are kept in memory when
// URI is empty.
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// RedisConfig enables the shared user config store. An empty Addr keeps user
// configs in memory.
type RedisConfig struct {
	Addr     string        `json:"addr"`
	Password string        `json:"-"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

type StorageConfig struct {
	OutputDir string `json:"output_dir"`
}

func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    15 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434/api",
			Model:       "deepseek-r1:8b",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Generation: GenerationConfig{
			URLTemplate:          "https://%s.node3.openfabric.network/execution",
			Timeout:              120 * time.Second,
			TextToImage:          "f0997a01-d6d3-a5fe-53d8-561300318557",
			TextToImageSecondary: "c25dcd829d134ea98f5ae4dd311d13bc",
			ImageToModel:         "69543f29-4d41-4afc-7f29-3d51591f11eb",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			Multiplier:  2.0,
		},
		Worker: WorkerConfig{
			Enabled:      true,
			PollInterval: 5 * time.Second,
			JobTimeout:   10 * time.Minute,
			Concurrency:  4,
		},
		Mongo: MongoConfig{
			Database: "text2model",
		},
		Storage: StorageConfig{
			OutputDir: "./output",
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.base_url and llm.model are required"))
	}
	if c.Generation.TextToImage == "" || c.Generation.ImageToModel == "" {
		errs = append(errs, errors.New("generation.text_to_image and generation.image_to_3d are required"))
	}
	for name, id := range map[string]string{
		"generation.text_to_image":           c.Generation.TextToImage,
		"generation.text_to_image_secondary": c.Generation.TextToImageSecondary,
		"generation.image_to_3d":             c.Generation.ImageToModel,
		"generation.image_to_3d_secondary":   c.Generation.ImageToModelSecondary,
	} {
		if id == "" {
			continue
		}
		if err := entity.ValidateServiceID(id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("retry.base_delay must not be negative"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be at least 1"))
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required when mongo.uri is set"))
	}
	if c.Storage.OutputDir == "" {
		errs = append(errs, errors.New("storage.output_dir is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

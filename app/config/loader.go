package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, then the optional file at path
// (.hcl, .json, .yaml or .yml), then environment variables read via getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl", ".json":
		if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &fc, nil
}

// fileConfig mirrors Config with every field optional. Durations are strings
// such as "30s" in both formats.
type fileConfig struct {
	Server     *serverFile     `hcl:"server,block" yaml:"server"`
	Log        *logFile        `hcl:"log,block" yaml:"log"`
	LLM        *llmFile        `hcl:"llm,block" yaml:"llm"`
	Generation *generationFile `hcl:"generation,block" yaml:"generation"`
	Retry      *retryFile      `hcl:"retry,block" yaml:"retry"`
	Worker     *workerFile     `hcl:"worker,block" yaml:"worker"`
	Mongo      *mongoFile      `hcl:"mongo,block" yaml:"mongo"`
	Redis      *redisFile      `hcl:"redis,block" yaml:"redis"`
	Storage    *storageFile    `hcl:"storage,block" yaml:"storage"`
}

type serverFile struct {
	Host            *string `hcl:"host,optional" yaml:"host"`
	Port            *int    `hcl:"port,optional" yaml:"port"`
	ReadTimeout     *string `hcl:"read_timeout,optional" yaml:"read_timeout"`
	WriteTimeout    *string `hcl:"write_timeout,optional" yaml:"write_timeout"`
	ShutdownTimeout *string `hcl:"shutdown_timeout,optional" yaml:"shutdown_timeout"`
}

type logFile struct {
	Level  *string `hcl:"level,optional" yaml:"level"`
	Format *string `hcl:"format,optional" yaml:"format"`
}

type llmFile struct {
	BaseURL     *string  `hcl:"base_url,optional" yaml:"base_url"`
	Model       *string  `hcl:"model,optional" yaml:"model"`
	Temperature *float64 `hcl:"temperature,optional" yaml:"temperature"`
	Timeout     *string  `hcl:"timeout,optional" yaml:"timeout"`
}

type generationFile struct {
	URLTemplate           *string `hcl:"url_template,optional" yaml:"url_template"`
	Timeout               *string `hcl:"timeout,optional" yaml:"timeout"`
	TextToImage           *string `hcl:"text_to_image,optional" yaml:"text_to_image"`
	TextToImageSecondary  *string `hcl:"text_to_image_secondary,optional" yaml:"text_to_image_secondary"`
	ImageToModel          *string `hcl:"image_to_3d,optional" yaml:"image_to_3d"`
	ImageToModelSecondary *string `hcl:"image_to_3d_secondary,optional" yaml:"image_to_3d_secondary"`
}

type retryFile struct {
	MaxAttempts *int     `hcl:"max_attempts,optional" yaml:"max_attempts"`
	BaseDelay   *string  `hcl:"base_delay,optional" yaml:"base_delay"`
	Multiplier  *float64 `hcl:"multiplier,optional" yaml:"multiplier"`
}

type workerFile struct {
	Enabled      *bool   `hcl:"enabled,optional" yaml:"enabled"`
	PollInterval *string `hcl:"poll_interval,optional" yaml:"poll_interval"`
	JobTimeout   *string `hcl:"job_timeout,optional" yaml:"job_timeout"`
	Concurrency  *int    `hcl:"concurrency,optional" yaml:"concurrency"`
}

type mongoFile struct {
	URI      *string `hcl:"uri,optional" yaml:"uri"`
	Database *string `hcl:"database,optional" yaml:"database"`
}

type redisFile struct {
	Addr     *string `hcl:"addr,optional" yaml:"addr"`
	Password *string `hcl:"password,optional" yaml:"password"`
	DB       *int    `hcl:"db,optional" yaml:"db"`
	TTL      *string `hcl:"ttl,optional" yaml:"ttl"`
}

type storageFile struct {
	OutputDir *string `hcl:"output_dir,optional" yaml:"output_dir"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, name string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func (f *fileConfig) apply(cfg *Config) error {
	var errs []error
	dur := func(dst *time.Duration, src *string, name string) {
		if err := setDuration(dst, src, name); err != nil {
			errs = append(errs, err)
		}
	}

	if s := f.Server; s != nil {
		set(&cfg.Server.Host, s.Host)
		set(&cfg.Server.Port, s.Port)
		dur(&cfg.Server.ReadTimeout, s.ReadTimeout, "server.read_timeout")
		dur(&cfg.Server.WriteTimeout, s.WriteTimeout, "server.write_timeout")
		dur(&cfg.Server.ShutdownTimeout, s.ShutdownTimeout, "server.shutdown_timeout")
	}
	if l := f.Log; l != nil {
		set(&cfg.Log.Level, l.Level)
		set(&cfg.Log.Format, l.Format)
	}
	if l := f.LLM; l != nil {
		set(&cfg.LLM.BaseURL, l.BaseURL)
		set(&cfg.LLM.Model, l.Model)
		set(&cfg.LLM.Temperature, l.Temperature)
		dur(&cfg.LLM.Timeout, l.Timeout, "llm.timeout")
	}
	if g := f.Generation; g != nil {
		set(&cfg.Generation.URLTemplate, g.URLTemplate)
		dur(&cfg.Generation.Timeout, g.Timeout, "generation.timeout")
		set(&cfg.Generation.TextToImage, g.TextToImage)
		set(&cfg.Generation.TextToImageSecondary, g.TextToImageSecondary)
		set(&cfg.Generation.ImageToModel, g.ImageToModel)
		set(&cfg.Generation.ImageToModelSecondary, g.ImageToModelSecondary)
	}
	if r := f.Retry; r != nil {
		set(&cfg.Retry.MaxAttempts, r.MaxAttempts)
		dur(&cfg.Retry.BaseDelay, r.BaseDelay, "retry.base_delay")
		set(&cfg.Retry.Multiplier, r.Multiplier)
	}
	if w := f.Worker; w != nil {
		set(&cfg.Worker.Enabled, w.Enabled)
		dur(&cfg.Worker.PollInterval, w.PollInterval, "worker.poll_interval")
		dur(&cfg.Worker.JobTimeout, w.JobTimeout, "worker.job_timeout")
		set(&cfg.Worker.Concurrency, w.Concurrency)
	}
	if m := f.Mongo; m != nil {
		set(&cfg.Mongo.URI, m.URI)
		set(&cfg.Mongo.Database, m.Database)
	}
	if r := f.Redis; r != nil {
		set(&cfg.Redis.Addr, r.Addr)
		set(&cfg.Redis.Password, r.Password)
		set(&cfg.Redis.DB, r.DB)
		dur(&cfg.Redis.TTL, r.TTL, "redis.ttl")
	}
	if s := f.Storage; s != nil {
		set(&cfg.Storage.OutputDir, s.OutputDir)
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	str := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(dst *float64, key string) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := getenv(key); v != "" {
			if err := setDuration(dst, &v, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	boolean := func(dst *bool, key string) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&cfg.Server.Host, "SERVER_HOST")
	num(&cfg.Server.Port, "SERVER_PORT")
	str(&cfg.Log.Level, "LOG_LEVEL")
	str(&cfg.Log.Format, "LOG_FORMAT")

	str(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
	str(&cfg.LLM.Model, "OLLAMA_MODEL")
	float(&cfg.LLM.Temperature, "OLLAMA_TEMPERATURE")
	dur(&cfg.LLM.Timeout, "OLLAMA_TIMEOUT")

	str(&cfg.Generation.URLTemplate, "GENERATION_URL_TEMPLATE")
	dur(&cfg.Generation.Timeout, "GENERATION_TIMEOUT")
	str(&cfg.Generation.TextToImage, "TEXT_TO_IMAGE_APP_ID")
	str(&cfg.Generation.TextToImageSecondary, "TEXT_TO_IMAGE_SECONDARY_APP_ID")
	str(&cfg.Generation.ImageToModel, "IMAGE_TO_3D_APP_ID")
	str(&cfg.Generation.ImageToModelSecondary, "IMAGE_TO_3D_SECONDARY_APP_ID")

	num(&cfg.Retry.MaxAttempts, "RETRY_MAX_ATTEMPTS")
	dur(&cfg.Retry.BaseDelay, "RETRY_BASE_DELAY")
	float(&cfg.Retry.Multiplier, "RETRY_MULTIPLIER")

	boolean(&cfg.Worker.Enabled, "WORKER_ENABLED")
	dur(&cfg.Worker.PollInterval, "WORKER_POLL_INTERVAL")
	dur(&cfg.Worker.JobTimeout, "WORKER_JOB_TIMEOUT")
	num(&cfg.Worker.Concurrency, "WORKER_CONCURRENCY")

	str(&cfg.Mongo.URI, "MONGO_URI")
	str(&cfg.Mongo.Database, "MONGO_DB")
	str(&cfg.Redis.Addr, "REDIS_ADDR")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")
	num(&cfg.Redis.DB, "REDIS_DB")
	dur(&cfg.Redis.TTL, "REDIS_TTL")

	str(&cfg.Storage.OutputDir, "OUTPUT_DIR")

	return errors.Join(errs...)
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// IngestKey protege POST /events. Vacío = sin auth (solo dev).
		IngestKey string `yaml:"ingest_key"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Accounting struct {
		// sync | async
		Mode string `yaml:"mode"`
	} `yaml:"accounting"`

	Runner struct {
		JobType        string `yaml:"job_type"`
		MaxRunDuration string `yaml:"max_run_duration"`
		StaleAfter     string `yaml:"stale_after"`
		BackoffStart   string `yaml:"backoff_start"`
		BackoffCeiling string `yaml:"backoff_ceiling"`
	} `yaml:"runner"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	applyEnv(&c)
	return &c, nil
}

// FromEnv construye la configuración solo desde el entorno (sin YAML).
func FromEnv() *Config {
	var c Config
	applyDefaults(&c)
	applyEnv(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Accounting.Mode == "" {
		c.Accounting.Mode = "async"
	}
	if c.Runner.MaxRunDuration == "" {
		c.Runner.MaxRunDuration = "8m"
	}
	if c.Runner.StaleAfter == "" {
		c.Runner.StaleAfter = "9m"
	}
	if c.Runner.BackoffStart == "" {
		c.Runner.BackoffStart = "1s"
	}
	if c.Runner.BackoffCeiling == "" {
		c.Runner.BackoffCeiling = "64s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func applyEnv(c *Config) {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("INGEST_KEY"); ok {
		c.Server.IngestKey = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("ACCOUNTING_MODE"); ok {
		c.Accounting.Mode = v
	}
	if v, ok := getEnvStr("RUNNER_JOB_TYPE"); ok {
		c.Runner.JobType = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Dur parsea una duración de config; fallback si está vacía o inválida.
func Dur(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return fallback
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	DevelopmentJwtSecret = "trendsetter-development-secret"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Mongo     Mongo     `yaml:"mongo"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Storage   Storage   `yaml:"storage"`
	LogLevel  string    `yaml:"log_level"`
	LogFormat string    `yaml:"log_format"`
}

type Server struct {
	Port          string        `yaml:"port"`
	UploadsDir    string        `yaml:"uploads_dir"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

type Mongo struct {
	Uri      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	JwtSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Storage struct {
	Backend string `yaml:"backend"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:          "5000",
			UploadsDir:    "uploads",
			AllowedOrigin: "*",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  30 * time.Second,
		},
		Mongo: Mongo{
			Uri:      "mongodb://localhost:27017/?replicaSet=rs0",
			Database: "trendsetter",
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Auth: Auth{
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 12,
		},
		RateLimit: RateLimit{
			Requests: 20,
			Window:   time.Minute,
		},
		Storage:   Storage{Backend: BackendMongo},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.UploadsDir = getEnv("UPLOADS_DIR", c.Server.UploadsDir)
	c.Server.AllowedOrigin = getEnv("ALLOWED_ORIGIN", c.Server.AllowedOrigin)
	c.Mongo.Uri = getEnv("MONGO_URI", c.Mongo.Uri)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = utils.IntFromString(getEnv("REDIS_DB", ""), c.Redis.DB)
	c.Auth.JwtSecret = getEnv("JWT_SECRET", c.Auth.JwtSecret)
	c.Auth.TokenTTL = utils.DurationFromString(getEnv("TOKEN_TTL", ""), c.Auth.TokenTTL)
	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	if c.Auth.JwtSecret == "" {
		if c.Storage.Backend != BackendMemory {
			log.Warning("JWT_SECRET is not set, using the development secret")
		}
		c.Auth.JwtSecret = DevelopmentJwtSecret
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.requests and rate_limit.window must be positive")
	}
	return nil
}

// ConfigureLogging applies the log level and format to the standard logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warningf("Unknown log level %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

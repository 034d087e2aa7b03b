package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Meet struct {
		TTL string `yaml:"ttl"`
	} `yaml:"meet"`
	Auth struct {
		JWTSecret      string `yaml:"jwt_secret"`
		TokenTTL       string `yaml:"token_ttl"`
		GoogleClientID string `yaml:"google_client_id"`
		CookieSecure   bool   `yaml:"cookie_secure"`
	} `yaml:"auth"`
	Scoring struct {
		BonusPoints           int     `yaml:"bonus_points"`
		BonusThresholdSeconds float64 `yaml:"bonus_threshold_seconds"`
		PenaltyPoints         int     `yaml:"penalty_points"`
	} `yaml:"scoring"`
}

// Default returns the configuration used when neither file nor environment set a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	cfg.Redis.LockTTL = "5s"
	cfg.Meet.TTL = "10m"
	cfg.Auth.TokenTTL = "24h"
	cfg.Scoring.BonusPoints = 5
	cfg.Scoring.BonusThresholdSeconds = 5
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies a .env file
// and environment overrides. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.TokenTTL, "JWT_TTL")
	setString(&cfg.Auth.GoogleClientID, "GOOGLE_CLIENT_ID")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.CookieSecure = b
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

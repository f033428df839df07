package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration
type Config struct {
	HTTPPort      string `yaml:"httpPort"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	RedisAddr     string `yaml:"redisAddr"`

	JWTSecret            string `yaml:"-"`
	ProfessionalUsername string `yaml:"-"`
	ProfessionalPassword string `yaml:"-"`

	Backends BackendsConfig `yaml:"backends"`

	// Learned-scheme cluster count and the distance gap below which an assignment is a boundary case
	ClusterCount    int     `yaml:"clusterCount"`
	BoundaryEpsilon float64 `yaml:"boundaryEpsilon"`

	// 0 disables background health polling
	HealthPollInterval time.Duration `yaml:"healthPollInterval"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// Default returns the configuration used before any file or env overlay
func Default() *Config {
	return &Config{
		HTTPPort:             "8080",
		MongoURI:             "mongodb://localhost:27017",
		MongoDatabase:        "wellmind",
		RedisAddr:            "localhost:6379",
		JWTSecret:            "change-me-in-production",
		ProfessionalUsername: "clinician",
		ProfessionalPassword: "password123",
		Backends: BackendsConfig{
			Prediction: defaultBackend(),
			Clustering: defaultBackend(),
			Chat:       defaultBackend(),
			Synthetic:  defaultBackend(),
		},
		ClusterCount:    5,
		BoundaryEpsilon: 0.01,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// WELLMIND_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("WELLMIND_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnv("PORT", cfg.HTTPPort)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = getEnv("REDIS_URI", cfg.RedisAddr)
	// Remove redis:// prefix if present
	if len(cfg.RedisAddr) > 8 && cfg.RedisAddr[:8] == "redis://" {
		cfg.RedisAddr = cfg.RedisAddr[8:]
	}
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.ProfessionalUsername = getEnv("PROFESSIONAL_USERNAME", cfg.ProfessionalUsername)
	cfg.ProfessionalPassword = getEnv("PROFESSIONAL_PASSWORD", cfg.ProfessionalPassword)

	applyBackendEnv(&cfg.Backends.Prediction, "PREDICTION")
	applyBackendEnv(&cfg.Backends.Clustering, "CLUSTERING")
	applyBackendEnv(&cfg.Backends.Chat, "CHAT")
	applyBackendEnv(&cfg.Backends.Synthetic, "SYNTHETIC")

	cfg.ClusterCount = getEnvInt("CLUSTER_COUNT", cfg.ClusterCount)
	cfg.BoundaryEpsilon = getEnvFloat("CLUSTER_BOUNDARY_EPSILON", cfg.BoundaryEpsilon)
	cfg.HealthPollInterval = getEnvDuration("HEALTH_POLL_INTERVAL", cfg.HealthPollInterval)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.ClusterCount < 1 {
		return fmt.Errorf("clusterCount must be positive, got %d", c.ClusterCount)
	}
	if c.BoundaryEpsilon < 0 {
		return fmt.Errorf("boundaryEpsilon must not be negative, got %v", c.BoundaryEpsilon)
	}
	for name, b := range map[string]BackendConfig{
		"prediction": c.Backends.Prediction,
		"clustering": c.Backends.Clustering,
		"chat":       c.Backends.Chat,
		"synthetic":  c.Backends.Synthetic,
	} {
		if b.ReadTimeout <= 0 || b.ConnectTimeout <= 0 {
			return fmt.Errorf("backend %s: timeouts must be positive", name)
		}
		if b.MaxInFlight < 1 {
			return fmt.Errorf("backend %s: maxInFlight must be positive", name)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

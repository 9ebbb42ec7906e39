package config

import (
	"os"
	"strings"

	"github.com/rpattn/roster/internal/db"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ErrInvalidBackend is returned when store.backend names no known store.
var ErrInvalidBackend = errors.New("invalid store backend")

type ServerConfig struct {
	Port           int
	UploadDir      string
	AllowedOrigins []string
	MaxUploadBytes int64
}

type IngestionConfig struct {
	ChunkSize       int
	MaxErrorDetails int
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Backend   string
	Database  db.Config
	Ingestion IngestionConfig
	Log       LogConfig
	// Source is the config file that was read, empty when only defaults and env were used.
	Source string
}

// Load reads config.yaml from configPath (optional), a .env file in the working
// directory (optional) and ROSTER_* environment overrides, in increasing precedence.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("ROSTER") // ROSTER_DATABASE_HOST, ROSTER_SERVER_PORT, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dbDefaults := db.DefaultConfig()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.upload_dir", os.TempDir())
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.connect_attempts", dbDefaults.ConnectAttempts)
	v.SetDefault("ingestion.chunk_size", 30)
	v.SetDefault("ingestion.max_error_details", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	cfg := Config{}
	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrap(err, "failed to read config file")
			}
		} else {
			cfg.Source = v.ConfigFileUsed()
		}
	}

	cfg.Server = ServerConfig{
		Port:           v.GetInt("server.port"),
		UploadDir:      v.GetString("server.upload_dir"),
		AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
		MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(v.GetString("store.backend")))
	cfg.Database = db.Config{
		Host:            v.GetString("database.host"),
		Port:            v.GetInt("database.port"),
		User:            v.GetString("database.user"),
		Password:        v.GetString("database.password"),
		DBName:          v.GetString("database.dbname"),
		SSLMode:         v.GetString("database.sslmode"),
		ConnectAttempts: v.GetUint("database.connect_attempts"),
	}
	cfg.Ingestion = IngestionConfig{
		ChunkSize:       v.GetInt("ingestion.chunk_size"),
		MaxErrorDetails: v.GetInt("ingestion.max_error_details"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return errors.Wrapf(ErrInvalidBackend, "%q", c.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port %d out of range", c.Server.Port)
	}
	if c.Ingestion.ChunkSize <= 0 {
		return errors.Newf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log.level %q", c.Level)
	}
	logger.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Newf("invalid log.format %q", c.Format)
	}
	return logger, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	DeleteModeOrphan  = "orphan"
	DeleteModeCascade = "cascade"
)

type Config struct {
	StorageType   string         `toml:"storage_type"`
	MigrationsDir string         `toml:"migrations_dir"`
	Postgres      PostgresConfig `toml:"postgres"`
	SQLite        SQLiteConfig   `toml:"sqlite"`
	WS            WSConfig       `toml:"ws"`
	HTTP          HTTPConfig     `toml:"http"`
	Log           LogConfig      `toml:"log"`
	Comments      CommentsConfig `toml:"comments"`
}

type PostgresConfig struct {
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	SSLMode  string `toml:"sslmode"`
}

func (pc PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.User,
		pc.Password,
		pc.Host,
		pc.Port,
		pc.DB,
		pc.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type HTTPConfig struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type WSConfig struct {
	KeepAliveSeconds int `toml:"keepalive_seconds"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type CommentsConfig struct {
	DeleteMode      string `toml:"delete_mode"`
	MaxLength       int    `toml:"max_length"`
	CacheSize       int    `toml:"cache_size"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

func (cc CommentsConfig) CacheTTL() time.Duration {
	return time.Duration(cc.CacheTTLSeconds) * time.Second
}

func Default() Config {
	return Config{
		StorageType:   StorageMemory,
		MigrationsDir: "migrations",
		Postgres: PostgresConfig{
			User:    "postgres",
			DB:      "bookcomments",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		SQLite: SQLiteConfig{Path: "bookcomments.db"},
		HTTP: HTTPConfig{
			Port:        "8080",
			CORSOrigins: []string{"*"},
		},
		WS:  WSConfig{KeepAliveSeconds: 30},
		Log: LogConfig{Level: "info", Format: "auto"},
		Comments: CommentsConfig{
			DeleteMode:      DeleteModeOrphan,
			MaxLength:       2000,
			CacheSize:       500,
			CacheTTLSeconds: 300,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path, a .env file in the working directory and finally the process
// environment, later sources overriding earlier ones.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("storage_type: unsupported value %q", c.StorageType)
	}
	switch c.Comments.DeleteMode {
	case DeleteModeOrphan, DeleteModeCascade:
	default:
		return fmt.Errorf("comments.delete_mode: unsupported value %q", c.Comments.DeleteMode)
	}
	if c.HTTP.Port == "" {
		return errors.New("http.port is required")
	}
	if c.Comments.MaxLength <= 0 {
		return errors.New("comments.max_length must be > 0")
	}
	if c.StorageType == StoragePostgres && c.Postgres.Host == "" {
		return errors.New("postgres.host is required")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.StorageType, "STORAGE_TYPE")
	setString(&cfg.MigrationsDir, "MIGRATIONS_DIR")

	setString(&cfg.HTTP.Port, "HTTP_PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}

	setString(&cfg.Postgres.User, "POSTGRES_USER")
	setString(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Postgres.DB, "POSTGRES_DB")
	setString(&cfg.Postgres.Host, "POSTGRES_HOST")
	setString(&cfg.Postgres.SSLMode, "POSTGRES_SSLMODE")
	setString(&cfg.SQLite.Path, "SQLITE_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Comments.DeleteMode, "COMMENTS_DELETE_MODE")

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.Postgres.Port, "POSTGRES_PORT"},
		{&cfg.WS.KeepAliveSeconds, "WS_KEEPALIVE_SECONDS"},
		{&cfg.Comments.MaxLength, "COMMENTS_MAX_LENGTH"},
		{&cfg.Comments.CacheSize, "COMMENTS_CACHE_SIZE"},
		{&cfg.Comments.CacheTTLSeconds, "COMMENTS_CACHE_TTL_SECONDS"},
	}
	for _, it := range ints {
		if err := setInt(it.dst, it.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid int for env var %s: %s", key, val)
	}
	*dst = i
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

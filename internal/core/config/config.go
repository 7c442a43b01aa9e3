package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CLICKSTREAM_"

// Config is the full pipeline and read-service configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Input       InputConfig       `koanf:"input"`
	Partitions  PartitionsConfig  `koanf:"partitions"`
	Loader      LoaderConfig      `koanf:"loader"`
	Extract     ExtractConfig     `koanf:"extract"`
	Sessions    SessionsConfig    `koanf:"sessions"`
	Projections ProjectionsConfig `koanf:"projections"`
	Server      ServerConfig      `koanf:"server"`
}

type DatabaseConfig struct {
	// URL, when set, is used as-is and the discrete fields are ignored.
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

type InputConfig struct {
	Dir string `koanf:"dir"`

	// Files are read in the listed order; empty means every *.csv in Dir, sorted.
	Files []string `koanf:"files"`
}

type PartitionsConfig struct {
	First string `koanf:"first"` // YYYY-MM
	Last  string `koanf:"last"`  // YYYY-MM, inclusive
}

// Set builds the declared partition range.
func (c PartitionsConfig) Set() (*partition.Set, error) {
	return partition.ParseSet(c.First, c.Last)
}

type LoaderConfig struct {
	Strategy    string        `koanf:"strategy"` // insert | copy
	ChunkSize   int           `koanf:"chunk_size"`
	MaxAttempts int           `koanf:"max_attempts"`
	RetryDelay  time.Duration `koanf:"retry_delay"`
}

type ExtractConfig struct {
	BatchSize       int `koanf:"batch_size"`
	InsertBatchSize int `koanf:"insert_batch_size"`
}

type SessionsConfig struct {
	Mode      string `koanf:"mode"` // sql | stream
	BatchSize int    `koanf:"batch_size"`
}

type ProjectionsConfig struct {
	MinViews          int           `koanf:"min_views"`
	MinCarts          int           `koanf:"min_carts"`
	TopN              int           `koanf:"top_n"`
	ConcurrentRefresh bool          `koanf:"concurrent_refresh"`
	RefreshInterval   time.Duration `koanf:"refresh_interval"` // 0 disables scheduled refresh in serve
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	Mode string `koanf:"mode"` // debug | release
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		if strings.TrimSpace(c.Database.Host) == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port %d (must be 1-65535)", c.Database.Port)
		}
		if strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.name is required")
		}
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must be >= 0")
	}

	if strings.TrimSpace(c.Input.Dir) == "" && len(c.Input.Files) == 0 {
		return fmt.Errorf("input.dir or input.files is required")
	}

	if _, err := c.Partitions.Set(); err != nil {
		return fmt.Errorf("invalid partitions: %w", err)
	}

	switch c.Loader.Strategy {
	case "insert", "copy":
	default:
		return fmt.Errorf("invalid loader.strategy %q (must be insert or copy)", c.Loader.Strategy)
	}
	if c.Loader.ChunkSize <= 0 {
		return fmt.Errorf("loader.chunk_size must be > 0")
	}
	if c.Loader.MaxAttempts <= 0 {
		return fmt.Errorf("loader.max_attempts must be > 0")
	}
	if c.Loader.RetryDelay < 0 {
		return fmt.Errorf("loader.retry_delay must be >= 0")
	}

	if c.Extract.BatchSize <= 0 {
		return fmt.Errorf("extract.batch_size must be > 0")
	}
	if c.Extract.InsertBatchSize <= 0 {
		return fmt.Errorf("extract.insert_batch_size must be > 0")
	}

	switch c.Sessions.Mode {
	case "sql", "stream":
	default:
		return fmt.Errorf("invalid sessions.mode %q (must be sql or stream)", c.Sessions.Mode)
	}
	if c.Sessions.BatchSize <= 0 {
		return fmt.Errorf("sessions.batch_size must be > 0")
	}

	if c.Projections.MinViews < 0 {
		return fmt.Errorf("projections.min_views must be >= 0")
	}
	if c.Projections.MinCarts < 0 {
		return fmt.Errorf("projections.min_carts must be >= 0")
	}
	if c.Projections.TopN <= 0 {
		return fmt.Errorf("projections.top_n must be > 0")
	}
	if c.Projections.RefreshInterval < 0 {
		return fmt.Errorf("projections.refresh_interval must be >= 0")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	return nil
}

// Load parses config from defaults, the optional file and CLICKSTREAM_ env
// vars (CLICKSTREAM_DATABASE__PASSWORD sets database.password), then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"database.host":                  "localhost",
		"database.port":                  5432,
		"database.name":                  "ecommerce_analytics",
		"database.user":                  "postgres",
		"database.sslmode":               "disable",
		"database.max_open_conns":        4,
		"database.max_idle_conns":        2,
		"database.conn_max_lifetime":     "5m",
		"database.auto_migrate":          true,
		"input.dir":                      "./data",
		"partitions.first":               "2019-10",
		"partitions.last":                "2020-04",
		"loader.strategy":                "insert",
		"loader.chunk_size":              10000,
		"loader.max_attempts":            3,
		"loader.retry_delay":             "5s",
		"extract.batch_size":             100000,
		"extract.insert_batch_size":      1000,
		"sessions.mode":                  "sql",
		"sessions.batch_size":            50000,
		"projections.min_views":          100,
		"projections.min_carts":          10,
		"projections.top_n":              1000,
		"projections.concurrent_refresh": true,
		"projections.refresh_interval":   "0s",
		"server.host":                    "0.0.0.0",
		"server.port":                    8000,
		"server.mode":                    "release",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

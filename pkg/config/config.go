// Package config reads the YAML configuration shared by the Moogle
// commands, applies MOOGLE_* environment overrides and validates the result.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

// Source kinds accepted by CorpusConfig.Source.
const (
	SourceDirectory = "directory"
	SourcePostgres  = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Synonyms  SynonymsConfig  `yaml:"synonyms"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of API requests one client may make per
	// RateWindow. Zero disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
}

// CorpusConfig selects where documents come from and how they are read.
type CorpusConfig struct {
	Source  string `yaml:"source"`
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	Workers int    `yaml:"workers"`
}

// SynonymsConfig points at the synonym table file (JSON or YAML). An empty
// path means no synonyms.
type SynonymsConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig controls query execution and result presentation.
type SearchConfig struct {
	PageSize       int           `yaml:"pageSize"`
	PageRange      int           `yaml:"pageRange"`
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
	HighlightOpen  string        `yaml:"highlightOpen"`
	HighlightClose string        `yaml:"highlightClose"`
	// Shards is the number of goroutines scoring a query.
	Shards         int           `yaml:"shards"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN is the postgres:// URL lib/pq connects with. Credentials are escaped.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
	CorpusReload    string `yaml:"corpusReload"`
}

// AnalyticsConfig controls query-event batching and snapshot persistence.
type AnalyticsConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	Persist          bool          `yaml:"persist"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, apperrors.Configf("environment overrides: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	switch c.Corpus.Source {
	case SourceDirectory:
		if c.Corpus.Dir == "" {
			errs = multierror.Append(errs, fmt.Errorf("corpus.dir is required for the directory source"))
		}
	case SourcePostgres:
	default:
		errs = multierror.Append(errs, fmt.Errorf("corpus.source %q is not one of %q, %q", c.Corpus.Source, SourceDirectory, SourcePostgres))
	}
	if c.Server.RateLimit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.rateLimit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.rateWindow must be positive when rateLimit is set"))
	}
	if c.Corpus.Workers <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("corpus.workers must be positive"))
	}
	if c.Search.PageSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("search.pageSize must be positive"))
	}
	if c.Search.PageRange <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("search.pageRange must be positive"))
	}
	if c.Search.Shards <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("search.shards must be positive"))
	}
	if c.Search.QueryTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("search.queryTimeout must not be negative"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("kafka.brokers is required when kafka is enabled"))
	}
	if c.Analytics.Persist && c.Analytics.SnapshotInterval <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("analytics.snapshotInterval must be positive when persist is enabled"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = multierror.Append(errs, fmt.Errorf("redis.addr is required when redis is enabled"))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return apperrors.Configf("invalid configuration: %v", err)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Corpus: CorpusConfig{
			Source:  SourceDirectory,
			Dir:     "content",
			Pattern: "*.txt",
			Workers: 8,
		},
		Search: SearchConfig{
			PageSize:       10,
			PageRange:      5,
			QueryTimeout:   5 * time.Second,
			HighlightOpen:  "<mark>",
			HighlightClose: "</mark>",
			Shards:         1,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "moogle",
			User:            "moogle",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "moogle-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "moogle-analytics",
				CorpusReload:    "moogle-corpus-reload",
			},
		},
		Analytics: AnalyticsConfig{
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// envVar binds one MOOGLE_* variable to a config field.
type envVar struct {
	name string
	set  func(string) error
}

func envVars(cfg *Config) []envVar {
	return []envVar{
		{"MOOGLE_SERVER_PORT", intField(&cfg.Server.Port)},
		{"MOOGLE_SERVER_RATE_LIMIT", intField(&cfg.Server.RateLimit)},
		{"MOOGLE_CORPUS_SOURCE", stringField(&cfg.Corpus.Source)},
		{"MOOGLE_CORPUS_DIR", stringField(&cfg.Corpus.Dir)},
		{"MOOGLE_CORPUS_PATTERN", stringField(&cfg.Corpus.Pattern)},
		{"MOOGLE_SYNONYMS_PATH", stringField(&cfg.Synonyms.Path)},
		{"MOOGLE_SEARCH_QUERY_TIMEOUT", durationField(&cfg.Search.QueryTimeout)},
		{"MOOGLE_SEARCH_SHARDS", intField(&cfg.Search.Shards)},
		{"MOOGLE_POSTGRES_HOST", stringField(&cfg.Postgres.Host)},
		{"MOOGLE_POSTGRES_PORT", intField(&cfg.Postgres.Port)},
		{"MOOGLE_POSTGRES_DATABASE", stringField(&cfg.Postgres.Database)},
		{"MOOGLE_POSTGRES_USER", stringField(&cfg.Postgres.User)},
		{"MOOGLE_POSTGRES_PASSWORD", stringField(&cfg.Postgres.Password)},
		{"MOOGLE_REDIS_ENABLED", boolField(&cfg.Redis.Enabled)},
		{"MOOGLE_REDIS_ADDR", stringField(&cfg.Redis.Addr)},
		{"MOOGLE_REDIS_PASSWORD", stringField(&cfg.Redis.Password)},
		{"MOOGLE_KAFKA_ENABLED", boolField(&cfg.Kafka.Enabled)},
		{"MOOGLE_KAFKA_BROKERS", listField(&cfg.Kafka.Brokers)},
		{"MOOGLE_ANALYTICS_PERSIST", boolField(&cfg.Analytics.Persist)},
		{"MOOGLE_LOGGING_LEVEL", stringField(&cfg.Logging.Level)},
		{"MOOGLE_LOGGING_FORMAT", stringField(&cfg.Logging.Format)},
	}
}

// applyEnv overrides cfg from the set, non-empty MOOGLE_* variables. Values
// that do not parse are all reported together.
func applyEnv(cfg *Config) error {
	var errs *multierror.Error
	for _, ev := range envVars(cfg) {
		v := os.Getenv(ev.name)
		if v == "" {
			continue
		}
		if err := ev.set(v); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s=%q: %w", ev.name, v, err))
		}
	}
	return errs.ErrorOrNil()
}

func stringField(p *string) func(string) error {
	return func(v string) error { *p = v; return nil }
}

func intField(p *int) func(string) error {
	return func(v string) (err error) { *p, err = strconv.Atoi(v); return err }
}

func boolField(p *bool) func(string) error {
	return func(v string) (err error) { *p, err = strconv.ParseBool(v); return err }
}

func durationField(p *time.Duration) func(string) error {
	return func(v string) (err error) { *p, err = time.ParseDuration(v); return err }
}

func listField(p *[]string) func(string) error {
	return func(v string) error {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*p = out
		return nil
	}
}

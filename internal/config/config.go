package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all settings, populated from environment variables. Command
// line flags default to these values.
type Config struct {
	DataFile    string
	Variable    string
	RebaseStart time.Time
	ForceRebase bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// VictoriaMetrics sink.
	VMInsertURL     string
	VMConcurrency   int
	VMRecsPerInsert int
	MetricPrefix    string

	// ExportRetries is the number of attempts per batch, for every sink.
	ExportRetries int

	// Kafka sink.
	KafkaBrokers []string
	KafkaTopic   string
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	rebaseStart, err := time.Parse("2006-01", sharedcfg.EnvOrDefault("NINO_REBASE_START", "1700-01"))
	if err != nil {
		return nil, errors.New("invalid NINO_REBASE_START, want YYYY-MM")
	}

	forceRebase, err := parseBool("NINO_FORCE_REBASE")
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("VM_CONCURRENCY", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	recsPerInsert, err := parsePositiveInt("VM_RECS_PER_INSERT", 500)
	if err != nil {
		return nil, err
	}

	retries, err := parsePositiveInt("EXPORT_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataFile:    os.Getenv("NINO_DATA_FILE"),
		Variable:    sharedcfg.EnvOrDefault("NINO_VARIABLE", "tas"),
		RebaseStart: rebaseStart,
		ForceRebase: forceRebase,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,

		VMInsertURL:     sharedcfg.EnvOrDefault("VM_INSERT_URL", "http://localhost:8428/write"),
		VMConcurrency:   concurrency,
		VMRecsPerInsert: recsPerInsert,
		MetricPrefix:    sharedcfg.EnvOrDefault("VM_METRIC_PREFIX", "ccsm4"),

		ExportRetries: retries,

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "nino34-index"),
	}

	if cfg.Variable == "" {
		return nil, errors.New("NINO_VARIABLE must not be empty")
	}
	if ok, _ := regexp.MatchString(metricPrefixRE, cfg.MetricPrefix); !ok {
		return nil, fmt.Errorf("VM_METRIC_PREFIX %q does not match %q", cfg.MetricPrefix, metricPrefixRE)
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

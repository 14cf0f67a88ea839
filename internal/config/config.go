package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultDatasetURL is the published Drive export of the 2000-2023 dataset.
// confirm=t skips the virus-scan page Drive serves for large files.
const DefaultDatasetURL = "https://drive.google.com/uc?export=download&id=1aYtfI7ZnJFUwVoxsWj-9s2TVUOIL0vCW&confirm=t"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset source and year windows.
	DatasetPath         string
	DatasetURL          string
	DatasetFetchTimeout time.Duration
	DatasetStartYear    int
	HistoryStartYear    int

	// Random forest hyperparameters.
	ModelTrees           int
	ModelSeed            int64
	ModelTestSize        float64
	ModelMaxDepth        int
	ModelMinSamplesSplit int
	ModelWorkers         int

	// Prediction sinks. Empty brokers or path disables the sink.
	KafkaBrokers         []string
	KafkaPredictionTopic string
	PredictionLogPath    string

	// Gemini advisor. An empty key disables free-form questions.
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTimeout   time.Duration
	AdviceCacheSize int

	// SMTP alerts. The sender address doubles as the login user.
	SMTPServer  string
	SMTPPort    int
	SenderEmail string
	SenderPass  string
}

// KafkaEnabled reports whether prediction events are published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetPath: sharedcfg.EnvOrDefault("DATASET_PATH", "data/US_air_pollution_dataset_2000_2023.csv"),
		DatasetURL:  sharedcfg.EnvOrDefault("DATASET_URL", DefaultDatasetURL),

		KafkaPredictionTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTION_TOPIC", "aqi-predictions"),
		PredictionLogPath:    os.Getenv("PREDICTION_LOG_PATH"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),

		SMTPServer:  sharedcfg.EnvOrDefault("SMTP_SERVER", "smtp.gmail.com"),
		SenderEmail: os.Getenv("SENDER_EMAIL"),
		SenderPass:  os.Getenv("SENDER_PASS"),
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range sharedcfg.ParseBrokers(brokers) {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.DatasetFetchTimeout, err = parseDuration("DATASET_FETCH_TIMEOUT", 5*time.Minute)
	collect(err)
	cfg.GeminiTimeout, err = parseDuration("GEMINI_TIMEOUT", 30*time.Second)
	collect(err)

	cfg.DatasetStartYear, err = parseInt("DATASET_START_YEAR", 2020, 1900)
	collect(err)
	cfg.HistoryStartYear, err = parseInt("HISTORY_START_YEAR", 2015, 1900)
	collect(err)
	cfg.ModelTrees, err = parseInt("MODEL_TREES", 100, 1)
	collect(err)
	cfg.ModelMaxDepth, err = parseInt("MODEL_MAX_DEPTH", 0, 0)
	collect(err)
	cfg.ModelMinSamplesSplit, err = parseInt("MODEL_MIN_SAMPLES_SPLIT", 2, 2)
	collect(err)
	cfg.ModelWorkers, err = parseInt("MODEL_WORKERS", 0, 0)
	collect(err)
	cfg.AdviceCacheSize, err = parseInt("ADVICE_CACHE_SIZE", 256, 0)
	collect(err)
	cfg.SMTPPort, err = parseInt("SMTP_PORT", 587, 1)
	collect(err)

	seed, err := parseInt("MODEL_SEED", 42, 0)
	collect(err)
	cfg.ModelSeed = int64(seed)

	cfg.ModelTestSize, err = parseFloat("MODEL_TEST_SIZE", 0.2)
	collect(err)
	if err == nil && (cfg.ModelTestSize <= 0 || cfg.ModelTestSize >= 1) {
		collect(errors.New("MODEL_TEST_SIZE must be between 0 and 1"))
	}

	if cfg.KafkaEnabled() && cfg.KafkaPredictionTopic == "" {
		collect(errors.New("KAFKA_PREDICTION_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if cfg.DatasetPath == "" {
		collect(errors.New("DATASET_PATH is required"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: %q (want integer >= %d)", key, s, minimum)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Config is the root configuration for the jobsift pipeline.
type Config struct {
	Sources    []SourceConfig
	Store      StoreConfig
	Classifier ClassifierConfig
	Run        RunConfig
	Lock       LockConfig
	Notify     NotifyConfig
}

// SourceConfig describes a single job source.
type SourceConfig struct {
	Name     string
	Enabled  bool
	Token    string        // API token for sources that need one (e.g. v2ex)
	BaseURL  string        // override for tests and self-hosted mirrors
	MinDelay time.Duration // minimum gap between requests to this source
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // "sqlite", "postgres" or "memory"
	Path   string // sqlite file path
	DSN    string // postgres connection string
}

// ClassifierConfig controls the LLM providers and pacing.
type ClassifierConfig struct {
	OpenAI      ProviderConfig
	Ollama      ProviderConfig
	Concurrency int     // concurrent classification calls per source
	RPS         float64 // global requests-per-second ceiling across providers
}

// ProviderConfig holds the settings of one LLM provider.
type ProviderConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-call timeout
}

// RunConfig controls pipeline execution.
type RunConfig struct {
	Workers       int           // concurrent source workers
	SourceTimeout time.Duration // wall-clock budget per source
	StalenessDays int           // postings older than this are deactivated
	Schedule      string        // cron expression for daemon mode
}

// NotifyConfig controls announcements of newly ingested postings. With no
// webhook configured, announcements go to the structured log.
type NotifyConfig struct {
	Enabled         bool
	SlackWebhookURL string
	TitleKeywords   []string // only announce postings whose title matches; empty = all
	Categories      []model.Category
}

// LockConfig controls the optional Redis run lock used by daemon mode.
type LockConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Sources    []rawSourceConfig   `yaml:"sources"`
	Store      StoreConfig         `yaml:"store"`
	Classifier rawClassifierConfig `yaml:"classifier"`
	Run        rawRunConfig        `yaml:"run"`
	Lock       rawLockConfig       `yaml:"lock"`
	Notify     rawNotifyConfig     `yaml:"notify"`
}

type rawNotifyConfig struct {
	Enabled         bool     `yaml:"enabled"`
	SlackWebhookURL string   `yaml:"slack_webhook_url"`
	TitleKeywords   []string `yaml:"title_keywords"`
	Categories      []string `yaml:"categories"`
}

type rawSourceConfig struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Token    string `yaml:"token"`
	BaseURL  string `yaml:"base_url"`
	MinDelay string `yaml:"min_delay"`
}

type rawClassifierConfig struct {
	OpenAI      rawProviderConfig `yaml:"openai"`
	Ollama      rawProviderConfig `yaml:"ollama"`
	Concurrency int               `yaml:"concurrency"`
	RPS         float64           `yaml:"rps"`
}

type rawProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawRunConfig struct {
	Workers       int    `yaml:"workers"`
	SourceTimeout string `yaml:"source_timeout"`
	StalenessDays int    `yaml:"staleness_days"`
	Schedule      string `yaml:"schedule"`
}

type rawLockConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	TTL      string `yaml:"ttl"`
}

// knownSources are the source names the pipeline can construct adapters for.
var knownSources = map[string]bool{
	"remoteok": true,
	"v2ex":     true,
	"eleduck":  true,
	"rwfa":     true,
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	sources := make([]SourceConfig, 0, len(raw.Sources))
	for _, rs := range raw.Sources {
		delay := 2 * time.Second // default gap between requests to one source
		if rs.MinDelay != "" {
			delay, err = time.ParseDuration(rs.MinDelay)
			if err != nil {
				return nil, fmt.Errorf("parse sources[%q].min_delay %q: %w", rs.Name, rs.MinDelay, err)
			}
		}
		sources = append(sources, SourceConfig{
			Name:     strings.ToLower(rs.Name),
			Enabled:  rs.Enabled,
			Token:    rs.Token,
			BaseURL:  rs.BaseURL,
			MinDelay: delay,
		})
	}

	openAI, err := parseProvider(raw.Classifier.OpenAI, "classifier.openai", defaultOpenAIBaseURL)
	if err != nil {
		return nil, err
	}
	ollama, err := parseProvider(raw.Classifier.Ollama, "classifier.ollama", defaultOllamaBaseURL)
	if err != nil {
		return nil, err
	}

	concurrency := raw.Classifier.Concurrency
	if concurrency == 0 {
		concurrency = 4
	}
	rps := raw.Classifier.RPS
	if rps == 0 {
		rps = 2
	}

	workers := raw.Run.Workers
	if workers == 0 {
		workers = 3
	}
	sourceTimeout := 10 * time.Minute
	if raw.Run.SourceTimeout != "" {
		sourceTimeout, err = time.ParseDuration(raw.Run.SourceTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse run.source_timeout %q: %w", raw.Run.SourceTimeout, err)
		}
	}
	stalenessDays := raw.Run.StalenessDays
	if stalenessDays == 0 {
		stalenessDays = 30
	}

	lockTTL := 30 * time.Minute
	if raw.Lock.TTL != "" {
		lockTTL, err = time.ParseDuration(raw.Lock.TTL)
		if err != nil {
			return nil, fmt.Errorf("parse lock.ttl %q: %w", raw.Lock.TTL, err)
		}
	}
	lockKey := raw.Lock.Key
	if lockKey == "" {
		lockKey = "jobsift:run-lock"
	}

	notifyCategories := make([]model.Category, 0, len(raw.Notify.Categories))
	for _, label := range raw.Notify.Categories {
		c, ok := model.ParseCategory(strings.ToLower(label))
		if !ok {
			return nil, fmt.Errorf("notify.categories: unknown category %q", label)
		}
		notifyCategories = append(notifyCategories, c)
	}

	cfg := &Config{
		Sources: sources,
		Store:   raw.Store,
		Classifier: ClassifierConfig{
			OpenAI:      openAI,
			Ollama:      ollama,
			Concurrency: concurrency,
			RPS:         rps,
		},
		Run: RunConfig{
			Workers:       workers,
			SourceTimeout: sourceTimeout,
			StalenessDays: stalenessDays,
			Schedule:      raw.Run.Schedule,
		},
		Lock: LockConfig{
			Enabled:  raw.Lock.Enabled,
			Addr:     raw.Lock.Addr,
			Password: raw.Lock.Password,
			DB:       raw.Lock.DB,
			Key:      lockKey,
			TTL:      lockTTL,
		},
		Notify: NotifyConfig{
			Enabled:         raw.Notify.Enabled,
			SlackWebhookURL: raw.Notify.SlackWebhookURL,
			TitleKeywords:   raw.Notify.TitleKeywords,
			Categories:      notifyCategories,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseProvider(raw rawProviderConfig, section, defaultBaseURL string) (ProviderConfig, error) {
	timeout := 30 * time.Second
	if raw.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(raw.Timeout)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("parse %s.timeout %q: %w", section, raw.Timeout, err)
		}
	}
	baseURL := raw.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return ProviderConfig{
		Enabled: raw.Enabled,
		BaseURL: baseURL,
		Model:   raw.Model,
		APIKey:  raw.APIKey,
		Timeout: timeout,
	}, nil
}

func validate(cfg *Config) error {
	enabled := 0
	for _, s := range cfg.Sources {
		if !knownSources[s.Name] {
			return fmt.Errorf("unknown source %q", s.Name)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.driver is \"sqlite\"")
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be \"sqlite\", \"postgres\" or \"memory\", got %q", cfg.Store.Driver)
	}

	if cfg.Classifier.OpenAI.Enabled {
		if cfg.Classifier.OpenAI.APIKey == "" {
			return fmt.Errorf("classifier.openai.api_key is required when classifier.openai.enabled is true")
		}
		if cfg.Classifier.OpenAI.Model == "" {
			return fmt.Errorf("classifier.openai.model is required when classifier.openai.enabled is true")
		}
	}
	if cfg.Classifier.Ollama.Enabled && cfg.Classifier.Ollama.Model == "" {
		return fmt.Errorf("classifier.ollama.model is required when classifier.ollama.enabled is true")
	}

	if cfg.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be positive, got %d", cfg.Run.Workers)
	}
	if cfg.Run.StalenessDays < 1 {
		return fmt.Errorf("run.staleness_days must be positive, got %d", cfg.Run.StalenessDays)
	}

	if cfg.Lock.Enabled && cfg.Lock.Addr == "" {
		return fmt.Errorf("lock.addr is required when lock.enabled is true")
	}

	return nil
}

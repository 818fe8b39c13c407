package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
sources:
  - name: remoteok
    enabled: true
    min_delay: 3s
  - name: v2ex
    enabled: true
    token: abc123
  - name: eleduck
    enabled: false
store:
  driver: sqlite
  path: jobsift.db
classifier:
  openai:
    enabled: true
    model: gpt-4o-mini
    api_key: sk-test
    timeout: 20s
  ollama:
    enabled: true
    model: qwen2.5:1.5b
  concurrency: 8
  rps: 1.5
run:
  workers: 2
  source_timeout: 5m
  staleness_days: 14
  schedule: "0 */6 * * *"
lock:
  enabled: true
  addr: localhost:6379
  ttl: 10m
notify:
  enabled: true
  slack_webhook_url: https://hooks.slack.com/services/T00/B00/xyz
  title_keywords: [engineer, developer]
  categories: [Backend, devops]
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(cfg.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[0].MinDelay != 3*time.Second {
		t.Errorf("expected remoteok min_delay 3s, got %v", cfg.Sources[0].MinDelay)
	}
	if cfg.Sources[1].MinDelay != 2*time.Second {
		t.Errorf("expected default min_delay 2s, got %v", cfg.Sources[1].MinDelay)
	}
	if cfg.Sources[1].Token != "abc123" {
		t.Errorf("expected v2ex token to be set, got %q", cfg.Sources[1].Token)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "jobsift.db" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Classifier.OpenAI.Timeout != 20*time.Second {
		t.Errorf("expected openai timeout 20s, got %v", cfg.Classifier.OpenAI.Timeout)
	}
	if cfg.Classifier.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("expected default ollama base URL, got %q", cfg.Classifier.Ollama.BaseURL)
	}
	if cfg.Classifier.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Classifier.Concurrency)
	}
	if cfg.Run.Workers != 2 || cfg.Run.StalenessDays != 14 {
		t.Errorf("unexpected run config: %+v", cfg.Run)
	}
	if cfg.Run.Schedule != "0 */6 * * *" {
		t.Errorf("unexpected schedule %q", cfg.Run.Schedule)
	}
	if cfg.Lock.Key != "jobsift:run-lock" {
		t.Errorf("expected default lock key, got %q", cfg.Lock.Key)
	}
	if cfg.Lock.TTL != 10*time.Minute {
		t.Errorf("expected lock ttl 10m, got %v", cfg.Lock.TTL)
	}
	if !cfg.Notify.Enabled || cfg.Notify.SlackWebhookURL == "" {
		t.Errorf("unexpected notify config: %+v", cfg.Notify)
	}
	if len(cfg.Notify.Categories) != 2 || cfg.Notify.Categories[0] != model.CategoryBackend {
		t.Errorf("expected case-folded notify categories, got %v", cfg.Notify.Categories)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
sources:
  - name: remoteok
    enabled: true
store:
  driver: memory
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Run.Workers != 3 {
		t.Errorf("expected default workers 3, got %d", cfg.Run.Workers)
	}
	if cfg.Run.SourceTimeout != 10*time.Minute {
		t.Errorf("expected default source_timeout 10m, got %v", cfg.Run.SourceTimeout)
	}
	if cfg.Run.StalenessDays != 30 {
		t.Errorf("expected default staleness_days 30, got %d", cfg.Run.StalenessDays)
	}
	if cfg.Classifier.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Classifier.Concurrency)
	}
	if cfg.Classifier.RPS != 2 {
		t.Errorf("expected default rps 2, got %v", cfg.Classifier.RPS)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("JOBSIFT_TEST_TOKEN", "tok-from-env")
	cfg, err := Load(writeConfig(t, `
sources:
  - name: v2ex
    enabled: true
    token: ${JOBSIFT_TEST_TOKEN}
store:
  driver: memory
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sources[0].Token != "tok-from-env" {
		t.Errorf("expected token expanded from env, got %q", cfg.Sources[0].Token)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "no enabled sources",
			yaml: `
sources:
  - name: remoteok
    enabled: false
store:
  driver: memory
`,
			wantErr: "at least one source",
		},
		{
			name: "unknown source",
			yaml: `
sources:
  - name: linkedin
    enabled: true
store:
  driver: memory
`,
			wantErr: "unknown source",
		},
		{
			name: "sqlite without path",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: sqlite
`,
			wantErr: "store.path is required",
		},
		{
			name: "postgres without dsn",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: postgres
`,
			wantErr: "store.dsn is required",
		},
		{
			name: "unknown driver",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: dynamodb
`,
			wantErr: "store.driver must be",
		},
		{
			name: "openai without api key",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: memory
classifier:
  openai:
    enabled: true
    model: gpt-4o-mini
`,
			wantErr: "classifier.openai.api_key",
		},
		{
			name: "unknown notify category",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: memory
notify:
  enabled: true
  categories: [webdev]
`,
			wantErr: "unknown category",
		},
		{
			name: "lock without addr",
			yaml: `
sources:
  - name: remoteok
    enabled: true
store:
  driver: memory
lock:
  enabled: true
`,
			wantErr: "lock.addr is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

type fakeProvider struct {
	name     string
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.response, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestChain(providers ...LLMProvider) *Chain {
	return NewChain(providers, NewRuleEngine(), nil, time.Second, discardLogger())
}

func TestClassifyUsesPrimaryProvider(t *testing.T) {
	primary := &fakeProvider{name: "openai", response: `{"categories":["backend"]}`}
	fallback := &fakeProvider{name: "ollama", response: `{"categories":["frontend"]}`}

	got, err := newTestChain(primary, fallback).Classify(context.Background(),
		"Backend Engineer", "Design APIs in golang.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryBackend) {
		t.Errorf("Classify = %v, want [backend]", got)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestClassifyFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("429 too many requests")}
	fallback := &fakeProvider{name: "ollama", response: `The categories are {"categories":["backend"]} hope that helps`}

	got, err := newTestChain(primary, fallback).Classify(context.Background(),
		"Backend Engineer", "Design APIs in golang.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryBackend) {
		t.Errorf("Classify = %v, want [backend]", got)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestClassifyFallsBackOnEmptyLabels(t *testing.T) {
	primary := &fakeProvider{name: "openai", response: `{"categories":["not-a-category"]}`}
	fallback := &fakeProvider{name: "ollama", response: `{"categories":["backend"]}`}

	got, err := newTestChain(primary, fallback).Classify(context.Background(),
		"Backend Engineer", "Design APIs in golang.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryBackend) {
		t.Errorf("Classify = %v, want [backend]", got)
	}
}

func TestClassifyAllBackendsDown(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("connection refused")}
	fallback := &fakeProvider{name: "ollama", err: errors.New("connection refused")}

	got, err := newTestChain(primary, fallback).Classify(context.Background(),
		"Office Manager", "Keep the office running.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryOther) {
		t.Errorf("Classify = %v, want [other]", got)
	}
}

func TestClassifyRulesCorrectModelOutput(t *testing.T) {
	// The model hallucinates ai on a posting that never mentions it, and
	// misses the kubernetes signal.
	primary := &fakeProvider{name: "openai", response: `{"categories":["ai","backend"]}`}

	got, err := newTestChain(primary).Classify(context.Background(),
		"Backend Engineer", "Golang APIs deployed on kubernetes.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryBackend, model.CategoryDevops) {
		t.Errorf("Classify = %v, want [backend devops]", got)
	}
}

func TestClassifyNoProviders(t *testing.T) {
	got, err := newTestChain().Classify(context.Background(),
		"Frontend Engineer", "React and TypeScript.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !categoriesMatch(got, model.CategoryFrontend) {
		t.Errorf("Classify = %v, want [frontend]", got)
	}
}

func TestClassifyContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeProvider{name: "openai", response: `{"categories":["backend"]}`}
	if _, err := newTestChain(primary).Classify(ctx, "Engineer", "text"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.Category
	}{
		{
			"strict json",
			`{"categories":["backend","devops"]}`,
			[]model.Category{model.CategoryBackend, model.CategoryDevops},
		},
		{
			"json wrapped in prose",
			"Sure! Here you go: {\"categories\": [\"mobile\"]} Let me know if you need more.",
			[]model.Category{model.CategoryMobile},
		},
		{
			"bare labels",
			"I'd say this is backend, maybe devops.",
			[]model.Category{model.CategoryBackend, model.CategoryDevops},
		},
		{
			"no ai inside blockchain",
			"definitely blockchain work",
			[]model.Category{model.CategoryBlockchain},
		},
		{
			"invalid labels dropped",
			`{"categories":["backend","janitor"]}`,
			[]model.Category{model.CategoryBackend},
		},
		{
			"duplicates collapsed and capped",
			`{"categories":["backend","backend","frontend","mobile","devops"]}`,
			[]model.Category{model.CategoryBackend, model.CategoryFrontend, model.CategoryMobile},
		},
		{
			"case and spacing normalized",
			`{"categories":[" Backend ","DEVOPS"]}`,
			[]model.Category{model.CategoryBackend, model.CategoryDevops},
		},
		{"nothing usable", "let me think about that", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLabels(tt.raw)
			if !categoriesMatch(got, tt.want...) {
				t.Errorf("parseLabels(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

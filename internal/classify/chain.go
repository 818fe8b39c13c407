// Package classify assigns categories to postings: a remote model call with
// a local fallback, always corrected by a deterministic keyword rule layer.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Chain tries each provider in order until one yields at least one valid
// label, then unconditionally applies the rule engine. Classification never
// fails a posting: with every backend down the result is the reserved
// "other" category. The only error Classify returns is context cancellation.
type Chain struct {
	providers   []LLMProvider // ordered: primary first, then fallbacks
	rules       *RuleEngine
	limiter     *rate.Limiter // paces calls to remote backends
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewChain builds a classification chain. limiter may be nil to disable
// pacing (tests, rule-only runs); providers may be empty, in which case only
// the rule layer runs.
func NewChain(providers []LLMProvider, rules *RuleEngine, limiter *rate.Limiter, callTimeout time.Duration, logger *slog.Logger) *Chain {
	return &Chain{
		providers:   providers,
		rules:       rules,
		limiter:     limiter,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

var _ model.Classifier = (*Chain)(nil)

// Classify resolves 1..3 categories for the given text.
func (c *Chain) Classify(ctx context.Context, title, description string) ([]model.Category, error) {
	var proposed []model.Category

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		labels, err := c.classifyOnce(ctx, p, title, description)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("classification backend failed",
				"backend", p.Name(),
				"title", truncate(title, 60),
				"error", err,
			)
			continue
		}
		if len(labels) > 0 {
			proposed = labels
			break
		}
		c.logger.Warn("classification backend returned no valid labels", "backend", p.Name())
	}

	if len(proposed) == 0 {
		proposed = c.rules.Suggest(title, description)
	}
	return c.rules.Enforce(proposed, title, description), nil
}

// classifyOnce renders the prompt, calls one backend with its own timeout,
// and parses whatever labels survive validation.
func (c *Chain) classifyOnce(ctx context.Context, p LLMProvider, title, description string) ([]model.Category, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	prompt, err := renderPrompt(title, description)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	raw, err := p.Complete(callCtx, prompt)
	if err != nil {
		return nil, err
	}
	return parseLabels(raw), nil
}

func renderPrompt(title, description string) (string, error) {
	if len(description) > maxPromptDescription {
		description = description[:maxPromptDescription]
	}
	var buf bytes.Buffer
	err := categoryPromptTemplate.Execute(&buf, struct{ Title, Description string }{
		Title:       title,
		Description: description,
	})
	return buf.String(), err
}

// labelPayload is the JSON shape both backends are asked to produce.
type labelPayload struct {
	Categories []string `json:"categories"`
}

// parseLabels extracts valid category labels from a backend response.
// Structured-output backends return strict JSON; smaller local models may
// wrap it in prose, so as a last resort the known labels are scanned for
// directly. Labels outside the closed set are discarded.
func parseLabels(raw string) []model.Category {
	var labels []string

	var payload labelPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		labels = payload.Categories
	} else if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
				labels = payload.Categories
			}
		}
	}

	if labels == nil {
		// Token-wise scan: substring matching would find "ai" inside
		// "blockchain".
		tokens := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
			return (r < 'a' || r > 'z') && (r < '0' || r > '9')
		})
		present := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			present[t] = true
		}
		for _, c := range model.AllCategories {
			if present[string(c)] {
				labels = append(labels, string(c))
			}
		}
	}

	var out []model.Category
	seen := make(map[model.Category]bool)
	for _, l := range labels {
		c, ok := model.ParseCategory(strings.ToLower(strings.TrimSpace(l)))
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == model.MaxCategories {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

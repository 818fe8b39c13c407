package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// messageGap paces consecutive webhook posts; Slack throttles incoming
// webhooks at roughly one message per second.
const messageGap = 500 * time.Millisecond

// SlackNotifier sends posting alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each posting to Slack via
// webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends each posting as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail; individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	failures := 0
	for i, p := range postings {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(messageGap):
			}
		}

		if err := s.sendMessage(ctx, p); err != nil {
			s.logger.Error("slack notification failed",
				"company", p.Company, "title", p.Title, "error", err)
			failures++
		}
	}

	sent := len(postings) - failures
	if failures == len(postings) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, p model.Posting) error {
	payload := buildPayload(p)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(secs) * time.Second):
		}

		resp2, err := s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.httpClient.Do(req)
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func buildPayload(p model.Posting) slackPayload {
	header := p.Title
	if p.Company != "" {
		header = p.Company + ": " + p.Title
	}

	cats := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		cats[i] = string(c)
	}

	postedText := "just ingested"
	if p.DatePosted != nil {
		postedText = p.DatePosted.Format("2006-01-02")
	}

	fields := []slackText{
		{Type: "mrkdwn", Text: "*Categories:*\n" + strings.Join(cats, ", ")},
		{Type: "mrkdwn", Text: "*Region:*\n" + p.RegionLimit},
		{Type: "mrkdwn", Text: "*Source:*\n" + p.SourceSite},
		{Type: "mrkdwn", Text: "*Posted:*\n" + postedText},
	}

	applyURL := p.ApplyURL
	if applyURL == "" {
		applyURL = p.OriginalURL
	}

	return slackPayload{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🆕 " + header},
		},
		{
			Type:   "section",
			Fields: fields,
		},
		{
			Type: "actions",
			Elements: []slackElement{{
				Type:  "button",
				Text:  slackText{Type: "plain_text", Text: "View Posting"},
				URL:   applyURL,
				Style: "primary",
			}},
		},
	}}
}

// Package notifier announces newly ingested postings. Notification is best
// effort and runs after persistence: a delivery failure never loses data.
package notifier

import (
	"context"
	"log/slog"

	"github.com/yulin-dev/jobsift/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new postings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each posting with company, title, categories, region and URL.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	for _, p := range postings {
		args := []any{
			"company", p.Company,
			"title", p.Title,
			"categories", p.Categories,
			"region", p.RegionLimit,
			"source", p.SourceSite,
			"url", p.OriginalURL,
		}
		if p.DatePosted != nil {
			args = append(args, "date_posted", *p.DatePosted)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

const (
	eleduckAPIURL     = "https://svc.eleduck.com/api/v1/posts"
	eleduckSiteURL    = "https://eleduck.com"
	eleduckCategoryID = 5 // the hiring board
	eleduckLookback   = 30 * 24 * time.Hour
)

type eleduckTag struct {
	Name string `json:"name"`
}

type eleduckPost struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	FullTitle   string       `json:"full_title"`
	Summary     string       `json:"summary"`
	PublishedAt string       `json:"published_at"`
	TouchedAt   string       `json:"touched_at"`
	Tags        []eleduckTag `json:"tags"`
}

type eleduckResponse struct {
	Posts []eleduckPost `json:"posts"`
	Pager struct {
		TotalPages int `json:"total_pages"`
	} `json:"pager"`
}

// EleduckAdapter fetches hiring posts from the Eleduck JSON API, paginating
// until it reaches posts older than the lookback window. Posts are sorted by
// last activity, so pagination stops once touched_at falls outside the
// window; individual posts merely bumped by comments are skipped by their
// published_at instead.
type EleduckAdapter struct {
	apiURL   string
	client   *http.Client
	minDelay time.Duration
	now      func() time.Time
}

// NewEleduckAdapter creates the adapter.
func NewEleduckAdapter(client *http.Client, minDelay time.Duration) *EleduckAdapter {
	return &EleduckAdapter{
		apiURL:   eleduckAPIURL,
		client:   client,
		minDelay: minDelay,
		now:      time.Now,
	}
}

func (a *EleduckAdapter) Name() string            { return "eleduck" }
func (a *EleduckAdapter) MinDelay() time.Duration { return a.minDelay }

// SetBaseURL overrides the API endpoint, for mirrors and tests.
func (a *EleduckAdapter) SetBaseURL(u string) { a.apiURL = u }

// Fetch walks the hiring board page by page. An error mid-pagination with
// posts already collected is a partial success.
func (a *EleduckAdapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	cutoff := a.now().Add(-eleduckLookback)
	var postings []model.RawPosting

	for page := 1; ; page++ {
		resp, err := a.fetchPage(ctx, page)
		if err != nil {
			if len(postings) > 0 {
				return postings, &model.FetchError{Source: a.Name(), Err: err}
			}
			return nil, &model.FetchError{Source: a.Name(), Err: err}
		}
		if len(resp.Posts) == 0 {
			break
		}

		stop := false
		for _, post := range resp.Posts {
			touched := parseISOTime(post.TouchedAt)
			if touched != nil && touched.Before(cutoff) {
				stop = true
				break
			}
			published := parseISOTime(post.PublishedAt)
			if published != nil && published.Before(cutoff) {
				continue
			}

			if raw, ok := a.toRawPosting(post); ok {
				postings = append(postings, raw)
			}
		}

		if stop || page >= resp.Pager.TotalPages {
			break
		}
	}

	return postings, nil
}

func (a *EleduckAdapter) fetchPage(ctx context.Context, page int) (*eleduckResponse, error) {
	url := fmt.Sprintf("%s?category=%d&page=%d", a.apiURL, eleduckCategoryID, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("eleduck page %d", page),
		}
	}

	var edResp eleduckResponse
	if err := json.NewDecoder(resp.Body).Decode(&edResp); err != nil {
		return nil, fmt.Errorf("decode eleduck page %d: %w", page, err)
	}
	return &edResp, nil
}

func (a *EleduckAdapter) toRawPosting(post eleduckPost) (model.RawPosting, bool) {
	title := post.Title
	if title == "" {
		title = post.FullTitle
	}
	if title == "" {
		return model.RawPosting{}, false
	}

	fullText := title + " " + post.Summary
	switch {
	case containsAnyFold(title, internshipKeywords...),
		containsAnyFold(title, jobSeekerKeywords...),
		!isDevPosting(fullText):
		return model.RawPosting{}, false
	}

	tags := make([]string, 0, len(post.Tags))
	var workTypeHint string
	for _, t := range post.Tags {
		if t.Name == "" {
			continue
		}
		tags = append(tags, t.Name)
		switch t.Name {
		case "线上兼职", "线下兼职", "全职远程", "全职坐班":
			workTypeHint = t.Name
		}
	}

	return model.RawPosting{
		SourceID:     "eleduck-" + post.ID,
		Title:        title,
		Company:      extractCompanyCJK(title, post.Summary),
		Description:  post.Summary,
		Location:     "CN",
		URL:          fmt.Sprintf("%s/posts/%s", eleduckSiteURL, post.ID),
		PostedRaw:    post.PublishedAt,
		Tags:         tags,
		WorkTypeHint: workTypeHint,
	}, true
}

// parseISOTime parses the API's ISO 8601 timestamps (with sub-second and
// offset parts, e.g. "2026-02-10T20:08:07.144+08:00"). Nil when absent or
// malformed.
func parseISOTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

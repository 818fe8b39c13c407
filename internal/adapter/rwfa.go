package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yulin-dev/jobsift/internal/model"
)

const (
	rwfaBaseURL  = "https://www.realworkfromanywhere.com"
	rwfaJobsPath = "/remote-engineer-jobs"
	rwfaMaxPages = 15
)

// RWFAAdapter scrapes realworkfromanywhere.com engineer listings. The site
// has no API, so this is the one DOM-based adapter; every listing there is
// remote worldwide by definition.
type RWFAAdapter struct {
	baseURL  string
	client   *http.Client
	minDelay time.Duration
}

// NewRWFAAdapter creates the adapter.
func NewRWFAAdapter(client *http.Client, minDelay time.Duration) *RWFAAdapter {
	return &RWFAAdapter{
		baseURL:  rwfaBaseURL,
		client:   client,
		minDelay: minDelay,
	}
}

func (a *RWFAAdapter) Name() string            { return "rwfa" }
func (a *RWFAAdapter) MinDelay() time.Duration { return a.minDelay }

// SetBaseURL overrides the site root, for mirrors and tests.
func (a *RWFAAdapter) SetBaseURL(u string) { a.baseURL = u }

// Fetch walks the paginated listing until a page yields no job cards. A
// failure mid-pagination with cards already collected is a partial success.
func (a *RWFAAdapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	var postings []model.RawPosting
	seenURLs := make(map[string]struct{})

	for page := 1; page <= rwfaMaxPages; page++ {
		url := a.baseURL + rwfaJobsPath
		if page > 1 {
			url = fmt.Sprintf("%s%s/page/%d", a.baseURL, rwfaJobsPath, page)
		}

		pagePostings, err := a.fetchPage(ctx, url, seenURLs)
		if err != nil {
			if len(postings) > 0 {
				return postings, &model.FetchError{Source: a.Name(), Err: err}
			}
			return nil, &model.FetchError{Source: a.Name(), Err: err}
		}
		if len(pagePostings) == 0 {
			break
		}
		postings = append(postings, pagePostings...)
	}

	return postings, nil
}

func (a *RWFAAdapter) fetchPage(ctx context.Context, url string, seenURLs map[string]struct{}) ([]model.RawPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("rwfa page %s", url),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rwfa page %s: %w", url, err)
	}

	var postings []model.RawPosting
	doc.Find(`a[href*="/jobs/"]`).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok || strings.Contains(href, "/companies/") {
			return
		}
		if _, dup := seenURLs[href]; dup {
			return
		}
		seenURLs[href] = struct{}{}

		fullURL := href
		if strings.HasPrefix(href, "/") {
			fullURL = a.baseURL + href
		}

		if raw, ok := a.parseCard(card, fullURL); ok {
			postings = append(postings, raw)
		}
	})

	return postings, nil
}

// parseCard extracts a raw posting from one job card anchor. Cards without a
// recognizable title or outside software engineering are dropped.
func (a *RWFAAdapter) parseCard(card *goquery.Selection, url string) (model.RawPosting, bool) {
	title := strings.TrimSpace(card.Find("h3, h4, strong").First().Text())
	if title == "" {
		// Fallback: lead words of the card text.
		words := strings.Fields(card.Text())
		if len(words) > 10 {
			words = words[:10]
		}
		title = strings.Join(words, " ")
	}
	if len(title) < 5 {
		return model.RawPosting{}, false
	}
	if containsAnyFold(title, internshipKeywords...) || !isDevPosting(card.Text()) {
		return model.RawPosting{}, false
	}

	company := strings.TrimSpace(card.Find(".company, [class*=company]").First().Text())

	return model.RawPosting{
		SourceID:    url,
		Title:       title,
		Company:     company,
		Description: strings.Join(strings.Fields(card.Text()), " "),
		Location:    "worldwide",
		URL:         url,
	}, true
}

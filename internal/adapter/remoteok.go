package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

const remoteOKBaseURL = "https://remoteok.com"

// flexID decodes an identifier the API serves sometimes as a string and
// sometimes as a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// remoteOKItem represents one element of the RemoteOK API array. The first
// element of the array is legal metadata, not a job; it decodes into the same
// shape with an empty position and is skipped.
type remoteOKItem struct {
	ID          flexID   `json:"id"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`
	ApplyURL    string   `json:"apply_url"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

// RemoteOKAdapter fetches postings from the RemoteOK public API.
type RemoteOKAdapter struct {
	baseURL  string
	client   *http.Client
	minDelay time.Duration
}

// NewRemoteOKAdapter creates the adapter. minDelay is the politeness gap the
// orchestrator's rate limiter enforces between requests to remoteok.com.
func NewRemoteOKAdapter(client *http.Client, minDelay time.Duration) *RemoteOKAdapter {
	return &RemoteOKAdapter{
		baseURL:  remoteOKBaseURL,
		client:   client,
		minDelay: minDelay,
	}
}

func (a *RemoteOKAdapter) Name() string            { return "remoteok" }
func (a *RemoteOKAdapter) MinDelay() time.Duration { return a.minDelay }

// SetBaseURL overrides the API endpoint, for mirrors and tests.
func (a *RemoteOKAdapter) SetBaseURL(u string) { a.baseURL = u }

// Fetch retrieves the full RemoteOK listing in one request.
func (a *RemoteOKAdapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api", nil)
	if err != nil {
		return nil, &model.FetchError{Source: a.Name(), Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{Source: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("remoteok fetch: unexpected status %d", resp.StatusCode),
		}
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &model.FetchError{Source: a.Name(), Err: err}
	}

	var postings []model.RawPosting
	for _, rawItem := range items {
		var item remoteOKItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			// The metadata element and occasional malformed entries decode
			// differently; skip them rather than failing the whole fetch.
			continue
		}
		if item.Position == "" {
			continue
		}
		if containsAnyFold(item.Position, internshipKeywords...) {
			continue
		}

		description := extractText(item.Description)
		fullText := item.Position + " " + joinTags(item.Tags) + " " + description
		if !isDevPosting(fullText) {
			continue
		}

		url := item.URL
		if url == "" {
			url = fmt.Sprintf("%s/remote-jobs/%s", a.baseURL, item.ID)
		}

		postings = append(postings, model.RawPosting{
			SourceID:    string(item.ID),
			Title:       item.Position,
			Company:     item.Company,
			Description: description,
			Location:    item.Location,
			URL:         url,
			ApplyURL:    item.ApplyURL,
			PostedRaw:   item.Date,
			Tags:        item.Tags,
		})
	}

	return postings, nil
}

func joinTags(tags []string) string {
	s := ""
	for _, t := range tags {
		s += t + " "
	}
	return s
}

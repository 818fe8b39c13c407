package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

const (
	v2exBaseURL  = "https://www.v2ex.com/api/v2"
	v2exMaxPages = 10
)

// v2exNodes are the boards scraped: "remote" is the dedicated remote-work
// section; "jobs" is general hiring and gets the remote-keyword filter.
var v2exNodes = []string{"remote", "jobs"}

// remoteKeywords gate postings from the general jobs node: only listings
// that mention remote work belong in the store.
var remoteKeywords = []string{
	"远程", "remote", "在家", "wfh", "work from home", "居家",
}

// nonTechKeywords exclude operations, marketing, design and similar roles
// that share the jobs node with engineering.
var nonTechKeywords = []string{
	"运营", "市场", "marketing", "销售", "sales", "hrbp", "人事", "客服",
	"designer", "设计师", "视觉设计", "交互设计", "figma", "sketch", "seo",
}

type v2exTopic struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Created int64  `json:"created"`
}

type v2exResponse struct {
	Success bool        `json:"success"`
	Result  []v2exTopic `json:"result"`
}

// V2EXAdapter fetches remote job topics from the V2EX API v2. The API
// requires a personal access token; without one the source is skipped at
// startup with a ConfigurationError.
type V2EXAdapter struct {
	baseURL  string
	token    string
	client   *http.Client
	minDelay time.Duration
}

// NewV2EXAdapter creates the adapter. An empty token is a configuration
// error surfaced immediately so the orchestrator never schedules the source.
func NewV2EXAdapter(token string, client *http.Client, minDelay time.Duration) (*V2EXAdapter, error) {
	if token == "" {
		return nil, &model.ConfigurationError{Source: "v2ex", Reason: "missing API token"}
	}
	return &V2EXAdapter{
		baseURL:  v2exBaseURL,
		token:    token,
		client:   client,
		minDelay: minDelay,
	}, nil
}

func (a *V2EXAdapter) Name() string            { return "v2ex" }
func (a *V2EXAdapter) MinDelay() time.Duration { return a.minDelay }

// SetBaseURL overrides the API endpoint, for mirrors and tests.
func (a *V2EXAdapter) SetBaseURL(u string) { a.baseURL = u }

// Fetch walks both nodes page by page. A node failing after some topics were
// collected is a partial success: the postings gathered so far are returned
// alongside the error.
func (a *V2EXAdapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	var postings []model.RawPosting
	seenIDs := make(map[int64]struct{})

	for _, node := range v2exNodes {
		for page := 1; page <= v2exMaxPages; page++ {
			topics, err := a.fetchPage(ctx, node, page)
			if err != nil {
				if len(postings) > 0 {
					return postings, &model.FetchError{Source: a.Name(), Err: err}
				}
				return nil, &model.FetchError{Source: a.Name(), Err: err}
			}
			if len(topics) == 0 {
				break
			}

			for _, topic := range topics {
				if _, dup := seenIDs[topic.ID]; dup {
					continue
				}
				seenIDs[topic.ID] = struct{}{}

				if raw, ok := a.toRawPosting(topic, node); ok {
					postings = append(postings, raw)
				}
			}
		}
	}

	return postings, nil
}

func (a *V2EXAdapter) fetchPage(ctx context.Context, node string, page int) ([]v2exTopic, error) {
	url := fmt.Sprintf("%s/nodes/%s/topics?p=%d", a.baseURL, node, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("v2ex node %s page %d", node, page),
		}
	}

	var v2Resp v2exResponse
	if err := json.NewDecoder(resp.Body).Decode(&v2Resp); err != nil {
		return nil, fmt.Errorf("decode v2ex node %s page %d: %w", node, page, err)
	}
	if !v2Resp.Success {
		// Page number past the node's limit; treated as end of pagination.
		return nil, nil
	}
	return v2Resp.Result, nil
}

// toRawPosting applies the community-board filters and shapes a topic into a
// raw posting. Topics that are resumes, non-tech roles, or not remote are
// dropped here, before they cost a classification call.
func (a *V2EXAdapter) toRawPosting(topic v2exTopic, node string) (model.RawPosting, bool) {
	fullText := topic.Title + " " + topic.Content

	switch {
	case containsAnyFold(topic.Title, internshipKeywords...),
		containsAnyFold(topic.Title, jobSeekerKeywords...),
		containsAnyFold(topic.Title, nonTechKeywords...),
		!isDevPosting(fullText),
		!containsAnyFold(fullText, remoteKeywords...):
		return model.RawPosting{}, false
	}

	url := topic.URL
	if url == "" {
		url = fmt.Sprintf("https://www.v2ex.com/t/%d", topic.ID)
	}

	return model.RawPosting{
		SourceID:    strconv.FormatInt(topic.ID, 10),
		Title:       topic.Title,
		Company:     extractCompanyCJK(topic.Title, topic.Content),
		Description: topic.Content,
		Location:    "CN",
		URL:         url,
		PostedRaw:   strconv.FormatInt(topic.Created, 10),
		Tags:        []string{node},
	}, true
}

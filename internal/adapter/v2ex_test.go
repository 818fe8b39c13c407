package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

func v2exTestServer(t *testing.T, pages map[string]string, fail map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		key := r.URL.Path + "?p=" + r.URL.Query().Get("p")
		if code, ok := fail[key]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := pages[key]
		if !ok {
			// Past the last page for this node.
			body = `{"success": false}`
		}
		fmt.Fprint(w, body)
	}))
}

func TestV2EXFetchFiltersAndDedupes(t *testing.T) {
	pages := map[string]string{
		"/nodes/remote/topics?p=1": `{"success": true, "result": [
			{"id": 1, "title": "【Acme】远程后端工程师", "content": "Go 后端开发, 远程办公", "url": "https://www.v2ex.com/t/1", "created": 1769941800},
			{"id": 2, "title": "求职：前端工程师找远程", "content": "三年经验", "created": 1769941800},
			{"id": 3, "title": "远程运营专员", "content": "社区运营", "created": 1769941800}
		]}`,
		"/nodes/jobs/topics?p=1": `{"success": true, "result": [
			{"id": 1, "title": "【Acme】远程后端工程师", "content": "Go 后端开发, 远程办公", "created": 1769941800},
			{"id": 4, "title": "招聘后端工程师（坐班）", "content": "五险一金", "created": 1769941800},
			{"id": 5, "title": "Remote Golang Developer", "content": "work from home, build APIs", "created": 1769941801}
		]}`,
	}
	srv := v2exTestServer(t, pages, nil)
	defer srv.Close()

	a, err := NewV2EXAdapter("test-token", srv.Client(), time.Second)
	if err != nil {
		t.Fatalf("NewV2EXAdapter: %v", err)
	}
	a.SetBaseURL(srv.URL)

	postings, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	// Topic 2 is a job seeker, 3 is non-tech, 4 is on-site, and the duplicate
	// of topic 1 on the jobs node is dropped.
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}

	first := postings[0]
	if first.SourceID != "1" || first.Company != "Acme" {
		t.Errorf("unexpected first posting: %+v", first)
	}
	if first.Location != "CN" || first.PostedRaw != "1769941800" {
		t.Errorf("unexpected location/date: %+v", first)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "remote" {
		t.Errorf("Tags = %v, want node name", first.Tags)
	}

	second := postings[1]
	if second.SourceID != "5" {
		t.Errorf("SourceID = %q", second.SourceID)
	}
	if second.URL != "https://www.v2ex.com/t/5" {
		t.Errorf("URL = %q, want topic fallback", second.URL)
	}
}

func TestV2EXFetchPartialSuccess(t *testing.T) {
	pages := map[string]string{
		"/nodes/remote/topics?p=1": `{"success": true, "result": [
			{"id": 10, "title": "Remote Backend Engineer", "content": "remote Go role", "created": 1769941800}
		]}`,
	}
	fail := map[string]int{
		"/nodes/jobs/topics?p=1": http.StatusInternalServerError,
	}
	srv := v2exTestServer(t, pages, fail)
	defer srv.Close()

	a, err := NewV2EXAdapter("test-token", srv.Client(), time.Second)
	if err != nil {
		t.Fatalf("NewV2EXAdapter: %v", err)
	}
	a.SetBaseURL(srv.URL)

	postings, err := a.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error from failed jobs node")
	}
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !strings.Contains(err.Error(), "v2ex") {
		t.Errorf("error should name the source: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected the remote-node posting to survive, got %d", len(postings))
	}
}

func TestV2EXRequiresToken(t *testing.T) {
	_, err := NewV2EXAdapter("", http.DefaultClient, time.Second)
	var cfgErr *model.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Source != "v2ex" {
		t.Errorf("Source = %q", cfgErr.Source)
	}
}

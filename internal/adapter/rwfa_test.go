package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rwfaPageOne = `<html><body>
<a href="/jobs/senior-go-engineer"><h3>Senior Go Engineer</h3>
  <span class="company-name">Acme Corp</span>
  <p>Build distributed systems in Go.</p></a>
<a href="/jobs/senior-go-engineer"><h3>Senior Go Engineer</h3>
  <p>Duplicate card for the same listing.</p></a>
<a href="/companies/acme/jobs/123">Acme company page</a>
<a href="https://www.realworkfromanywhere.com/jobs/react-dev">
  <h4>React Developer</h4><p>Frontend role, React and TypeScript.</p></a>
<a href="/jobs/ops-writer"><h3>Technical Recruiter</h3>
  <p>Source candidates for our clients.</p></a>
<a href="/jobs/x"><h3>QA</h3><p>software testing role</p></a>
</body></html>`

func TestRWFAFetchParsesCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/remote-engineer-jobs":
			fmt.Fprint(w, rwfaPageOne)
		case "/remote-engineer-jobs/page/2":
			fmt.Fprint(w, `<html><body><p>No more jobs.</p></body></html>`)
		default:
			t.Errorf("unexpected path %q fetched", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewRWFAAdapter(srv.Client(), time.Second)
	a.SetBaseURL(srv.URL)

	postings, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	// The duplicate href, the /companies/ link, the recruiter card and the
	// too-short "QA" title are all dropped.
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}

	first := postings[0]
	if first.Title != "Senior Go Engineer" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != srv.URL+"/jobs/senior-go-engineer" {
		t.Errorf("URL = %q, want relative href resolved", first.URL)
	}
	if first.Company != "Acme Corp" {
		t.Errorf("Company = %q", first.Company)
	}
	if first.Location != "worldwide" {
		t.Errorf("Location = %q", first.Location)
	}

	second := postings[1]
	if second.Title != "React Developer" {
		t.Errorf("Title = %q", second.Title)
	}
	if second.URL != "https://www.realworkfromanywhere.com/jobs/react-dev" {
		t.Errorf("URL = %q, want absolute href kept", second.URL)
	}
}

func TestRWFAFetchTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote-engineer-jobs" {
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="/jobs/headless">Backend Engineer at a fully remote infrastructure
startup building APIs in Go for global customers today</a>
</body></html>`)
	}))
	defer srv.Close()

	a := NewRWFAAdapter(srv.Client(), time.Second)
	a.SetBaseURL(srv.URL)

	postings, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	want := "Backend Engineer at a fully remote infrastructure startup building APIs"
	if postings[0].Title != want {
		t.Errorf("Title = %q, want first ten words", postings[0].Title)
	}
}

func TestRWFAFetchPartialSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote-engineer-jobs" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="/jobs/one"><h3>Go Developer</h3><p>Write Go services.</p></a>
</body></html>`)
	}))
	defer srv.Close()

	a := NewRWFAAdapter(srv.Client(), time.Second)
	a.SetBaseURL(srv.URL)

	postings, err := a.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error from failed second page")
	}
	if len(postings) != 1 {
		t.Fatalf("expected first-page postings to survive, got %d", len(postings))
	}
}

package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

func TestNormalizeBasicMapping(t *testing.T) {
	raw := model.RawPosting{
		Title:        "  Senior   Go Engineer ",
		Company:      "Acme Corp",
		Description:  "Build\n\nAPIs   in Go.",
		Location:     "USA only",
		URL:          " https://example.com/jobs/42 ",
		ApplyURL:     "https://example.com/jobs/42/apply",
		PostedRaw:    "2026-02-01",
		Tags:         []string{"Go", "go", " backend ", ""},
		WorkTypeHint: "full-time",
	}

	p, err := Normalize(raw, "remoteok")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if p.Title != "Senior Go Engineer" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "Build APIs in Go." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.OriginalURL != "https://example.com/jobs/42" {
		t.Errorf("OriginalURL = %q", p.OriginalURL)
	}
	if p.RegionLimit != "US" {
		t.Errorf("RegionLimit = %q", p.RegionLimit)
	}
	if p.WorkType != model.WorkTypeFulltime {
		t.Errorf("WorkType = %q", p.WorkType)
	}
	if p.SourceSite != "remoteok" {
		t.Errorf("SourceSite = %q", p.SourceSite)
	}
	if p.DatePosted == nil || !p.DatePosted.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DatePosted = %v", p.DatePosted)
	}
	if len(p.ContentHash) != 64 {
		t.Errorf("ContentHash = %q, want 64 hex chars", p.ContentHash)
	}
	if !p.IsActive {
		t.Error("expected new posting active")
	}
	// Tags deduped case-insensitively, first spelling wins.
	if len(p.Tags) != 2 || p.Tags[0] != "Go" || p.Tags[1] != "backend" {
		t.Errorf("Tags = %v", p.Tags)
	}
}

func TestNormalizeRejectsUnusableRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawPosting
	}{
		{"empty title", model.RawPosting{Title: "   ", URL: "https://example.com/1"}},
		{"empty url", model.RawPosting{Title: "Engineer", URL: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, "v2ex")
			var normErr *model.NormalizationError
			if !errors.As(err, &normErr) {
				t.Fatalf("expected NormalizationError, got %v", err)
			}
			if normErr.Source != "v2ex" {
				t.Errorf("Source = %q", normErr.Source)
			}
		})
	}
}

func TestFingerprintStability(t *testing.T) {
	base := Fingerprint("Go Engineer", "Acme", "Write Go services.")

	// Case and whitespace differences do not change the identity.
	same := Fingerprint("  go   ENGINEER ", "acme", "write go SERVICES.")
	if base != same {
		t.Error("fingerprint changed on case/whitespace variation")
	}

	if Fingerprint("Go Engineer", "Acme", "Write Rust services.") == base {
		t.Error("fingerprint did not change with the description")
	}
	if Fingerprint("Go Engineer", "Globex", "Write Go services.") == base {
		t.Error("fingerprint did not change with the company")
	}
	if Fingerprint("Staff Go Engineer", "Acme", "Write Go services.") == base {
		t.Error("fingerprint did not change with the title")
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"", "worldwide"},
		{"Worldwide", "worldwide"},
		{"Anywhere in the world", "worldwide"},
		{"Remote", "worldwide"},
		{"Probably remote", "worldwide"}, // unrecognized defaults open
		{"USA Only", "US"},
		{"United States", "US"},
		{"U.S. citizens", "US"},
		{"Europe", "EU"},
		{"EMEA", "EU"},
		{"UK preferred", "EU"},
		{"Asia-Pacific", "APAC"},
		{"APAC", "APAC"},
		{"Australia", "APAC"},
		{"LATAM", "APAC"},
		{"China", "CN"},
		{"CN", "CN"},
		{"中国", "CN"},
		{"国内远程", "CN"},
		{"UTC+8 working hours", "tz:UTC+8"},
		{"GMT -3", "tz:UTC-3"},
		{"PST hours", "tz:UTC-8"},
		{"Eastern time", "tz:UTC-5"},
		{"CET overlap", "tz:UTC+1"},
	}
	for _, tt := range tests {
		if got := ParseRegion(tt.location); got != tt.want {
			t.Errorf("ParseRegion(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func TestParseWorkType(t *testing.T) {
	tests := []struct {
		hint, title, desc string
		want              model.WorkType
	}{
		{"fulltime", "", "", model.WorkTypeFulltime},
		{"全职远程", "", "", model.WorkTypeFulltime},
		{"线上兼职", "", "", model.WorkTypeParttime},
		{"freelance", "", "", model.WorkTypeContract},
		{"", "Part-time Designer", "", model.WorkTypeParttime},
		{"", "Engineer", "6-month contract role", model.WorkTypeContract},
		{"", "外包开发", "", model.WorkTypeContract},
		{"", "Backend Engineer", "Full benefits.", model.WorkTypeFulltime},
		{"unknown-hint", "Engineer", "", model.WorkTypeFulltime},
	}
	for _, tt := range tests {
		if got := ParseWorkType(tt.hint, tt.title, tt.desc); got != tt.want {
			t.Errorf("ParseWorkType(%q, %q, %q) = %q, want %q", tt.hint, tt.title, tt.desc, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{"2026-02-01T10:30:00Z", &want},
		{"2026-02-01 10:30:00", &want},
		{"1769941800", &want},    // unix seconds
		{"1769941800000", &want}, // unix milliseconds
		{"", nil},
		{"yesterday", nil},
		{"-5", nil},
	}
	for _, tt := range tests {
		got := ParseDate(tt.raw)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseDate(%q) = %v, want nil", tt.raw, got)
		case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
			t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

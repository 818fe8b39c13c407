// Package normalize maps raw scraped postings into canonical postings.
// Everything here is pure: no I/O, no clocks beyond the caller-supplied
// parse results, deterministic for a given input.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Normalize converts a raw posting from sourceSite into a canonical posting,
// computing its content fingerprint. It returns a NormalizationError when the
// record is unusable (empty title or URL after trimming).
func Normalize(raw model.RawPosting, sourceSite string) (model.Posting, error) {
	title := Collapse(raw.Title)
	if title == "" {
		return model.Posting{}, &model.NormalizationError{Source: sourceSite, Reason: "empty title"}
	}
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return model.Posting{}, &model.NormalizationError{Source: sourceSite, Reason: "empty url"}
	}

	company := Collapse(raw.Company)
	description := Collapse(raw.Description)

	p := model.Posting{
		Title:       title,
		Company:     company,
		Tags:        cleanTags(raw.Tags),
		RegionLimit: ParseRegion(raw.Location),
		WorkType:    ParseWorkType(raw.WorkTypeHint, title, description),
		SourceSite:  sourceSite,
		OriginalURL: url,
		ApplyURL:    strings.TrimSpace(raw.ApplyURL),
		Description: description,
		DatePosted:  ParseDate(raw.PostedRaw),
		ContentHash: Fingerprint(title, company, description),
		IsActive:    true,
	}
	return p, nil
}

// Fingerprint computes the dedup identity: SHA-256 over a stable
// concatenation of the case- and whitespace-folded title, company, and
// description. Incidental formatting differences across scrapes therefore
// do not change the hash.
func Fingerprint(title, company, description string) string {
	content := fold(title) + "|" + fold(company) + "|" + fold(description)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Collapse trims and collapses runs of whitespace to single spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fold lower-cases and collapses whitespace for hash stability.
func fold(s string) string {
	return strings.ToLower(Collapse(s))
}

func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = Collapse(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// workTypeVocab maps source employment-type vocabulary onto the canonical
// enum. Unmapped hints fall through to text analysis.
var workTypeVocab = map[string]model.WorkType{
	"fulltime":  model.WorkTypeFulltime,
	"full-time": model.WorkTypeFulltime,
	"full_time": model.WorkTypeFulltime,
	"全职远程":      model.WorkTypeFulltime,
	"全职坐班":      model.WorkTypeFulltime,
	"parttime":  model.WorkTypeParttime,
	"part-time": model.WorkTypeParttime,
	"part_time": model.WorkTypeParttime,
	"线上兼职":      model.WorkTypeParttime,
	"线下兼职":      model.WorkTypeParttime,
	"contract":  model.WorkTypeContract,
	"contractor": model.WorkTypeContract,
	"freelance": model.WorkTypeContract,
}

// ParseWorkType resolves the employment arrangement from the source hint
// first, falling back to keyword analysis of the posting text. The default
// is fulltime, matching how the sources list jobs.
func ParseWorkType(hint, title, description string) model.WorkType {
	if wt, ok := workTypeVocab[strings.ToLower(strings.TrimSpace(hint))]; ok {
		return wt
	}
	text := strings.ToLower(title + " " + description)
	switch {
	case containsAny(text, "合约", "contract", "外包"):
		return model.WorkTypeContract
	case containsAny(text, "兼职", "part-time", "parttime"):
		return model.WorkTypeParttime
	}
	return model.WorkTypeFulltime
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// dateLayouts are tried in order against the raw date string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a source date string into a timestamp. It accepts the
// common ISO layouts plus bare unix seconds or milliseconds. Returns nil
// when the string is empty or unrecognized; the posting then relies on
// CreatedAt for staleness.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		var t time.Time
		if n > 1e12 { // milliseconds
			t = time.UnixMilli(n).UTC()
		} else {
			t = time.Unix(n, 0).UTC()
		}
		return &t
	}
	return nil
}

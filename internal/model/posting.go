package model

import (
	"time"
)

// Category is one of the 14 closed-set labels assigned to a posting.
type Category string

const (
	CategoryFrontend   Category = "frontend"
	CategoryBackend    Category = "backend"
	CategoryFullstack  Category = "fullstack"
	CategoryMobile     Category = "mobile"
	CategoryGame       Category = "game"
	CategoryDevops     Category = "devops"
	CategoryAI         Category = "ai"
	CategoryBlockchain Category = "blockchain"
	CategoryQuant      Category = "quant"
	CategorySecurity   Category = "security"
	CategoryTesting    Category = "testing"
	CategoryData       Category = "data"
	CategoryEmbedded   Category = "embedded"
	CategoryOther      Category = "other"
)

// AllCategories lists every valid category in a stable order.
var AllCategories = []Category{
	CategoryFrontend, CategoryBackend, CategoryFullstack, CategoryMobile,
	CategoryGame, CategoryDevops, CategoryAI, CategoryBlockchain,
	CategoryQuant, CategorySecurity, CategoryTesting, CategoryData,
	CategoryEmbedded, CategoryOther,
}

var categorySet = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(AllCategories))
	for _, c := range AllCategories {
		m[c] = struct{}{}
	}
	return m
}()

// ParseCategory returns the category for a label emitted by a classification
// backend. Labels outside the closed set are invalid and ok is false.
func ParseCategory(label string) (Category, bool) {
	c := Category(label)
	_, ok := categorySet[c]
	return c, ok
}

// MaxCategories is the cap on categories per posting.
const MaxCategories = 3

// WorkType describes the employment arrangement of a posting.
type WorkType string

const (
	WorkTypeFulltime WorkType = "fulltime"
	WorkTypeParttime WorkType = "parttime"
	WorkTypeContract WorkType = "contract"
)

// Region limit values. A posting is either open worldwide, restricted to a
// region code (US, EU, APAC, CN, ...), or restricted to a timezone band.
// Timezone restrictions carry the TimezonePrefix marker, e.g. "tz:UTC+8".
const (
	RegionWorldwide = "worldwide"
	TimezonePrefix  = "tz:"
)

// RawPosting is a source-specific record as scraped, before normalization.
// Fields are loosely typed; everything here is discarded once the posting
// has been normalized.
type RawPosting struct {
	SourceID     string   // source-local identifier, used only for in-fetch dedup
	Title        string
	Company      string
	Description  string
	Location     string   // free-text region/timezone hint
	URL          string   // canonical external link
	ApplyURL     string
	PostedRaw    string   // raw date string in whatever format the source uses
	Tags         []string // source-derived keywords, order preserved
	WorkTypeHint string   // source vocabulary for employment type, if any
}

// Posting is the canonical, durable representation of a job listing.
type Posting struct {
	ID          int64
	Title       string
	Company     string
	Categories  []Category // 1..3 members, never empty once stored
	Tags        []string
	RegionLimit string
	WorkType    WorkType
	SourceSite  string
	OriginalURL string // globally unique
	ApplyURL    string
	Description string
	DatePosted  *time.Time
	ContentHash string // 64-char hex SHA-256, globally unique
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveDate is the timestamp used for staleness decisions: DatePosted when
// the source provided one, otherwise CreatedAt.
func (p Posting) EffectiveDate() time.Time {
	if p.DatePosted != nil {
		return *p.DatePosted
	}
	return p.CreatedAt
}

// RunStatus is the per-source outcome of a pipeline run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunReport summarizes one source's outcome in one pipeline invocation.
// Reports are persisted for observability only; the pipeline never reads
// them back to make decisions.
type RunReport struct {
	ID           string // uuid, unique per source per run
	SourceSite   string
	Status       RunStatus
	Scraped      int // raw postings returned by the adapter
	New          int
	Updated      int
	Skipped      int // duplicates and unchanged postings
	Errors       int // per-posting errors (normalize, classify, persist)
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  time.Time
}

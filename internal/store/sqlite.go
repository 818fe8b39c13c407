// Package store provides the JobStore implementations: SQLite for local and
// single-node deployments, Postgres for the hosted one, and an in-memory
// store for tests and dry runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yulin-dev/jobsift/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL DEFAULT '',
	categories    TEXT NOT NULL,
	tags          TEXT NOT NULL DEFAULT '[]',
	region_limit  TEXT NOT NULL,
	work_type     TEXT NOT NULL,
	source_site   TEXT NOT NULL,
	original_url  TEXT NOT NULL UNIQUE,
	apply_url     TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	date_posted   TIMESTAMP,
	content_hash  TEXT NOT NULL UNIQUE,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_active_date ON jobs (is_active, date_posted);

CREATE TABLE IF NOT EXISTS run_reports (
	id            TEXT PRIMARY KEY,
	source_site   TEXT NOT NULL,
	status        TEXT NOT NULL,
	scraped       INTEGER NOT NULL DEFAULT 0,
	new_count     INTEGER NOT NULL DEFAULT 0,
	updated_count INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	errors        INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMP NOT NULL,
	completed_at  TIMESTAMP NOT NULL
);`

// SQLiteStore persists postings and run reports in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

var _ model.JobStore = (*SQLiteStore)(nil)

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteColumns = `id, title, company, categories, tags, region_limit, work_type,
	source_site, original_url, apply_url, description, date_posted,
	content_hash, is_active, created_at, updated_at`

// UpsertByIdentity applies the identity rules: URL match first (an edited
// job keeps its row and moves to the new content hash), then hash match
// (refresh mutable fields), otherwise insert. When an edit makes a posting
// duplicate another row's content, the hash-keyed row wins: moving the hash
// onto the URL row would break hash uniqueness.
func (s *SQLiteStore) UpsertByIdentity(ctx context.Context, p model.Posting) (bool, error) {
	existing, found, err := s.FindByURL(ctx, p.OriginalURL)
	if err != nil {
		return false, err
	}
	moveHash := found
	if found && existing.ContentHash != p.ContentHash {
		collided, collidedFound, err := s.FindByContentHash(ctx, p.ContentHash)
		if err != nil {
			return false, err
		}
		if collidedFound && collided.ID != existing.ID {
			existing = collided
			moveHash = false
		}
	}
	if !found {
		existing, found, err = s.FindByContentHash(ctx, p.ContentHash)
		if err != nil {
			return false, err
		}
	}

	now := time.Now().UTC()
	categories, tags, err := encodeLists(p)
	if err != nil {
		return false, err
	}

	if found {
		hash := existing.ContentHash
		if moveHash {
			hash = p.ContentHash
		}
		_, err := s.db.ExecContext(ctx, `UPDATE jobs SET
			title = ?, company = ?, categories = ?, tags = ?, region_limit = ?,
			work_type = ?, apply_url = ?, description = ?,
			date_posted = COALESCE(?, date_posted), content_hash = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.Company, categories, tags, p.RegionLimit,
			string(p.WorkType), p.ApplyURL, p.Description,
			nullTime(p.DatePosted), hash, now, existing.ID,
		)
		if err != nil {
			return false, fmt.Errorf("updating job %d: %w", existing.ID, err)
		}
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs
		(title, company, categories, tags, region_limit, work_type, source_site,
		 original_url, apply_url, description, date_posted, content_hash,
		 is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.Title, p.Company, categories, tags, p.RegionLimit, string(p.WorkType),
		p.SourceSite, p.OriginalURL, p.ApplyURL, p.Description,
		nullTime(p.DatePosted), p.ContentHash, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", p.OriginalURL, err)
	}
	return true, nil
}

func (s *SQLiteStore) FindByContentHash(ctx context.Context, hash string) (model.Posting, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM jobs WHERE content_hash = ?`, hash)
	return scanPosting(row)
}

func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (model.Posting, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM jobs WHERE original_url = ?`, url)
	return scanPosting(row)
}

// DeactivateOlderThan flips is_active on postings whose effective date
// (date_posted, else created_at) is before cutoff.
func (s *SQLiteStore) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET is_active = 0, updated_at = ?
		 WHERE is_active = 1 AND COALESCE(date_posted, created_at) < ?`,
		time.Now().UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivating stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deactivated jobs: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) ListPostings(ctx context.Context, category model.Category) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		p, ok, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if category != "" && !hasCategory(p, category) {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateCategories(ctx context.Context, id int64, categories []model.Category) error {
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET categories = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating categories for job %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r model.RunReport) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO run_reports
		(id, source_site, status, scraped, new_count, updated_count, skipped,
		 errors, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceSite, string(r.Status), r.Scraped, r.New, r.Updated,
		r.Skipped, r.Errors, r.ErrorMessage, r.StartedAt.UTC(), r.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving run report %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RecentReports(ctx context.Context, limit int) ([]model.RunReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_site, status, scraped, new_count, updated_count,
		        skipped, errors, error_message, started_at, completed_at
		 FROM run_reports ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run reports: %w", err)
	}
	defer rows.Close()

	var out []model.RunReport
	for rows.Next() {
		var r model.RunReport
		var status string
		if err := rows.Scan(&r.ID, &r.SourceSite, &status, &r.Scraped, &r.New,
			&r.Updated, &r.Skipped, &r.Errors, &r.ErrorMessage,
			&r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning run report: %w", err)
		}
		r.Status = model.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (model.Posting, bool, error) {
	var p model.Posting
	var categories, tags, workType string
	var datePosted sql.NullTime
	var isActive int

	err := row.Scan(&p.ID, &p.Title, &p.Company, &categories, &tags,
		&p.RegionLimit, &workType, &p.SourceSite, &p.OriginalURL, &p.ApplyURL,
		&p.Description, &datePosted, &p.ContentHash, &isActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Posting{}, false, nil
	}
	if err != nil {
		return model.Posting{}, false, fmt.Errorf("scanning job: %w", err)
	}

	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return model.Posting{}, false, fmt.Errorf("decoding categories: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return model.Posting{}, false, fmt.Errorf("decoding tags: %w", err)
	}
	p.WorkType = model.WorkType(workType)
	if datePosted.Valid {
		t := datePosted.Time
		p.DatePosted = &t
	}
	p.IsActive = isActive != 0
	return p, true, nil
}

func encodeLists(p model.Posting) (categories, tags string, err error) {
	catBytes, err := json.Marshal(p.Categories)
	if err != nil {
		return "", "", fmt.Errorf("encoding categories: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagBytes, err := json.Marshal(p.Tags)
	if err != nil {
		return "", "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(catBytes), string(tagBytes), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

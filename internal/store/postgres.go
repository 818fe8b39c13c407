package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yulin-dev/jobsift/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            BIGSERIAL PRIMARY KEY,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL DEFAULT '',
	categories    JSONB NOT NULL,
	tags          JSONB NOT NULL DEFAULT '[]',
	region_limit  TEXT NOT NULL,
	work_type     TEXT NOT NULL,
	source_site   TEXT NOT NULL,
	original_url  TEXT NOT NULL UNIQUE,
	apply_url     TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	date_posted   TIMESTAMPTZ,
	content_hash  TEXT NOT NULL UNIQUE,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
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
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL
);`

// PostgresStore persists postings and run reports in Postgres via a pgx
// connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

var _ model.JobStore = (*PostgresStore)(nil)

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const postgresColumns = `id, title, company, categories, tags, region_limit, work_type,
	source_site, original_url, apply_url, description, date_posted,
	content_hash, is_active, created_at, updated_at`

func (s *PostgresStore) UpsertByIdentity(ctx context.Context, p model.Posting) (bool, error) {
	existing, found, err := s.FindByURL(ctx, p.OriginalURL)
	if err != nil {
		return false, err
	}
	moveHash := found
	if found && existing.ContentHash != p.ContentHash {
		// An edit can make a posting duplicate another row's content; the
		// hash-keyed row wins then, moving the hash would break uniqueness.
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
		_, err := s.pool.Exec(ctx, `UPDATE jobs SET
			title = $1, company = $2, categories = $3, tags = $4,
			region_limit = $5, work_type = $6, apply_url = $7, description = $8,
			date_posted = COALESCE($9, date_posted), content_hash = $10,
			updated_at = $11
			WHERE id = $12`,
			p.Title, p.Company, categories, tags,
			p.RegionLimit, string(p.WorkType), p.ApplyURL, p.Description,
			nullTime(p.DatePosted), hash, now, existing.ID,
		)
		if err != nil {
			return false, fmt.Errorf("updating job %d: %w", existing.ID, err)
		}
		return false, nil
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO jobs
		(title, company, categories, tags, region_limit, work_type, source_site,
		 original_url, apply_url, description, date_posted, content_hash,
		 is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13, $14)`,
		p.Title, p.Company, categories, tags, p.RegionLimit, string(p.WorkType),
		p.SourceSite, p.OriginalURL, p.ApplyURL, p.Description,
		nullTime(p.DatePosted), p.ContentHash, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", p.OriginalURL, err)
	}
	return true, nil
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (model.Posting, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM jobs WHERE content_hash = $1`, hash)
	return scanPostingPG(row)
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (model.Posting, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM jobs WHERE original_url = $1`, url)
	return scanPostingPG(row)
}

func (s *PostgresStore) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET is_active = FALSE, updated_at = $1
		 WHERE is_active AND COALESCE(date_posted, created_at) < $2`,
		time.Now().UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivating stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListPostings(ctx context.Context, category model.Category) ([]model.Posting, error) {
	query := `SELECT ` + postgresColumns + ` FROM jobs`
	args := []any{}
	if category != "" {
		query += ` WHERE categories @> $1`
		encoded, err := json.Marshal([]model.Category{category})
		if err != nil {
			return nil, fmt.Errorf("encoding category filter: %w", err)
		}
		args = append(args, string(encoded))
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		p, ok, err := scanPostingPG(rows)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateCategories(ctx context.Context, id int64, categories []model.Category) error {
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE jobs SET categories = $1, updated_at = $2 WHERE id = $3`,
		string(encoded), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating categories for job %d: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, r model.RunReport) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO run_reports
		(id, source_site, status, scraped, new_count, updated_count, skipped,
		 errors, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.SourceSite, string(r.Status), r.Scraped, r.New, r.Updated,
		r.Skipped, r.Errors, r.ErrorMessage, r.StartedAt.UTC(), r.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving run report %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecentReports(ctx context.Context, limit int) ([]model.RunReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_site, status, scraped, new_count, updated_count,
		        skipped, errors, error_message, started_at, completed_at
		 FROM run_reports ORDER BY started_at DESC LIMIT $1`, limit)
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

func scanPostingPG(row pgx.Row) (model.Posting, bool, error) {
	var p model.Posting
	var categories, tags []byte
	var workType string
	var datePosted *time.Time

	err := row.Scan(&p.ID, &p.Title, &p.Company, &categories, &tags,
		&p.RegionLimit, &workType, &p.SourceSite, &p.OriginalURL, &p.ApplyURL,
		&p.Description, &datePosted, &p.ContentHash, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Posting{}, false, nil
	}
	if err != nil {
		return model.Posting{}, false, fmt.Errorf("scanning job: %w", err)
	}

	if err := json.Unmarshal(categories, &p.Categories); err != nil {
		return model.Posting{}, false, fmt.Errorf("decoding categories: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return model.Posting{}, false, fmt.Errorf("decoding tags: %w", err)
	}
	p.WorkType = model.WorkType(workType)
	p.DatePosted = datePosted
	return p, true, nil
}

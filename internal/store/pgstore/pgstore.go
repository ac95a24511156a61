// Package pgstore implements the job store and dedup index on PostgreSQL.
// The dedup claim rides on a primary-key INSERT ... ON CONFLICT, which the
// database serializes; no advisory locking is needed.
package pgstore

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
)

// Migrate creates the tables both stores need. Safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS render_jobs (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			payload    TEXT NOT NULL,
			result_key TEXT NOT NULL DEFAULT '',
			error_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS render_dedup (
			fingerprint TEXT PRIMARY KEY,
			job_id      TEXT NOT NULL
		);
	`)
	if err != nil {
		return errors.Wrap(err, "pgstore.migrate", "migration failed")
	}
	return nil
}

// JobStore stores records in the render_jobs table.
type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

func (s *JobStore) Put(ctx context.Context, rec job.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO render_jobs (id, status, payload, result_key, error_text, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, string(rec.Status), rec.Payload, rec.ResultKey, rec.Error, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.AlreadyExists("job", rec.ID)
		}
		return errors.Wrap(err, "pgstore.put", "job insert failed")
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (job.Record, error) {
	var rec job.Record
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, payload, result_key, error_text, created_at, updated_at
		 FROM render_jobs WHERE id=$1`,
		id,
	).Scan(&rec.ID, &status, &rec.Payload, &rec.ResultKey, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return job.Record{}, errors.NotFound("job", id)
		}
		return job.Record{}, errors.Wrap(err, "pgstore.get", "job query failed")
	}
	rec.Status = job.Status(status)
	return rec, nil
}

func (s *JobStore) Update(ctx context.Context, id string, upd job.Update) error {
	sets := []string{"updated_at=$1"}
	args := []any{time.Now().UTC()}

	if upd.Status != nil {
		args = append(args, string(*upd.Status))
		sets = append(sets, "status=$"+strconv.Itoa(len(args)))
	}
	if upd.ResultKey != nil {
		args = append(args, *upd.ResultKey)
		sets = append(sets, "result_key=$"+strconv.Itoa(len(args)))
	}
	if upd.Error != nil {
		args = append(args, *upd.Error)
		sets = append(sets, "error_text=$"+strconv.Itoa(len(args)))
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		"UPDATE render_jobs SET "+strings.Join(sets, ", ")+" WHERE id=$"+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return errors.Wrap(err, "pgstore.update", "job update failed")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("job", id)
	}
	return nil
}

// DedupIndex claims fingerprints through the render_dedup primary key.
type DedupIndex struct {
	pool *pgxpool.Pool
}

func NewDedupIndex(pool *pgxpool.Pool) *DedupIndex {
	return &DedupIndex{pool: pool}
}

func (d *DedupIndex) TryClaim(ctx context.Context, fingerprint, id string) (bool, string, error) {
	tag, err := d.pool.Exec(ctx,
		`INSERT INTO render_dedup (fingerprint, job_id) VALUES ($1,$2)
		 ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint, id,
	)
	if err != nil {
		return false, "", errors.Wrap(err, "pgstore.tryclaim", "dedup insert failed")
	}
	if tag.RowsAffected() == 1 {
		return true, "", nil
	}

	// Entries are never deleted by this subsystem, so the losing side can
	// read the winner without racing the insert.
	var existing string
	err = d.pool.QueryRow(ctx,
		`SELECT job_id FROM render_dedup WHERE fingerprint=$1`,
		fingerprint,
	).Scan(&existing)
	if err != nil {
		return false, "", errors.Wrap(err, "pgstore.tryclaim", "dedup query failed")
	}
	return false, existing, nil
}

func (d *DedupIndex) Reclaim(ctx context.Context, fingerprint, id string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO render_dedup (fingerprint, job_id) VALUES ($1,$2)
		 ON CONFLICT (fingerprint) DO UPDATE SET job_id=EXCLUDED.job_id`,
		fingerprint, id,
	)
	if err != nil {
		return errors.Wrap(err, "pgstore.reclaim", "dedup overwrite failed")
	}
	return nil
}

// isUniqueViolation reports a PostgreSQL unique constraint violation.
// 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

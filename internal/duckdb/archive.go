package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// ArchiveDocument appends doc to the perf_stats table.
func (s *Store) ArchiveDocument(ctx context.Context, doc model.Document) error {
	stats, err := json.Marshal(doc.PerfStats)
	if err != nil {
		return fmt.Errorf("duckdb: encode stats: %w", err)
	}

	var repSet, repState sql.NullString
	if doc.ReplicaSet != nil {
		repSet = sql.NullString{String: doc.ReplicaSet.Name, Valid: true}
		repState = sql.NullString{String: doc.ReplicaSet.State, Valid: true}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO perf_stats (server, as_of, rep_set, rep_state, perf_stats) VALUES (?, ?, ?, ?, ?)`,
		doc.Server, doc.AsOf, repSet, repState, string(stats),
	)
	if err != nil {
		return fmt.Errorf("duckdb: archive document: %w", err)
	}
	return nil
}

// ArchivedDocument is one archived row.
type ArchivedDocument struct {
	model.Document
	CapturedAt time.Time
}

// Recent returns up to limit of the newest archived documents for server,
// newest first. An empty server matches every server.
func (s *Store) Recent(ctx context.Context, server string, limit int) ([]ArchivedDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT server, as_of, rep_set, rep_state, perf_stats, captured_at
		 FROM perf_stats
		 WHERE ? = '' OR server = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		server, server, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query recent: %w", err)
	}
	defer rows.Close()

	var out []ArchivedDocument
	for rows.Next() {
		var (
			a                ArchivedDocument
			repSet, repState sql.NullString
			stats            string
		)
		if err := rows.Scan(&a.Server, &a.AsOf, &repSet, &repState, &stats, &a.CapturedAt); err != nil {
			return nil, fmt.Errorf("duckdb: scan recent: %w", err)
		}
		if repSet.Valid && repState.Valid {
			a.ReplicaSet = &model.ReplicaSet{Name: repSet.String, State: repState.String}
		}
		dec := json.NewDecoder(strings.NewReader(stats))
		dec.UseNumber()
		if err := dec.Decode(&a.PerfStats); err != nil {
			return nil, fmt.Errorf("duckdb: decode stats: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of archived documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM perf_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("duckdb: count: %w", err)
	}
	return n, nil
}

// DeleteBefore removes documents captured before cutoff and returns how many
// rows were deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM perf_stats WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("duckdb: delete before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return res.RowsAffected()
}

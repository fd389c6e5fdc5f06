package duckdb

import (
	"context"
	"log"
	"time"
)

// DefaultRetentionDays is how long archived documents are kept when no
// retention is configured.
const DefaultRetentionDays = 30

// Prune deletes archived documents older than retentionDays, measured from
// now. A retention of zero or less disables pruning.
func (s *Store) Prune(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	rows, err := s.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Printf("duckdb: retention cleanup error: %v", err)
		return 0, err
	}
	if rows > 0 {
		log.Printf("duckdb: retention cleanup deleted %d expired documents (older than %d days)", rows, retentionDays)
	}
	return rows, nil
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// TierCounts returns the number of identifiers per tier for a decode version,
// counting only the latest row of each identifier.
func (r *Repository) TierCounts(ctx context.Context, decodeVersion string) (counts map[model.Tier]uint64, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("tier_counts", len(counts), err, start)
	}()

	const query = `
SELECT tier, count() AS total
FROM (
	SELECT identifier, argMax(tier, updated_at) AS tier
	FROM tier_resolutions
	WHERE decode_version = ?
	GROUP BY identifier
)
GROUP BY tier`

	rows, err := r.conn.Query(ctx, query, decodeVersion)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	counts = make(map[model.Tier]uint64)
	for rows.Next() {
		var (
			tier  uint8
			total uint64
		)
		if err = rows.Scan(&tier, &total); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		counts[model.ParseTier(uint64(tier))] += total
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier counts: %w", err)
	}
	return counts, nil
}

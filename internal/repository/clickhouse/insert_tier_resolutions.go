package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// InsertTierResolutions stores resolution rows. Rows for the same identifier
// and decode version are collapsed by updated_at.
func (r *Repository) InsertTierResolutions(ctx context.Context, resolutions []model.TierResolution) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_tier_resolutions", len(resolutions), err, start)
	}()

	if len(resolutions) == 0 {
		return nil
	}

	const query = `
INSERT INTO tier_resolutions (
	identifier,
	tier,
	matched_block,
	method,
	reason,
	decode_version,
	error,
	resolved_at
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare tier resolutions batch: %w", err)
	}

	for _, res := range resolutions {
		if err = batch.Append(
			uint64(res.Identifier),
			tierValue(res.Tier),
			res.MatchedBlock,
			string(res.Method),
			string(res.Reason),
			res.DecodeVersion,
			res.Error,
			res.ResolvedAt.UTC(),
		); err != nil {
			return fmt.Errorf("append tier resolution %d: %w", res.Identifier, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert tier resolutions: %w", err)
	}
	return nil
}

// tierValue encodes a tier as UInt8 with 0 for unknown.
func tierValue(t model.Tier) uint8 {
	switch t {
	case model.Tier10:
		return 10
	case model.Tier20:
		return 20
	default:
		return 0
	}
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// InsertMatchRecords stores joined match rows keyed by match id and log position.
func (r *Repository) InsertMatchRecords(ctx context.Context, records []model.MatchRecord) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_match_records", len(records), err, start)
	}()

	if len(records) == 0 {
		return nil
	}

	const query = `
INSERT INTO match_records (
	match_id,
	player_a,
	player_b,
	result_code,
	winner,
	block_number,
	tx_hash,
	log_index,
	join_state
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare match records batch: %w", err)
	}

	for _, rec := range records {
		if err = batch.Append(
			uint64(rec.MatchID),
			rec.PlayerA,
			rec.PlayerB,
			rec.ResultCode,
			rec.Winner,
			rec.Block,
			rec.TxHash,
			uint64(rec.LogIndex),
			string(rec.Join),
		); err != nil {
			return fmt.Errorf("append match record %d: %w", rec.MatchID, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert match records: %w", err)
	}
	return nil
}

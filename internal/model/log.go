package model

// LogRecord is a contract event log as returned by the log retrieval layer.
// Topics and Data are hex strings as they appear on the JSON-RPC wire.
type LogRecord struct {
	Address     string
	Topics      []string
	Data        string
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
}

// Newer reports whether l was emitted after o.
func (l LogRecord) Newer(o LogRecord) bool {
	if l.BlockNumber != o.BlockNumber {
		return l.BlockNumber > o.BlockNumber
	}
	return l.LogIndex > o.LogIndex
}

// ScanCursor defines a single backward windowed scan.
type ScanCursor struct {
	AnchorBlock    uint64
	LookbackBlocks uint64
	// SkipBlocks excludes that many newest blocks, counted from the anchor
	// down, which an earlier scan already covered.
	SkipBlocks uint64
	ChunkSize  uint64
}

// Range returns the inclusive block range covered by the cursor. ok is false
// when the skipped blocks leave nothing to scan.
func (c ScanCursor) Range() (from, to uint64, ok bool) {
	if c.LookbackBlocks < c.AnchorBlock {
		from = c.AnchorBlock - c.LookbackBlocks
	}
	if c.SkipBlocks > c.AnchorBlock {
		return from, 0, false
	}
	to = c.AnchorBlock - c.SkipBlocks
	return from, to, from <= to
}

// EventSummary is a paged win or match summary from the indexing layer.
type EventSummary struct {
	ID          string
	Timestamp   int64
	Identifier  Identifier
	BlockNumber uint64
	Participant string
}

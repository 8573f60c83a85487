// Package join attaches winners from winner-hint logs to match logs.
package join

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/decode"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// Absent marks a layout field the event does not carry.
const Absent = -1

var (
	errMissingWord = errors.New("word index out of range")
	errNotAddress  = errors.New("word is not an address")
	errNotID       = errors.New("word is not an identifier")
)

// MatchLayout holds word indexes of match fields in the flattened sequence
// (topics first, then data).
type MatchLayout struct {
	ID         int
	PlayerA    int
	PlayerB    int
	ResultCode int
}

// HintLayout holds word indexes of winner-hint fields.
type HintLayout struct {
	ID     int
	Winner int
	// Flag is the confirmation word. Hints whose flag word is present and
	// differs from Config.Confirmed are ignored.
	Flag int
}

// Config configures decoding of both streams.
type Config struct {
	Match     MatchLayout
	Hint      HintLayout
	Confirmed uint64
}

// DefaultConfig matches the deployed contract: indexed id in topic 1, remaining fields in data.
func DefaultConfig() Config {
	return Config{
		Match:     MatchLayout{ID: 1, PlayerA: 2, PlayerB: 3, ResultCode: 4},
		Hint:      HintLayout{ID: 1, Winner: 2, Flag: 3},
		Confirmed: 1,
	}
}

// Validate rejects layouts with missing mandatory fields.
func (c Config) Validate() error {
	for name, idx := range map[string]int{
		"match id":       c.Match.ID,
		"match player a": c.Match.PlayerA,
		"match player b": c.Match.PlayerB,
		"hint id":        c.Hint.ID,
		"hint winner":    c.Hint.Winner,
	} {
		if idx < 0 {
			return fmt.Errorf("%s index must be non-negative", name)
		}
	}
	if c.Match.PlayerA == c.Match.PlayerB {
		return errors.New("match player indexes must differ")
	}
	return nil
}

type hintKey struct {
	tx string
	id model.Identifier
}

// Joiner correlates match logs with winner-hint logs.
type Joiner struct {
	cfg     Config
	metrics Metrics
	logger  *zap.Logger
}

// NewJoiner constructs a Joiner.
func NewJoiner(logger *zap.Logger, metrics Metrics, cfg Config) (*Joiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Joiner{cfg: cfg, metrics: metrics, logger: logger}, nil
}

func wordAt(words []model.Word, idx int) (model.Word, error) {
	if idx < 0 || idx >= len(words) {
		return "", fmt.Errorf("%w: %d of %d", errMissingWord, idx, len(words))
	}
	return words[idx], nil
}

func addressAt(words []model.Word, idx int) (string, error) {
	w, err := wordAt(words, idx)
	if err != nil {
		return "", err
	}
	addr, ok := w.Address()
	if !ok {
		return "", fmt.Errorf("%w at %d", errNotAddress, idx)
	}
	return addr, nil
}

func identifierAt(words []model.Word, idx int) (model.Identifier, error) {
	w, err := wordAt(words, idx)
	if err != nil {
		return 0, err
	}
	id, ok := w.Identifier()
	if !ok {
		return 0, fmt.Errorf("%w at %d", errNotID, idx)
	}
	return id, nil
}

// DecodeHint decodes a winner-hint log and reports whether it is confirmed.
func (j *Joiner) DecodeHint(l model.LogRecord) (model.WinnerHint, bool, error) {
	words := decode.Words(l)
	id, err := identifierAt(words, j.cfg.Hint.ID)
	if err != nil {
		return model.WinnerHint{}, false, fmt.Errorf("hint id: %w", err)
	}
	winner, err := addressAt(words, j.cfg.Hint.Winner)
	if err != nil {
		return model.WinnerHint{}, false, fmt.Errorf("hint winner: %w", err)
	}

	confirmed := true
	if j.cfg.Hint.Flag != Absent && j.cfg.Hint.Flag < len(words) {
		flag, ok := words[j.cfg.Hint.Flag].Uint(^uint64(0))
		confirmed = ok && flag == j.cfg.Confirmed
	}
	return model.WinnerHint{
		Identifier:    id,
		WinnerAddress: winner,
		TxHash:        strings.ToLower(l.TxHash),
	}, confirmed, nil
}

// DecodeMatch decodes a match log. The result has no winner and no join state.
func (j *Joiner) DecodeMatch(l model.LogRecord) (model.MatchRecord, error) {
	words := decode.Words(l)
	id, err := identifierAt(words, j.cfg.Match.ID)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("match id: %w", err)
	}
	a, err := addressAt(words, j.cfg.Match.PlayerA)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("match player a: %w", err)
	}
	b, err := addressAt(words, j.cfg.Match.PlayerB)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("match player b: %w", err)
	}

	rec := model.MatchRecord{
		MatchID:  id,
		PlayerA:  a,
		PlayerB:  b,
		Block:    l.BlockNumber,
		TxHash:   strings.ToLower(l.TxHash),
		LogIndex: l.LogIndex,
	}
	if j.cfg.Match.ResultCode != Absent && j.cfg.Match.ResultCode < len(words) {
		if code, ok := words[j.cfg.Match.ResultCode].Uint(^uint64(0)); ok {
			rec.ResultCode = &code
		}
	}
	return rec, nil
}

type index struct {
	byKey map[hintKey]model.WinnerHint
	// byTx holds the distinct winners hinted in a transaction, in first-seen order.
	byTx map[string][]string
}

func (j *Joiner) buildIndex(hintLogs []model.LogRecord, stats *model.JoinStats) index {
	idx := index{
		byKey: make(map[hintKey]model.WinnerHint),
		byTx:  make(map[string][]string),
	}
	for _, l := range hintLogs {
		hint, confirmed, err := j.DecodeHint(l)
		if err != nil {
			stats.HintDecodeFailures++
			j.logger.Debug("hint not decoded",
				zap.String("tx", l.TxHash),
				zap.Uint("log_index", l.LogIndex),
				zap.Error(err))
			continue
		}
		if !confirmed {
			stats.HintsUnconfirmed++
			continue
		}
		stats.Hints++

		key := hintKey{tx: hint.TxHash, id: hint.Identifier}
		if _, seen := idx.byKey[key]; seen {
			stats.HintsDuplicate++
		} else {
			idx.byKey[key] = hint
		}

		winners := idx.byTx[hint.TxHash]
		known := false
		for _, w := range winners {
			if w == hint.WinnerAddress {
				known = true
				break
			}
		}
		if !known {
			idx.byTx[hint.TxHash] = append(winners, hint.WinnerAddress)
		}
	}
	return idx
}

// resolve attaches a winner to rec or leaves it unresolved. A key hit whose
// winner is not a player is evidence against attribution and ends unresolved.
func (idx index) resolve(rec *model.MatchRecord) {
	if hint, ok := idx.byKey[hintKey{tx: rec.TxHash, id: rec.MatchID}]; ok {
		if rec.HasPlayer(hint.WinnerAddress) {
			winner := hint.WinnerAddress
			rec.Winner = &winner
			rec.Join = model.JoinedByKey
			return
		}
		rec.Join = model.JoinUnresolved
		return
	}

	winners := idx.byTx[rec.TxHash]
	if len(winners) == 1 && rec.HasPlayer(winners[0]) {
		winner := winners[0]
		rec.Winner = &winner
		rec.Join = model.JoinedByTxFallback
		return
	}
	rec.Join = model.JoinUnresolved
}

// JoinMatches decodes match logs in order and attributes winners from the
// hint logs: first by (tx, id), then by the single distinct winner of the tx.
func (j *Joiner) JoinMatches(matchLogs, hintLogs []model.LogRecord) ([]model.MatchRecord, model.JoinStats) {
	var stats model.JoinStats
	idx := j.buildIndex(hintLogs, &stats)

	records := make([]model.MatchRecord, 0, len(matchLogs))
	for _, l := range matchLogs {
		rec, err := j.DecodeMatch(l)
		if err != nil {
			stats.MatchDecodeFailures++
			j.logger.Debug("match not decoded",
				zap.String("tx", l.TxHash),
				zap.Uint("log_index", l.LogIndex),
				zap.Error(err))
			continue
		}

		idx.resolve(&rec)
		switch rec.Join {
		case model.JoinedByKey:
			stats.JoinedByKey++
		case model.JoinedByTxFallback:
			stats.JoinedByTxFallback++
		default:
			stats.Unresolved++
			j.logger.Debug("match unresolved",
				zap.Uint64("match_id", uint64(rec.MatchID)),
				zap.String("tx", rec.TxHash),
				zap.Error(model.ErrJoinUnresolved))
		}
		records = append(records, rec)
	}
	stats.Matches = len(records)

	j.metrics.ObserveMatches(string(model.JoinedByKey), stats.JoinedByKey)
	j.metrics.ObserveMatches(string(model.JoinedByTxFallback), stats.JoinedByTxFallback)
	j.metrics.ObserveMatches(string(model.JoinUnresolved), stats.Unresolved)
	j.metrics.ObserveDecodeFailures("match", stats.MatchDecodeFailures)
	j.metrics.ObserveDecodeFailures("hint", stats.HintDecodeFailures)
	j.metrics.ObserveHintsIgnored(stats.HintsUnconfirmed + stats.HintsDuplicate)

	if stats.MatchDecodeFailures > 0 || stats.HintDecodeFailures > 0 {
		j.logger.Warn("logs skipped during join",
			zap.Int("match_failures", stats.MatchDecodeFailures),
			zap.Int("hint_failures", stats.HintDecodeFailures))
	}
	j.logger.Info("matches joined",
		zap.Int("matches", stats.Matches),
		zap.Int("joined_by_key", stats.JoinedByKey),
		zap.Int("joined_by_tx", stats.JoinedByTxFallback),
		zap.Int("unresolved", stats.Unresolved))
	return records, stats
}

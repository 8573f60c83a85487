package decode

import (
	"errors"
	"fmt"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// algorithmRevision changes whenever the scoring rules change in a way the
// parameters below do not capture.
const algorithmRevision = "flex3"

const baseScore = 10000

// bracketMaxima are the only values accepted as the upper end of a flex-pair.
var bracketMaxima = [...]uint64{10, 20}

// Config holds the tunables of the inference heuristics.
type Config struct {
	// Window is the number of words inspected on each side of an identifier.
	Window int
	// Span is how far past a min candidate the max candidate may appear.
	Span int
	// MaxDrift bounds max-min of an accepted pair.
	MaxDrift uint64
	// MinCeiling is the largest value accepted as a min candidate.
	MinCeiling uint64
	// SafeCeiling is the largest value treated as a small integer at all.
	SafeCeiling uint64
	// DistancePenalty is subtracted per word between the min candidate and the identifier.
	DistancePenalty int
	// ExactBonus is added when min equals max.
	ExactBonus int
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		Window:          40,
		Span:            14,
		MaxDrift:        4,
		MinCeiling:      30,
		SafeCeiling:     10_000,
		DistancePenalty: 80,
		ExactBonus:      25,
	}
}

// Validate checks that the tunables describe a usable engine.
func (c Config) Validate() error {
	switch {
	case c.Window <= 0:
		return errors.New("window must be positive")
	case c.Span <= 0:
		return errors.New("span must be positive")
	case c.MinCeiling > c.SafeCeiling:
		return fmt.Errorf("min ceiling %d exceeds safe ceiling %d", c.MinCeiling, c.SafeCeiling)
	case c.SafeCeiling < 20:
		return fmt.Errorf("safe ceiling %d excludes bracket values", c.SafeCeiling)
	}
	return nil
}

// Version identifies the heuristic generation for cache partitioning.
func (c Config) Version() string {
	return fmt.Sprintf("%s-w%d-s%d-d%d-m%d-c%d-p%d-b%d",
		algorithmRevision, c.Window, c.Span, c.MaxDrift, c.MinCeiling, c.SafeCeiling, c.DistancePenalty, c.ExactBonus)
}

// Inference is the outcome of scoring one word sequence.
type Inference struct {
	Tier   model.Tier
	Method model.Method
	Reason model.Reason
	// Min and Max are the accepted bracket for flex-pair results.
	Min uint64
	Max uint64
	// Score of the winning pair. Zero for other methods.
	Score int
	// Position of the word that decided the tier, -1 when none did.
	Position int
	// Anchor is the identifier occurrence the decision was made against, -1 when none.
	Anchor int
}

// Err returns the taxonomy error for unresolved inferences.
func (i Inference) Err() error {
	if i.Reason == model.ReasonAmbiguous {
		return model.ErrDecodeAmbiguous
	}
	return nil
}

// Engine scores word sequences into tiers. It is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine constructs an Engine from validated tunables.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decode config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Version is the decode version of the engine.
func (e *Engine) Version() string {
	return e.cfg.Version()
}

type smallValue struct {
	v      uint64
	ok     bool
	anchor bool
}

// Infer decides the tier for words given the identifier positions. Flex-pair
// scoring runs first; the nearest-unambiguous fallback only runs when no pair
// is accepted. Identifier words never act as candidates.
func (e *Engine) Infer(words []model.Word, positions []int) Inference {
	if len(positions) == 0 {
		return unresolved(model.ReasonNoAnchor)
	}

	values := make([]smallValue, len(words))
	for i, w := range words {
		v, ok := w.Uint(e.cfg.SafeCeiling)
		values[i] = smallValue{v: v, ok: ok}
	}
	for _, p := range positions {
		if p >= 0 && p < len(values) {
			values[p].anchor = true
		}
	}

	if inf, ok := e.flexPair(values, positions); ok {
		return inf
	}
	return e.nearest(values, positions)
}

func (e *Engine) flexPair(values []smallValue, positions []int) (Inference, bool) {
	best := Inference{}
	found := false

	for _, p := range positions {
		lo, hi := e.window(p, len(values))
		for i := lo; i <= hi; i++ {
			lower := values[i]
			if !lower.ok || lower.anchor || lower.v > e.cfg.MinCeiling {
				continue
			}
			// the max candidate may sit past the window edge
			last := min(i+e.cfg.Span, len(values)-1)
			for j := i + 1; j <= last; j++ {
				upper := values[j]
				if !upper.ok || upper.anchor || !isBracketMax(upper.v) {
					continue
				}
				if lower.v > upper.v || upper.v-lower.v > e.cfg.MaxDrift {
					continue
				}
				score := baseScore - e.cfg.DistancePenalty*abs(i-p) + (e.cfg.Span - (j - i))
				if lower.v == upper.v {
					score += e.cfg.ExactBonus
				}
				if found && score <= best.Score {
					continue
				}
				found = true
				best = Inference{
					Tier:     model.ParseTier(upper.v),
					Method:   model.MethodFlexPair,
					Reason:   model.ReasonFlexPair,
					Min:      lower.v,
					Max:      upper.v,
					Score:    score,
					Position: j,
					Anchor:   p,
				}
			}
		}
	}
	return best, found
}

func (e *Engine) nearest(values []smallValue, positions []int) Inference {
	type hit struct {
		pos, anchor, dist int
	}
	hits := make(map[uint64]hit, len(bracketMaxima))

	for _, p := range positions {
		lo, hi := e.window(p, len(values))
		for i := lo; i <= hi; i++ {
			v := values[i]
			if !v.ok || v.anchor || !isBracketMax(v.v) {
				continue
			}
			d := abs(i - p)
			if prev, seen := hits[v.v]; !seen || d < prev.dist {
				hits[v.v] = hit{pos: i, anchor: p, dist: d}
			}
		}
	}

	switch len(hits) {
	case 0:
		return unresolved(model.ReasonNoSignal)
	case 1:
		for value, h := range hits {
			return Inference{
				Tier:     model.ParseTier(value),
				Method:   model.MethodNearestUnambiguous,
				Reason:   model.ReasonNearestUnambiguous,
				Min:      value,
				Max:      value,
				Position: h.pos,
				Anchor:   h.anchor,
			}
		}
	}
	return unresolved(model.ReasonAmbiguous)
}

func (e *Engine) window(p, n int) (lo, hi int) {
	lo = max(0, p-e.cfg.Window)
	hi = min(n-1, p+e.cfg.Window)
	return lo, hi
}

func unresolved(reason model.Reason) Inference {
	return Inference{
		Tier:     model.TierUnknown,
		Method:   model.MethodNone,
		Reason:   reason,
		Position: -1,
		Anchor:   -1,
	}
}

func isBracketMax(v uint64) bool {
	for _, m := range bracketMaxima {
		if v == m {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

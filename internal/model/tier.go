package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tier is the inferred level bracket of a tournament.
type Tier int

var (
	// TierUnknown means no decode event supported a tier.
	TierUnknown Tier = 0
	// Tier10 is the level 10 bracket.
	Tier10 Tier = 10
	// Tier20 is the level 20 bracket.
	Tier20 Tier = 20
)

// UnknownVersion is assigned to migrated entries and never equals a real decode version.
const UnknownVersion = "unknown"

// ParseTier maps a raw bracket value onto a tier.
func ParseTier(v uint64) Tier {
	switch v {
	case 10:
		return Tier10
	case 20:
		return Tier20
	default:
		return TierUnknown
	}
}

// Known reports whether the tier is 10 or 20.
func (t Tier) Known() bool {
	return t == Tier10 || t == Tier20
}

func (t Tier) String() string {
	if !t.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(t))
}

// MarshalJSON encodes known tiers as numbers and everything else as "unknown".
func (t Tier) MarshalJSON() ([]byte, error) {
	if !t.Known() {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.Itoa(int(t))), nil
}

// UnmarshalJSON accepts 10, 20, "10", "20", "unknown" and null.
func (t *Tier) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*t = TierUnknown
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	if s == "" || s == "unknown" {
		*t = TierUnknown
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse tier %q: %w", s, err)
	}
	*t = ParseTier(v)
	return nil
}

// Method names the heuristic that produced a tier.
type Method string

var (
	MethodFlexPair           Method = "flex-pair"
	MethodNearestUnambiguous Method = "nearest-unambiguous"
	MethodNone               Method = "none"
)

// Reason is the diagnostic outcome of a resolution attempt.
type Reason string

var (
	ReasonFlexPair           Reason = "flex-pair"
	ReasonNearestUnambiguous Reason = "nearest-unambiguous"
	ReasonAmbiguous          Reason = "ambiguous"
	ReasonNoAnchor           Reason = "no-anchor"
	ReasonNoSignal           Reason = "no-signal"
	ReasonExhausted          Reason = "exhausted"
	ReasonScanError          Reason = "scan-error"
)

// TierResolution is the persisted outcome of resolving one identifier.
type TierResolution struct {
	Identifier    Identifier `json:"identifier"`
	Tier          Tier       `json:"tier"`
	MatchedBlock  *uint64    `json:"matchedBlock"`
	Method        Method     `json:"method"`
	DecodeVersion string     `json:"decodeVersion"`
	ResolvedAt    time.Time  `json:"resolvedAt"`
	Error         *string    `json:"error"`
	Reason        Reason     `json:"reason,omitempty"`
}

// Cacheable reports whether the resolution is a fully decided outcome.
// Transport failures are never cached.
func (r TierResolution) Cacheable() bool {
	return r.Error == nil && r.DecodeVersion != "" && r.DecodeVersion != UnknownVersion
}

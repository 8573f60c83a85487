package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDecodeAmbiguous marks a window where both 10 and 20 occur without a flex-pair.
	ErrDecodeAmbiguous = errors.New("decode ambiguous")
	// ErrScanExhausted marks a fully searched window without a decodable log.
	ErrScanExhausted = errors.New("scan exhausted")
	// ErrJoinUnresolved marks a match without an attributable winner.
	ErrJoinUnresolved = errors.New("join unresolved")
)

// ScanError is a log retrieval failure. It is retryable and must never be
// recorded as a confirmed absence.
type ScanError struct {
	From uint64
	To   uint64
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan blocks %d-%d: %v", e.From, e.To, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// IsScanError reports whether err carries a ScanError.
func IsScanError(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}

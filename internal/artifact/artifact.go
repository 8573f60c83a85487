// Package artifact reads and writes the versioned JSON documents shared with
// downstream presentation code.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

const (
	SchemaTierResolutions  = "tier-resolutions"
	TierResolutionsVersion = 2

	SchemaMatchRecords  = "match-records"
	MatchRecordsVersion = 1

	SchemaTierReport  = "tier-report"
	TierReportVersion = 1
)

// ErrSchemaMismatch is returned when a document carries another schema or a newer version.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Header prefixes every document.
type Header struct {
	Schema        string `json:"schema"`
	SchemaVersion int    `json:"schemaVersion"`
}

// Check verifies that h names schema at a version no newer than version.
func (h Header) Check(schema string, version int) error {
	if h.Schema != schema || h.SchemaVersion < 1 || h.SchemaVersion > version {
		return fmt.Errorf("%w: got %s v%d, want %s v%d", ErrSchemaMismatch, h.Schema, h.SchemaVersion, schema, version)
	}
	return nil
}

// MatchDocument is the persisted result of a match join.
type MatchDocument struct {
	Header
	GeneratedAt time.Time           `json:"generatedAt"`
	FromBlock   uint64              `json:"fromBlock"`
	ToBlock     uint64              `json:"toBlock"`
	Stats       model.JoinStats     `json:"stats"`
	Records     []model.MatchRecord `json:"records"`
}

// ReportDocument is the persisted result of a resolver run.
type ReportDocument struct {
	Header
	GeneratedAt   time.Time              `json:"generatedAt"`
	DecodeVersion string                 `json:"decodeVersion"`
	Stats         model.RunStats         `json:"stats"`
	Resolutions   []model.TierResolution `json:"resolutions"`
}

// WriteJSON atomically replaces path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes path into v. It reports false without error when path does not exist.
func ReadJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

// WriteMatches stamps the match-records header and writes doc to path.
func WriteMatches(path string, doc MatchDocument) error {
	doc.Header = Header{Schema: SchemaMatchRecords, SchemaVersion: MatchRecordsVersion}
	if doc.Records == nil {
		doc.Records = []model.MatchRecord{}
	}
	return WriteJSON(path, doc)
}

// ReadMatches loads a match-records document.
func ReadMatches(path string) (MatchDocument, error) {
	var doc MatchDocument
	ok, err := ReadJSON(path, &doc)
	if err != nil {
		return MatchDocument{}, err
	}
	if !ok {
		return MatchDocument{}, fmt.Errorf("reading %s: %w", path, os.ErrNotExist)
	}
	if err := doc.Check(SchemaMatchRecords, MatchRecordsVersion); err != nil {
		return MatchDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

// WriteReport stamps the tier-report header and writes doc to path.
func WriteReport(path string, doc ReportDocument) error {
	doc.Header = Header{Schema: SchemaTierReport, SchemaVersion: TierReportVersion}
	if doc.Resolutions == nil {
		doc.Resolutions = []model.TierResolution{}
	}
	return WriteJSON(path, doc)
}

// ReadReport loads a tier-report document.
func ReadReport(path string) (ReportDocument, error) {
	var doc ReportDocument
	ok, err := ReadJSON(path, &doc)
	if err != nil {
		return ReportDocument{}, err
	}
	if !ok {
		return ReportDocument{}, fmt.Errorf("reading %s: %w", path, os.ErrNotExist)
	}
	if err := doc.Check(SchemaTierReport, TierReportVersion); err != nil {
		return ReportDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

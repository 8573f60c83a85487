// Package subgraph pages event summaries from a GraphQL indexing endpoint.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/pkg/safe"
)

// Fields names the entity fields mapped onto an EventSummary.
type Fields struct {
	ID          string
	Timestamp   string
	Identifier  string
	BlockNumber string
	Participant string
}

// Config describes the subgraph endpoint and the entity being paged.
type Config struct {
	URL     string
	Entity  string
	Fields  Fields
	Timeout time.Duration
}

// DefaultConfig returns field names of the tournament win entity.
func DefaultConfig() Config {
	return Config{
		Entity: "tournamentWins",
		Fields: Fields{
			ID:          "id",
			Timestamp:   "blockTimestamp",
			Identifier:  "tournamentId",
			BlockNumber: "blockNumber",
			Participant: "winner",
		},
		Timeout: 15 * time.Second,
	}
}

// Validate checks the endpoint and field names.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil {
		return fmt.Errorf("subgraph url parse %q: %w", c.URL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("subgraph url must be http(s), got %q", c.URL)
	}
	for name, v := range map[string]string{
		"entity":       c.Entity,
		"id field":     c.Fields.ID,
		"timestamp":    c.Fields.Timestamp,
		"identifier":   c.Fields.Identifier,
		"block number": c.Fields.BlockNumber,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("subgraph %s is required", name)
		}
	}
	return nil
}

// Pager implements offset paging over a subgraph entity collection.
type Pager struct {
	cfg        Config
	httpClient *http.Client
}

// NewPager validates cfg and builds a Pager.
func NewPager(cfg Config) (*Pager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	return &Pager{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

type response struct {
	Data   map[string][]map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Page returns up to first summaries after skipping skip, ordered by timestamp.
func (p *Pager) Page(ctx context.Context, first, skip int) ([]model.EventSummary, error) {
	if first <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", first)
	}

	body, err := json.Marshal(request{
		Query:     p.query(),
		Variables: map[string]int{"first": first, "skip": skip},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read subgraph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("subgraph status %d: %s", resp.StatusCode, strings.TrimSpace(string(truncate(raw, 256))))
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode subgraph response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		msgs := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("subgraph errors: %s", strings.Join(msgs, "; "))
	}
	rows, ok := decoded.Data[p.cfg.Entity]
	if !ok {
		return nil, fmt.Errorf("subgraph response has no %q collection", p.cfg.Entity)
	}

	out := make([]model.EventSummary, 0, len(rows))
	for i, row := range rows {
		s, err := p.summary(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", skip+i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *Pager) query() string {
	f := p.cfg.Fields
	selection := []string{f.ID, f.Timestamp, f.Identifier, f.BlockNumber}
	if f.Participant != "" {
		selection = append(selection, f.Participant)
	}
	return fmt.Sprintf(
		"query Page($first: Int!, $skip: Int!) { %s(first: $first, skip: $skip, orderBy: %s, orderDirection: asc) { %s } }",
		p.cfg.Entity, f.Timestamp, strings.Join(selection, " "),
	)
}

func (p *Pager) summary(row map[string]json.RawMessage) (model.EventSummary, error) {
	f := p.cfg.Fields

	id, err := stringField(row, f.ID)
	if err != nil {
		return model.EventSummary{}, err
	}
	ts, err := uintField(row, f.Timestamp)
	if err != nil {
		return model.EventSummary{}, err
	}
	timestamp, err := safe.Int64(ts)
	if err != nil {
		return model.EventSummary{}, fmt.Errorf("%s: %w", f.Timestamp, err)
	}
	identifier, err := uintField(row, f.Identifier)
	if err != nil {
		return model.EventSummary{}, err
	}
	block, err := uintField(row, f.BlockNumber)
	if err != nil {
		return model.EventSummary{}, err
	}

	var participant string
	if f.Participant != "" {
		if v, err := stringField(row, f.Participant); err == nil {
			participant = model.NormalizeAddress(v)
		}
	}

	return model.EventSummary{
		ID:          id,
		Timestamp:   timestamp,
		Identifier:  model.Identifier(identifier),
		BlockNumber: block,
		Participant: participant,
	}, nil
}

var errMissingField = errors.New("missing field")

func stringField(row map[string]json.RawMessage, name string) (string, error) {
	raw, ok := row[name]
	if !ok || string(raw) == "null" {
		return "", fmt.Errorf("%s: %w", name, errMissingField)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return n.String(), nil
}

// uintField accepts BigInt strings as well as plain JSON numbers.
func uintField(row map[string]json.RawMessage, name string) (uint64, error) {
	s, err := stringField(row, name)
	if err != nil {
		return 0, err
	}
	v, err := safe.ParseUint64(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

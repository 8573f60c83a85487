// Package transport exposes the persisted results over HTTP.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/artifact"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/pkg/safe"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Store loads the documents served by the handler.
type Store interface {
	Report() (artifact.ReportDocument, error)
	Matches() (artifact.MatchDocument, error)
}

// FileStore reads the documents from disk on every call, so a concurrent
// atomic rewrite is picked up by the next request.
type FileStore struct {
	ReportPath  string
	MatchesPath string
}

func (s FileStore) Report() (artifact.ReportDocument, error) {
	return artifact.ReadReport(s.ReportPath)
}

func (s FileStore) Matches() (artifact.MatchDocument, error) {
	return artifact.ReadMatches(s.MatchesPath)
}

// ResultsHandler serves tier resolutions and match records.
type ResultsHandler struct {
	store  Store
	logger *zap.Logger
}

// NewResultsHandler returns a handler with all routes registered.
func NewResultsHandler(store Store, logger *zap.Logger) http.Handler {
	h := &ResultsHandler{store: store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /v1/tiers", h.tiers)
	mux.HandleFunc("GET /v1/tiers/{id}", h.tier)
	mux.HandleFunc("GET /v1/matches", h.matches)
	mux.HandleFunc("GET /v1/matches/{id}", h.match)
	return mux
}

type healthResponse struct {
	Status string `json:"status"`
}

type tiersResponse struct {
	GeneratedAt   string                 `json:"generatedAt"`
	DecodeVersion string                 `json:"decodeVersion"`
	Stats         model.RunStats         `json:"stats"`
	Resolutions   []model.TierResolution `json:"resolutions"`
}

type matchesResponse struct {
	GeneratedAt string              `json:"generatedAt"`
	FromBlock   uint64              `json:"fromBlock"`
	ToBlock     uint64              `json:"toBlock"`
	Stats       model.JoinStats     `json:"stats"`
	Records     []model.MatchRecord `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *ResultsHandler) health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// tiers lists resolutions, optionally filtered by ?tier=10|20|unknown.
func (h *ResultsHandler) tiers(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.report(w)
	if !ok {
		return
	}

	out := doc.Resolutions
	if raw := r.URL.Query().Get("tier"); raw != "" {
		var want model.Tier
		err := json.Unmarshal([]byte(`"`+raw+`"`), &want)
		if err != nil || (!want.Known() && raw != "unknown") {
			h.write(w, http.StatusBadRequest, errorResponse{Error: "tier must be 10, 20 or unknown"})
			return
		}
		out = make([]model.TierResolution, 0, len(doc.Resolutions))
		for _, res := range doc.Resolutions {
			if res.Tier == want {
				out = append(out, res)
			}
		}
	}

	h.write(w, http.StatusOK, tiersResponse{
		GeneratedAt:   doc.GeneratedAt.UTC().Format(timeLayout),
		DecodeVersion: doc.DecodeVersion,
		Stats:         doc.Stats,
		Resolutions:   out,
	})
}

func (h *ResultsHandler) tier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identifier(w, r)
	if !ok {
		return
	}
	doc, ok := h.report(w)
	if !ok {
		return
	}
	for _, res := range doc.Resolutions {
		if res.Identifier == id {
			h.write(w, http.StatusOK, res)
			return
		}
	}
	h.write(w, http.StatusNotFound, errorResponse{Error: "identifier not resolved"})
}

// matches lists match records, optionally filtered by ?player= and ?join=.
func (h *ResultsHandler) matches(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.matchDocument(w)
	if !ok {
		return
	}

	player := model.NormalizeAddress(r.URL.Query().Get("player"))
	join := model.JoinState(strings.TrimSpace(r.URL.Query().Get("join")))

	out := make([]model.MatchRecord, 0, len(doc.Records))
	for _, rec := range doc.Records {
		if player != "" && !rec.HasPlayer(player) {
			continue
		}
		if join != "" && rec.Join != join {
			continue
		}
		out = append(out, rec)
	}

	h.write(w, http.StatusOK, matchesResponse{
		GeneratedAt: doc.GeneratedAt.UTC().Format(timeLayout),
		FromBlock:   doc.FromBlock,
		ToBlock:     doc.ToBlock,
		Stats:       doc.Stats,
		Records:     out,
	})
}

func (h *ResultsHandler) match(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identifier(w, r)
	if !ok {
		return
	}
	doc, ok := h.matchDocument(w)
	if !ok {
		return
	}
	out := make([]model.MatchRecord, 0, 1)
	for _, rec := range doc.Records {
		if rec.MatchID == id {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		h.write(w, http.StatusNotFound, errorResponse{Error: "match not found"})
		return
	}
	h.write(w, http.StatusOK, out)
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func (h *ResultsHandler) identifier(w http.ResponseWriter, r *http.Request) (model.Identifier, bool) {
	v, err := safe.ParseUint64(r.PathValue("id"))
	if err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{Error: "id must be an unsigned integer"})
		return 0, false
	}
	return model.Identifier(v), true
}

func (h *ResultsHandler) report(w http.ResponseWriter) (artifact.ReportDocument, bool) {
	doc, err := h.store.Report()
	if err != nil {
		h.fail(w, "load report", err)
		return artifact.ReportDocument{}, false
	}
	return doc, true
}

func (h *ResultsHandler) matchDocument(w http.ResponseWriter) (artifact.MatchDocument, bool) {
	doc, err := h.store.Matches()
	if err != nil {
		h.fail(w, "load matches", err)
		return artifact.MatchDocument{}, false
	}
	return doc, true
}

func (h *ResultsHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		h.write(w, http.StatusServiceUnavailable, errorResponse{Error: "results not generated yet"})
	case errors.Is(err, artifact.ErrSchemaMismatch):
		h.logger.Error(op, zap.Error(err))
		h.write(w, http.StatusInternalServerError, errorResponse{Error: "unsupported document schema"})
	default:
		h.logger.Error(op, zap.Error(err))
		h.write(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *ResultsHandler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"

	"github.com/nicktill/linecsv/pkg/config"
	"github.com/nicktill/linecsv/pkg/convert"
	"github.com/nicktill/linecsv/pkg/httpx"
	"github.com/nicktill/linecsv/pkg/storage"
)

var startTime = time.Now()

// Handler serves the conversion API.
type Handler struct {
	store        storage.Storage
	hub          *ConversionHub
	maxBodyBytes int64
}

// NewHandler creates a conversion API handler. hub may be nil when no
// live event stream is wanted (tests, CLI embedding).
func NewHandler(store storage.Storage, hub *ConversionHub) *Handler {
	return &Handler{
		store:        store,
		hub:          hub,
		maxBodyBytes: config.DefaultMaxBodyBytes,
	}
}

// SetMaxBodyBytes overrides the per-request document size cap.
func (h *Handler) SetMaxBodyBytes(n int64) {
	if n > 0 {
		h.maxBodyBytes = n
	}
}

// ConversionMeta is the JSON projection of a stored conversion. The CSV
// payload itself is fetched separately via /v1/conversions/{hash}.
type ConversionMeta struct {
	Hash      string    `json:"hash"`
	Source    string    `json:"source,omitempty"`
	Points    int       `json:"points"`
	Skipped   int       `json:"skipped"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func metaFromConversion(c storage.Conversion) ConversionMeta {
	return ConversionMeta{
		Hash:      hashString(c.Hash),
		Source:    c.Source,
		Points:    c.Points,
		Skipped:   c.Skipped,
		SizeBytes: len(c.CSV),
		CreatedAt: c.CreatedAt,
	}
}

// HandleConvert handles POST /v1/convert.
//
// The request body is a line protocol document (text/plain). The response
// is the CSV conversion, or 204 No Content when the document held no valid
// records. Results are cached by content hash: a repeated document is
// served from storage without re-converting.
//
// Response headers: X-Linecsv-Hash, X-Linecsv-Points, X-Linecsv-Skipped,
// X-Linecsv-Cache (hit|miss).
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.ConvertTimeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		httpx.RespondErrorString(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("document exceeds %d byte limit", h.maxBodyBytes))
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "http"
	}

	hash := xxhash.Sum64(body)

	// Content-hash cache: an already-converted document is served as-is
	if cached, err := h.store.Get(ctx, hash); err == nil {
		h.broadcast(cached, true)
		writeConversion(w, cached, "hit")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Cache lookup failed for %s: %v", hashString(hash), err)
	}

	result, err := convert.Convert(string(body))
	if errors.Is(err, convert.ErrNoData) {
		w.Header().Set("X-Linecsv-Hash", hashString(hash))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Printf("Conversion failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	conv := storage.Conversion{
		Hash:      hash,
		Source:    source,
		CSV:       []byte(result.CSV),
		Points:    result.Points,
		Skipped:   result.Skipped,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Put(ctx, conv); err != nil {
		// The conversion itself succeeded; a failed cache write is not
		// worth failing the request over
		log.Printf("Failed to store conversion %s: %v", hashString(hash), err)
	}

	h.broadcast(conv, false)
	writeConversion(w, conv, "miss")
}

// HandleGetConversion handles GET /v1/conversions/{hash}.
func (h *Handler) HandleGetConversion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.ListTimeout)
	defer cancel()

	hash, err := parseHash(mux.Vars(r)["hash"])
	if err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "invalid conversion hash")
		return
	}

	conv, err := h.store.Get(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		httpx.RespondErrorString(w, http.StatusNotFound, "conversion not found")
		return
	}
	if err != nil {
		log.Printf("Failed to load conversion %s: %v", hashString(hash), err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	writeConversion(w, conv, "")
}

// HandleListConversions handles GET /v1/conversions.
// Query params:
//   - limit: max results (default 100, capped at 1000)
//   - since: RFC3339 lower bound on creation time (optional)
func (h *Handler) HandleListConversions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.ListTimeout)
	defer cancel()

	req := storage.ListRequest{Limit: config.DefaultListLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpx.RespondErrorString(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > config.MaxListLimit {
			limit = config.MaxListLimit
		}
		req.Limit = limit
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.RespondErrorString(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		req.Since = since
	}

	conversions, err := h.store.List(ctx, req)
	if err != nil {
		log.Printf("Failed to list conversions: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	metas := make([]ConversionMeta, 0, len(conversions))
	for _, c := range conversions {
		metas = append(metas, metaFromConversion(c))
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversions": metas,
		"count":       len(metas),
	})
}

// HandleStats handles GET /v1/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StatsTimeout)
	defer cancel()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		log.Printf("Failed to compute stats: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"total_conversions": stats.TotalConversions,
		"total_points":      stats.TotalPoints,
		"size_bytes":        stats.SizeBytes,
		"oldest":            stats.OldestConversion,
		"newest":            stats.NewestConversion,
	})
}

// HandleHealth handles GET /v1/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  time.Since(startTime).String(),
	})
}

func (h *Handler) broadcast(c storage.Conversion, cached bool) {
	if h.hub == nil {
		return
	}
	event := ConversionEvent{
		Type:      "conversion",
		Hash:      hashString(c.Hash),
		Source:    c.Source,
		Points:    c.Points,
		Skipped:   c.Skipped,
		Cached:    cached,
		Timestamp: time.Now().Unix(),
	}
	if err := h.hub.Broadcast(event); err != nil {
		log.Printf("Failed to broadcast conversion event: %v", err)
	}
}

// writeConversion serves a stored conversion as CSV. cache is "hit" or
// "miss" on the convert endpoint, empty elsewhere.
func writeConversion(w http.ResponseWriter, c storage.Conversion, cache string) {
	w.Header().Set("X-Linecsv-Hash", hashString(c.Hash))
	w.Header().Set("X-Linecsv-Points", strconv.Itoa(c.Points))
	w.Header().Set("X-Linecsv-Skipped", strconv.Itoa(c.Skipped))
	if cache != "" {
		w.Header().Set("X-Linecsv-Cache", cache)
	}
	httpx.RespondCSV(w, http.StatusOK, c.CSV)
}

// hashString renders a content hash the way it appears in URLs: lowercase hex.
func hashString(hash uint64) string {
	return strconv.FormatUint(hash, 16)
}

func parseHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// Package handlers provides HTTP handlers for universe selection.
package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tradepath/internal/modules/universe"
	"github.com/rs/zerolog"
)

// Handler handles universe HTTP requests
type Handler struct {
	selector *universe.Selector
	log      zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(selector *universe.Selector, log zerolog.Logger) *Handler {
	return &Handler{
		selector: selector,
		log:      log.With().Str("handler", "universe").Logger(),
	}
}

// HandleSelect handles GET /api/universe
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period := universe.Classification(q.Get("period"))
	if period == "" {
		period = universe.ClassMixed
	}
	if period != universe.ClassShort && period != universe.ClassLong && period != universe.ClassMixed {
		http.Error(w, "period must be short, long or mixed", http.StatusBadRequest)
		return
	}

	count := universe.DefaultCount
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = n
	}

	seed := time.Now().UnixNano()
	if raw := q.Get("seed"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "seed must be an integer", http.StatusBadRequest)
			return
		}
		seed = n
	}

	symbols := h.selector.Select(period, count, rand.New(rand.NewSource(seed)))

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"period":  period,
			"count":   len(symbols),
			"seed":    seed,
			"symbols": symbols,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCatalog handles GET /api/universe/catalog
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	instruments := h.selector.Catalog().Instruments
	if period := universe.Classification(r.URL.Query().Get("period")); period != "" {
		instruments = h.selector.Catalog().Filter(period)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"instruments": instruments,
			"count":       len(instruments),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

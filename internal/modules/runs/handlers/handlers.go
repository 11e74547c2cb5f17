// Package handlers provides HTTP handlers for simulation runs.
package handlers

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/modules/runs"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/aristath/tradepath/internal/modules/universe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Submitter starts runs in the background
type Submitter interface {
	Submit(req simulation.Request, maxSymbols int) (*runs.Run, error)
}

// Reader reads stored runs
type Reader interface {
	Get(id string) (*runs.Run, error)
	List(limit int) ([]runs.Run, error)
	Actions(id string) ([]domain.LogEntry, error)
}

// Handler handles simulation HTTP requests
type Handler struct {
	submitter  Submitter
	reader     Reader
	selector   *universe.Selector
	events     *events.Manager
	log        zerolog.Logger
	maxSymbols int
	heartbeat  time.Duration
}

// NewHandler creates a new simulation handler
func NewHandler(
	submitter Submitter,
	reader Reader,
	selector *universe.Selector,
	em *events.Manager,
	maxSymbols int,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		submitter:  submitter,
		reader:     reader,
		selector:   selector,
		events:     em,
		maxSymbols: maxSymbols,
		heartbeat:  heartbeatEvery,
		log:        log.With().Str("handler", "simulations").Logger(),
	}
}

// SimulationRequest is the POST /api/simulations body.
// Symbols are drawn from the catalog when omitted.
type SimulationRequest struct {
	Seed              *int64   `json:"seed,omitempty"`
	Class             string   `json:"class,omitempty"`
	TerminationSymbol string   `json:"termination_symbol,omitempty"`
	Symbols           []string `json:"symbols,omitempty"`
	Capital           float64  `json:"capital"`
	Years             int      `json:"years"`
	Months            int      `json:"months"`
	Count             int      `json:"count,omitempty"`
	SellAtOnce        *bool    `json:"sell_at_once,omitempty"`
	Contribution      float64  `json:"contribution,omitempty"`
	ContributionEvery int      `json:"contribution_every,omitempty"`
}

// HandleCreate handles POST /api/simulations
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := simulation.Request{
		Class:             universe.Classification(body.Class),
		TerminationSymbol: body.TerminationSymbol,
		Symbols:           body.Symbols,
		Capital:           body.Capital,
		Years:             body.Years,
		Months:            body.Months,
		SellAtOnce:        body.SellAtOnce,
		Contribution:      body.Contribution,
		ContributionEvery: body.ContributionEvery,
	}

	if len(req.Symbols) == 0 && h.selector != nil && body.Years >= 0 && body.Months >= 0 {
		seed := time.Now().UnixNano()
		if body.Seed != nil {
			seed = *body.Seed
		}
		period := universe.InvestmentPeriod(body.Years, body.Months)
		req.Symbols = h.selector.Select(period, body.Count, rand.New(rand.NewSource(seed)))
	}

	run, err := h.submitter.Submit(req, h.maxSymbols)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, runs.ErrShuttingDown) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.log.Error().Err(err).Msg("Failed to submit simulation")
		http.Error(w, "Failed to submit simulation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, envelope(run))
}

// HandleList handles GET /api/simulations
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.reader.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list simulations")
		http.Error(w, "Failed to list simulations", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []runs.Run{}
	}

	h.writeJSON(w, http.StatusOK, envelope(list))
}

// HandleGet handles GET /api/simulations/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.reader.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleActions handles GET /api/simulations/{id}/actions
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.reader.Actions(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(actions))
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Simulation not found", http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg("Failed to read simulation")
	http.Error(w, "Failed to read simulation", http.StatusInternalServerError)
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

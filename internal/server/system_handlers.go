package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/tradepath/internal/database"
	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Health statuses
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// SystemHandlers serves health, status and job endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	breakers  []Breaker
	scheduler *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	events    *events.Manager
	startedAt time.Time
	// stats is swapped in tests to avoid sampling the host
	stats func() (float64, float64)
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	databases []*database.DB,
	breakers []Breaker,
	sched *scheduler.Scheduler,
	jobs []scheduler.Job,
	em *events.Manager,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		databases: databases,
		breakers:  breakers,
		scheduler: sched,
		jobs:      make(map[string]scheduler.Job, len(jobs)),
		events:    em,
		startedAt: time.Now(),
	}
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
	h.stats = h.getSystemStats
	return h
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Databases map[string]string `json:"databases"`
	Breakers  map[string]string `json:"breakers"`
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	CPUPct    float64           `json:"cpu_percent"`
	MemoryPct float64           `json:"memory_percent"`
}

// HandleHealth handles GET /health.
// Unreachable databases or an open breaker report degraded with status 503.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    StatusHealthy,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Databases: make(map[string]string, len(h.databases)),
		Breakers:  make(map[string]string, len(h.breakers)),
	}
	response.CPUPct, response.MemoryPct = h.stats()

	for _, db := range h.databases {
		if err := db.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			response.Databases[db.Name()] = err.Error()
			response.Status = StatusDegraded
			continue
		}
		response.Databases[db.Name()] = "ok"
	}

	for _, b := range h.breakers {
		state := b.BreakerState()
		response.Breakers[b.Name()] = state
		if state == "open" {
			response.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if response.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	dbStats := make(map[string]*database.Stats, len(h.databases))
	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}
		dbStats[db.Name()] = stats
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	subscribers := 0
	if h.events != nil {
		subscribers = h.events.Subscribers()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"uptime_seconds":    int64(time.Since(h.startedAt).Seconds()),
			"goroutines":        runtime.NumGoroutine(),
			"heap_alloc_mb":     float64(memStats.HeapAlloc) / 1024 / 1024,
			"databases":         dbStats,
			"event_subscribers": subscribers,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": names,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed",
	})
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

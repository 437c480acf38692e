package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/MissionForge/internal/domain/job"
	"github.com/Strob0t/MissionForge/internal/domain/mission"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
	"github.com/Strob0t/MissionForge/internal/service"
)

// Handlers holds the services the HTTP layer delegates to.
type Handlers struct {
	scheduler *service.SchedulerService
	card      tier.RateCard
}

// NewHandlers creates the handler set.
func NewHandlers(scheduler *service.SchedulerService, card tier.RateCard) *Handlers {
	return &Handlers{scheduler: scheduler, card: card}
}

// SubmitMission accepts a mission spec, validates it, and returns the job
// ID. The mission itself runs asynchronously.
func (h *Handlers) SubmitMission(w http.ResponseWriter, r *http.Request) {
	spec, ok := readJSON[mission.Spec](w, r)
	if !ok {
		return
	}

	jobID, err := h.scheduler.Submit(r.Context(), spec)
	if err != nil {
		writeDomainError(w, err, "mission not accepted")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// ListJobs returns all jobs, optionally filtered by ?status=.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := job.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	jobs, err := h.scheduler.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, err, "jobs unavailable")
		return
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob returns one job record including its mission summary when done.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.scheduler.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// CancelJob requests cooperative cancellation. The response reports
// whether the request landed; the job still finishes its in-flight round.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	requested, err := h.scheduler.Cancel(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	if !requested {
		writeError(w, http.StatusConflict, "job already finished")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancel_requested": true})
}

// RerunJob submits a fresh job with the original spec.
func (h *Handlers) RerunJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.scheduler.Rerun(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type logResponse struct {
	Lines  []string `json:"lines"`
	Cursor int      `json:"cursor"`
}

// StreamJobLog returns log lines at or after ?cursor= plus the cursor to
// poll next. Clients loop on this endpoint for live output.
func (h *Handlers) StreamJobLog(w http.ResponseWriter, r *http.Request) {
	cursor := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "cursor must be a non-negative integer")
			return
		}
		cursor = n
	}

	lines, next, err := h.scheduler.StreamLog(r.Context(), urlParam(r, "id"), cursor)
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, logResponse{Lines: lines, Cursor: next})
}

type estimateRequest struct {
	Mode       mission.Mode    `json:"mode"`
	Rounds     int             `json:"rounds"`
	Complexity tier.Complexity `json:"complexity"`
	Important  bool            `json:"important"`
	AvgIn      int64           `json:"avg_units_in"`
	AvgOut     int64           `json:"avg_units_out"`
}

type estimateResponse struct {
	Rounds   []float64 `json:"rounds_usd"`
	TotalUSD float64   `json:"total_usd"`
}

// EstimateCost projects the cost of a mission before submission. The tier
// policy is deterministic, so the projection matches the routing an
// actual run would use.
func (h *Handlers) EstimateCost(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[estimateRequest](w, r)
	if !ok {
		return
	}
	if req.Rounds < 1 || req.Rounds > mission.MaxRoundLimit {
		writeError(w, http.StatusBadRequest, "rounds must be between 1 and "+strconv.Itoa(mission.MaxRoundLimit))
		return
	}
	if req.Complexity == "" {
		req.Complexity = tier.ComplexityMedium
	}
	if req.AvgIn <= 0 {
		req.AvgIn = 2000
	}
	if req.AvgOut <= 0 {
		req.AvgOut = 1000
	}

	threePhase := req.Mode == mission.ModeThreePhase
	resp := estimateResponse{Rounds: make([]float64, 0, req.Rounds)}
	for round := 1; round <= req.Rounds; round++ {
		cost := tier.EstimateRound(h.card, round, req.Complexity, req.Important, threePhase, req.AvgIn, req.AvgOut)
		resp.Rounds = append(resp.Rounds, cost)
		resp.TotalUSD += cost
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

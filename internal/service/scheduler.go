package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	mfotel "github.com/Strob0t/MissionForge/internal/adapter/otel"
	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/job"
	"github.com/Strob0t/MissionForge/internal/domain/mission"
	"github.com/Strob0t/MissionForge/internal/port/broadcast"
	"github.com/Strob0t/MissionForge/internal/port/jobstore"
	"github.com/Strob0t/MissionForge/internal/port/missionlog"
)

// SchedulerService owns the job lifecycle: it wraps each mission in an
// asynchronous, cancellable, crash-recoverable job. Every job is driven by
// exactly one worker goroutine; the store never sees two writers for the
// same job ID.
type SchedulerService struct {
	store    jobstore.Store
	engine   *MissionEngine
	hub      broadcast.Broadcaster
	sink     missionlog.Sink
	defaults config.Mission
	workers  *semaphore.Weighted
	metrics  *mfotel.Metrics

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	tokens map[string]*CancelToken
}

// NewSchedulerService creates a scheduler. maxWorkers bounds how many
// missions run concurrently; submissions beyond that stay queued until a
// slot frees up.
func NewSchedulerService(
	store jobstore.Store,
	engine *MissionEngine,
	hub broadcast.Broadcaster,
	sink missionlog.Sink,
	cfg config.Scheduler,
	defaults config.Mission,
) *SchedulerService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SchedulerService{
		store:    store,
		engine:   engine,
		hub:      hub,
		sink:     sink,
		defaults: defaults,
		workers:  semaphore.NewWeighted(int64(maxWorkers)),
		baseCtx:  ctx,
		stop:     cancel,
		tokens:   make(map[string]*CancelToken),
	}
}

// SetMetrics attaches metric instruments. Optional; a nil receiver field
// disables recording.
func (s *SchedulerService) SetMetrics(m *mfotel.Metrics) {
	s.metrics = m
}

// Submit validates the spec, persists a queued job, and hands it to a
// worker running concurrently with the caller. Malformed specs are
// rejected synchronously before any work starts.
func (s *SchedulerService) Submit(ctx context.Context, spec mission.Spec) (string, error) {
	s.applyDefaults(&spec)
	if err := spec.Validate(); err != nil {
		return "", err
	}

	j := &job.Job{
		ID:        uuid.NewString(),
		Spec:      spec,
		Status:    job.StatusQueued,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveJob(ctx, j); err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}

	s.launch(j)
	slog.Info("job submitted", "job_id", j.ID, "mode", spec.Mode, "round_limit", spec.RoundLimit)
	return j.ID, nil
}

// Cancel sets the job's cooperative cancellation flag. The worker checks
// it between rounds, never mid-call, so the job terminates at or before
// the next round boundary. Returns false when the job is already terminal
// or has no live worker.
func (s *SchedulerService) Cancel(ctx context.Context, jobID string) (bool, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if j.Status.IsTerminal() {
		return false, nil
	}

	s.mu.Lock()
	token, live := s.tokens[jobID]
	s.mu.Unlock()
	if !live {
		return false, nil
	}

	token.Cancel()
	slog.Info("job cancellation requested", "job_id", jobID)
	return true, nil
}

// Get returns the job record.
func (s *SchedulerService) Get(ctx context.Context, jobID string) (*job.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// List returns all jobs, optionally filtered by status.
func (s *SchedulerService) List(ctx context.Context, status job.Status) ([]job.Job, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return jobs, nil
	}
	filtered := jobs[:0]
	for _, j := range jobs {
		if j.Status == status {
			filtered = append(filtered, j)
		}
	}
	return filtered, nil
}

// StreamLog returns log lines at or after cursor plus the next cursor.
// Safe to poll repeatedly.
func (s *SchedulerService) StreamLog(ctx context.Context, jobID string, cursor int) ([]string, int, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, 0, err
	}
	return s.store.ReadLog(ctx, jobID, cursor)
}

// Rerun submits a new job with the original spec unchanged. The new job
// gets its own mission and a fresh ledger starting at zero.
func (s *SchedulerService) Rerun(ctx context.Context, jobID string) (string, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return s.Submit(ctx, j.Spec)
}

// Reconcile repairs state after a process restart: jobs found running
// have no live worker anymore and are failed with reason "interrupted";
// jobs still queued never started and are handed to fresh workers.
// Must be called before the scheduler accepts new submissions.
func (s *SchedulerService) Reconcile(ctx context.Context) error {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	for i := range jobs {
		j := jobs[i]
		switch j.Status {
		case job.StatusRunning:
			s.mu.Lock()
			_, live := s.tokens[j.ID]
			s.mu.Unlock()
			if live {
				continue
			}
			j.Status = job.StatusFailed
			j.Reason = job.ReasonInterrupted
			now := time.Now()
			j.FinishedAt = &now
			if err := s.store.SaveJob(ctx, &j); err != nil {
				slog.Error("reconcile persist failed", "job_id", j.ID, "error", err)
				continue
			}
			slog.Warn("job reconciled after restart", "job_id", j.ID)
		case job.StatusQueued:
			s.mu.Lock()
			_, live := s.tokens[j.ID]
			s.mu.Unlock()
			if !live {
				s.launch(&j)
				slog.Info("queued job re-launched after restart", "job_id", j.ID)
			}
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for in-flight workers until ctx
// expires. Workers interrupted mid-run are reconciled at next startup.
func (s *SchedulerService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.stop()
		return nil
	case <-ctx.Done():
		s.stop()
		return ctx.Err()
	}
}

func (s *SchedulerService) applyDefaults(spec *mission.Spec) {
	if spec.Mode == "" {
		spec.Mode = mission.ModeTwoPhase
	}
	if spec.RoundLimit == 0 {
		spec.RoundLimit = s.defaults.DefaultRoundLimit
	}
	if spec.HardCapUSD == 0 {
		spec.HardCapUSD = s.defaults.DefaultHardCapUSD
	}
	if spec.WarningUSD == 0 {
		spec.WarningUSD = s.defaults.DefaultWarningUSD
	}
}

// launch registers a cancel token and starts the worker goroutine.
func (s *SchedulerService) launch(j *job.Job) {
	token := &CancelToken{}
	s.mu.Lock()
	s.tokens[j.ID] = token
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runJob(j, token)
}

// runJob owns the job for its whole lifetime. Job state is persisted at
// every transition, bounding crash data loss to one in-flight round.
func (s *SchedulerService) runJob(j *job.Job, token *CancelToken) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.tokens, j.ID)
		s.mu.Unlock()
	}()

	ctx := s.baseCtx
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return // shutting down before the job got a slot
	}
	defer s.workers.Release(1)

	if token.Cancelled() {
		s.finalize(ctx, j, job.StatusCancelled, mission.ReasonCancelled, nil)
		return
	}

	now := time.Now()
	j.Status = job.StatusRunning
	j.StartedAt = &now
	s.persist(ctx, j)
	s.broadcastStatus(ctx, j)
	s.appendLog(ctx, j.ID, "job started")

	if s.metrics != nil {
		s.metrics.MissionsStarted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mission.project", j.Spec.Project)))
	}

	logf := func(line string) {
		s.appendLog(ctx, j.ID, line)
	}
	spanCtx, span := mfotel.StartMissionSpan(ctx, "", j.ID, j.Spec.Project)
	m := s.engine.Run(spanCtx, j.Spec, token, logf)

	summary := m.Summary()
	status, reason := jobOutcome(m)
	j.MissionID = m.ID

	span.SetAttributes(
		attribute.String("mission.id", m.ID),
		attribute.String("mission.status", string(m.Status)),
		attribute.Int("mission.rounds", len(m.Rounds)),
		attribute.Float64("mission.cost_usd", summary.Budget.TotalCostUSD),
	)
	if status == job.StatusFailed {
		span.SetStatus(codes.Error, reason)
	}
	span.End()

	s.recordOutcome(ctx, m, &summary)
	s.finalize(ctx, j, status, reason, &summary)
}

func (s *SchedulerService) recordOutcome(ctx context.Context, m *mission.Mission, summary *mission.Summary) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mission.project", m.Project),
		attribute.String("mission.status", string(m.Status)),
	)
	if m.Status == mission.StatusApproved {
		s.metrics.MissionsApproved.Add(ctx, 1, attrs)
	} else {
		s.metrics.MissionsFailed.Add(ctx, 1, attrs)
	}
	s.metrics.MissionCost.Record(ctx, summary.Budget.TotalCostUSD, attrs)
	s.metrics.MissionRounds.Record(ctx, int64(len(m.Rounds)), attrs)
	if m.FinishedAt != nil {
		s.metrics.MissionDuration.Record(ctx, m.FinishedAt.Sub(m.StartedAt).Seconds(), attrs)
	}
	s.metrics.GenerationCalls.Add(ctx, int64(summary.Budget.CallCount), attrs)
}

// jobOutcome maps a mission's terminal state to the job's.
func jobOutcome(m *mission.Mission) (job.Status, string) {
	switch m.Status {
	case mission.StatusApproved:
		return job.StatusCompleted, mission.ReasonApproved
	case mission.StatusCancelled:
		return job.StatusCancelled, mission.ReasonCancelled
	default:
		return job.StatusFailed, m.Reason
	}
}

func (s *SchedulerService) finalize(ctx context.Context, j *job.Job, status job.Status, reason string, summary *mission.Summary) {
	if !j.Status.CanTransition(status) {
		slog.Error("illegal job transition", "job_id", j.ID, "from", j.Status, "to", status)
		return
	}
	now := time.Now()
	j.Status = status
	j.Reason = reason
	j.Result = summary
	j.FinishedAt = &now
	s.persist(ctx, j)
	s.broadcastStatus(ctx, j)
	s.appendLog(ctx, j.ID, fmt.Sprintf("job finished: status=%s reason=%q", status, reason))

	if summary != nil && s.sink != nil {
		if err := s.sink.RecordMission(ctx, *summary); err != nil {
			slog.Warn("mission log sink failed", "job_id", j.ID, "error", err)
		}
	}
}

// persist writes the job record. Failures are logged and retried at the
// next transition; startup reconciliation repairs a lost terminal write.
func (s *SchedulerService) persist(ctx context.Context, j *job.Job) {
	if err := s.store.SaveJob(ctx, j); err != nil {
		slog.Error("job persist failed", "job_id", j.ID, "status", j.Status, "error", err)
	}
}

func (s *SchedulerService) appendLog(ctx context.Context, jobID, line string) {
	if err := s.store.AppendLog(ctx, jobID, line); err != nil {
		slog.Warn("job log append failed", "job_id", jobID, "error", err)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventJobLog, broadcast.JobLogEvent{JobID: jobID, Line: line})
	}
}

func (s *SchedulerService) broadcastStatus(ctx context.Context, j *job.Job) {
	if s.hub == nil {
		return
	}
	ev := broadcast.JobStatusEvent{
		JobID:     j.ID,
		MissionID: j.MissionID,
		Status:    string(j.Status),
		Reason:    j.Reason,
	}
	if j.Result != nil {
		ev.CostUSD = j.Result.Budget.TotalCostUSD
		ev.Rounds = j.Result.RoundCount
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventJobStatus, ev)
}

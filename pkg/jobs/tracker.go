// Package jobs runs ingestion in the background and keeps its status
// observable.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/metrics"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// State is a job's lifecycle position: queued, running, then completed or
// failed.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Finished reports whether s is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed
}

// DefaultRetention bounds how many jobs are remembered.
const DefaultRetention = 1000

// Job is a snapshot of one ingestion run. Row failures are counted in Failed;
// State is failed only when the run could not proceed at all.
type Job struct {
	ID           string     `json:"id"`
	ListingSetID string     `json:"listing_set_id"`
	Owner        string     `json:"owner_username"`
	State        State      `json:"state"`
	Ingested     int        `json:"ingested"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunFunc performs the ingestion, reporting progress as it goes.
type RunFunc func(ctx context.Context, progress ingest.ProgressFunc) (ingest.Result, error)

// Config configures a Tracker.
type Config struct {
	Workers   int
	QueueSize int
	Retention int
}

// Tracker queues jobs on a worker pool and records their state.
type Tracker struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	order     []string
	retention int

	pool    *WorkerPool
	ctx     context.Context
	cancel  context.CancelFunc
	logger  logging.Logger
	metrics *metrics.Registry

	now   func() time.Time
	newID func() string
}

// NewTracker starts the worker pool. logger and reg may be nil.
func NewTracker(cfg Config, logger logging.Logger, reg *metrics.Registry) *Tracker {
	logger = logging.OrNop(logger).With(logging.Component("jobs"))
	ctx, cancel := context.WithCancel(context.Background())
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Tracker{
		jobs:      make(map[string]*Job),
		retention: retention,
		pool:      NewWorkerPool(cfg.Workers, cfg.QueueSize, logger),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		metrics:   reg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Submit records a queued job and hands run to the pool. The caller does not
// wait for it. If the pool refuses the job it is recorded as failed and the
// refusal is returned with it.
func (t *Tracker) Submit(owner, listingSetID string, run RunFunc) (Job, error) {
	job := &Job{
		ID:           t.newID(),
		ListingSetID: listingSetID,
		Owner:        owner,
		State:        StateQueued,
		CreatedAt:    t.now(),
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.order = append(t.order, job.ID)
	t.evictLocked()
	t.mu.Unlock()
	t.record(StateQueued)

	log := t.logger.With(logging.JobID(job.ID), logging.ListingSetID(listingSetID))
	log.Info("job queued", logging.Username(owner))

	if err := t.pool.Submit(func() { t.execute(job.ID, log, run) }); err != nil {
		t.finish(job.ID, ingest.Result{}, err)
		log.Error("job rejected", logging.Error(err))
		snapshot, _ := t.Get(job.ID)
		return snapshot, err
	}

	snapshot, _ := t.Get(job.ID)
	return snapshot, nil
}

func (t *Tracker) execute(id string, log logging.Logger, run RunFunc) {
	t.update(id, func(j *Job) {
		started := t.now()
		j.State = StateRunning
		j.StartedAt = &started
	})
	t.record(StateRunning)
	log.Info("job started")

	result, err := run(t.ctx, func(_ int, _ ingest.Outcome, tally ingest.Result, _ error) {
		t.update(id, func(j *Job) { setCounts(j, tally) })
	})
	t.finish(id, result, err)

	if err != nil {
		log.Error("job failed", logging.Error(err))
		return
	}
	log.Info("job completed",
		logging.Int("ingested", result.Ingested),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed))
}

func (t *Tracker) finish(id string, result ingest.Result, err error) {
	state := StateCompleted
	t.update(id, func(j *Job) {
		finished := t.now()
		setCounts(j, result)
		j.FinishedAt = &finished
		if err != nil {
			state = StateFailed
			j.Error = err.Error()
		}
		j.State = state
	})
	t.record(state)
}

func setCounts(j *Job, r ingest.Result) {
	j.Ingested, j.Skipped, j.Failed = r.Ingested, r.Skipped, r.Failed
}

func (t *Tracker) update(id string, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok {
		fn(j)
	}
}

func (t *Tracker) record(state State) {
	if t.metrics != nil {
		t.metrics.RecordJobState(string(state))
	}
}

// evictLocked drops the oldest finished jobs beyond the retention limit.
// Unfinished jobs are never evicted.
func (t *Tracker) evictLocked() {
	excess := len(t.order) - t.retention
	if excess <= 0 {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if excess > 0 && t.jobs[id].State.Finished() {
			delete(t.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// GetForOwner returns the job only if owner submitted it. Any other caller
// gets schema.ErrNotFound, as for an unknown id.
func (t *Tracker) GetForOwner(id, owner string) (Job, error) {
	j, ok := t.Get(id)
	if !ok || j.Owner != owner {
		return Job{}, schema.NotFoundf("job %s", id)
	}
	return j, nil
}

// List returns the owner's jobs, newest first.
func (t *Tracker) List(owner string) []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Job, 0)
	for i := len(t.order) - 1; i >= 0; i-- {
		if j := t.jobs[t.order[i]]; j.Owner == owner {
			out = append(out, *j)
		}
	}
	return out
}

// Close stops accepting jobs and waits for queued and running ones. If ctx
// ends first, running jobs are cancelled and ctx's error returned.
func (t *Tracker) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return ctx.Err()
	}
}

// Pending is the number of queued jobs not yet picked up by a worker.
func (t *Tracker) Pending() int {
	return t.pool.Pending()
}

// QueueCapacity is how many jobs can wait before Submit is refused.
func (t *Tracker) QueueCapacity() int {
	return t.pool.Capacity()
}

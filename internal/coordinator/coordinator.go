package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/notifications"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

// Coordinator owns job dispatch and execution. It validates transitions,
// creates job rows, runs executors in bounded worker goroutines, and persists
// the combined listing/asset/job outcome atomically when a stage finishes.
type Coordinator struct {
	cfg       *config.Config
	store     *catalog.Store
	executors *stage.Set
	notifier  notifications.Service
	logger    *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New constructs a coordinator with a worker pool sized from configuration.
func New(cfg *config.Config, store *catalog.Store, executors *stage.Set, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	limit := cfg.Workflow.MaxConcurrentJobs
	if limit <= 0 {
		limit = 1
	}
	return &Coordinator{
		cfg:       cfg,
		store:     store,
		executors: executors,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "coordinator"),
		slots:     make(chan struct{}, limit),
	}
}

// Dispatch validates and starts a stage run for a listing. The job row is
// committed before the worker goroutine launches, so a successful return
// means the listing's exclusivity slot is held.
func (c *Coordinator) Dispatch(ctx context.Context, listingID int64, stageType pipeline.StageType) (*catalog.Job, error) {
	var (
		listing *catalog.Listing
		job     *catalog.Job
	)
	err := c.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		listing, txErr = tx.GetListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		job, txErr = c.Prepare(ctx, tx, listing, stageType)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	c.Start(job, listing)
	return job, nil
}

// Prepare validates the transition and inserts the queued job row inside the
// caller's transaction. The regeneration controller uses this directly so its
// invalidation writes and the job insert commit together.
func (c *Coordinator) Prepare(ctx context.Context, tx *catalog.Tx, listing *catalog.Listing, stageType pipeline.StageType) (*catalog.Job, error) {
	if _, ok := c.executors.Lookup(stageType); !ok {
		return nil, services.Wrap(services.ErrValidation, string(stageType), "dispatch",
			"no executor registered for stage", nil)
	}
	if !pipeline.CanTransition(listing.Status, listing.ErrorStage, stageType) {
		return nil, services.Wrap(services.ErrInvalidTransition, string(stageType), "dispatch",
			"listing status "+string(listing.Status)+" does not allow stage", nil)
	}

	job := &catalog.Job{
		ID:        uuid.NewString(),
		ListingID: listing.ID,
		StageType: stageType,
		Status:    catalog.JobQueued,
	}
	if err := tx.InsertJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Start hands a committed queued job to the worker pool.
func (c *Coordinator) Start(job *catalog.Job, listing *catalog.Listing) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.failUnstarted(job, listing)
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.slots <- struct{}{}
		defer func() { <-c.slots }()
		c.runJob(job, listing)
	}()
}

// Shutdown stops accepting work and waits for in-flight jobs to finish or the
// context to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports executor readiness in pipeline order.
func (c *Coordinator) Health(ctx context.Context) []stage.Health {
	return c.executors.Health(ctx)
}

func (c *Coordinator) failUnstarted(job *catalog.Job, listing *catalog.Listing) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.store.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.FailJob(ctx, job.ID, "failure", "coordinator shutting down")
	})
	if err != nil {
		c.logger.Error("failed to release job during shutdown",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (c *Coordinator) stageTimeout(stageType pipeline.StageType) time.Duration {
	var seconds int
	switch stageType {
	case pipeline.StageImageDownload:
		seconds = c.cfg.Stages.DownloadTimeout
	case pipeline.StageImageProcess:
		seconds = c.cfg.Stages.ProcessTimeout
	case pipeline.StageScriptGenerate:
		seconds = c.cfg.Stages.ScriptTimeout
	case pipeline.StageVoiceoverGenerate:
		seconds = c.cfg.Stages.VoiceoverTimeout
	case pipeline.StageQRGenerate:
		seconds = c.cfg.Stages.QRTimeout
	case pipeline.StageVideoCompose:
		seconds = c.cfg.Stages.ComposeTimeout
	}
	if seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

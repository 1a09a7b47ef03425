package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lotreel/internal/catalog"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

// runJob executes one committed job to its terminal state. It runs on a
// worker goroutine with its own lifetime: daemon shutdown waits for it rather
// than canceling it mid-write.
func (c *Coordinator) runJob(job *catalog.Job, listing *catalog.Listing) {
	ctx := services.WithListingID(context.Background(), listing.ID)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, string(job.StageType))
	jobLogger := logging.WithContext(ctx, c.logger)

	executor, ok := c.executors.Lookup(job.StageType)
	if !ok {
		c.completeFailure(ctx, jobLogger, job, listing, services.Wrap(services.ErrValidation,
			string(job.StageType), "run", "no executor registered for stage", nil))
		return
	}

	if err := c.store.MarkJobProcessing(ctx, job.ID); err != nil {
		jobLogger.Error("failed to mark job processing", logging.Error(err))
		return
	}

	// First stamp lands before the executor runs so even short jobs leave a
	// heartbeat behind; a row still active without a recent one after a
	// restart is an orphan.
	if err := c.store.UpdateJobHeartbeat(ctx, job.ID); err != nil {
		jobLogger.Warn("job heartbeat failed", logging.Error(err))
	}
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go c.heartbeatLoop(hbCtx, jobLogger, job.ID)

	req, err := c.buildRequest(ctx, job, listing)
	if err != nil {
		c.completeFailure(ctx, jobLogger, job, listing, err)
		return
	}

	if reporter, ok := executor.(stage.ProgressReporter); ok {
		reporter.SetProgressFunc(func(percent float64) {
			if err := c.store.UpdateJobProgress(ctx, job.ID, percent); err != nil {
				jobLogger.Debug("failed to persist job progress", logging.Error(err))
			}
		})
	}

	jobLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("listing", listing.DisplayName()))

	runCtx, cancel := context.WithTimeout(ctx, c.stageTimeout(job.StageType))
	defer cancel()

	started := time.Now()
	result, execErr := executor.Execute(runCtx, req)
	if execErr != nil {
		if errors.Is(execErr, context.DeadlineExceeded) && runCtx.Err() != nil {
			execErr = services.Wrap(services.ErrTimeout, string(job.StageType), "run",
				"stage exceeded its configured timeout", execErr)
		}
		c.completeFailure(ctx, jobLogger, job, listing, execErr)
		return
	}

	if err := c.completeSuccess(ctx, job, listing, req.Script, result); err != nil {
		jobLogger.Error("failed to persist stage result", logging.Error(err))
		return
	}

	jobLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("artifact", result.ArtifactPath),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)))

	c.notifySuccess(ctx, jobLogger, job.StageType, listing)
}

// heartbeatLoop keeps stamping the job's liveness until the run finishes.
func (c *Coordinator) heartbeatLoop(ctx context.Context, jobLogger *slog.Logger, jobID string) {
	interval := time.Duration(c.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.store.UpdateJobHeartbeat(ctx, jobID); err != nil && !errors.Is(err, context.Canceled) {
				jobLogger.Warn("job heartbeat failed", logging.Error(err))
			}
		}
	}
}

// buildRequest assembles the executor request, loading the live script
// document for the stages that consume it.
func (c *Coordinator) buildRequest(ctx context.Context, job *catalog.Job, listing *catalog.Listing) (stage.Request, error) {
	req := stage.Request{
		Listing:   listing,
		Job:       job,
		AssetsDir: c.cfg.ListingAssetDir(listing.DealerID, listing.StockNumber),
	}

	switch job.StageType {
	case pipeline.StageVoiceoverGenerate, pipeline.StageVideoCompose:
		script, err := c.store.GetScriptByListing(ctx, listing.ID)
		if err != nil {
			return req, err
		}
		req.Script = script
	}
	return req, nil
}

// completeSuccess commits the listing status transition, asset reference,
// any document rows, and the terminal job state in one transaction.
func (c *Coordinator) completeSuccess(ctx context.Context, job *catalog.Job, listing *catalog.Listing, script *catalog.Script, result stage.Result) error {
	return c.store.WithTx(ctx, func(tx *catalog.Tx) error {
		fresh, err := tx.GetListing(ctx, listing.ID)
		if err != nil {
			return err
		}

		applyArtifact(fresh, job.StageType, result)
		if produced, ok := pipeline.SuccessStatus(job.StageType); ok {
			fresh.Status = produced
		}
		fresh.ClearError()

		switch job.StageType {
		case pipeline.StageScriptGenerate:
			if err := upsertScript(ctx, tx, fresh.ID, result.ScriptContent); err != nil {
				return err
			}
		case pipeline.StageVideoCompose:
			video := &catalog.Video{
				ListingID:  fresh.ID,
				Path:       result.ArtifactPath,
				Duration:   result.Duration,
				Resolution: result.Resolution,
				FileSize:   result.FileSize,
				Status:     catalog.VideoReady,
			}
			if video.Duration == 0 && script != nil {
				video.Duration = float64(script.EstimatedDuration)
			}
			if _, err := tx.InsertVideo(ctx, video); err != nil {
				return err
			}
		}

		if err := tx.UpdateListingState(ctx, fresh); err != nil {
			return err
		}
		return tx.CompleteJob(ctx, job.ID)
	})
}

// upsertScript creates the listing's script document, or pushes the previous
// content onto the version history before overwriting it. Regenerated scripts
// always restart the review cycle.
func upsertScript(ctx context.Context, tx *catalog.Tx, listingID int64, content string) error {
	content = strings.TrimSpace(content)

	existing, err := tx.GetScriptByListing(ctx, listingID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			return err
		}
		script := &catalog.Script{ListingID: listingID, Status: catalog.ScriptPendingApproval}
		script.ApplyContent(content)
		_, err := tx.InsertScript(ctx, script)
		return err
	}

	if _, err := tx.AppendScriptVersion(ctx, existing.ID, existing.Content, existing.UpdatedBy); err != nil {
		return err
	}
	existing.ApplyContent(content)
	existing.Status = catalog.ScriptPendingApproval
	existing.RejectReason = ""
	existing.UpdatedBy = ""
	return tx.UpdateScript(ctx, existing)
}

// completeFailure records the failed job and parks the listing in the error
// state annotated with the failing stage, atomically.
func (c *Coordinator) completeFailure(ctx context.Context, jobLogger *slog.Logger, job *catalog.Job, listing *catalog.Listing, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	kind := services.Kind(stageErr)

	err := c.store.WithTx(ctx, func(tx *catalog.Tx) error {
		if err := tx.FailJob(ctx, job.ID, kind, message); err != nil {
			return err
		}
		fresh, err := tx.GetListing(ctx, listing.ID)
		if err != nil {
			return err
		}
		fresh.SetError(job.StageType, message)
		return tx.UpdateListingState(ctx, fresh)
	})
	if err != nil {
		jobLogger.Error("failed to persist stage failure", logging.Error(err))
	}

	jobLogger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorHint, kind),
		logging.Error(stageErr))

	if notifyErr := c.notifier.NotifyStageFailed(ctx, listing.DisplayName(), string(job.StageType), stageErr); notifyErr != nil {
		jobLogger.Debug("stage failure notification failed", logging.Error(notifyErr))
	}
}

func (c *Coordinator) notifySuccess(ctx context.Context, jobLogger *slog.Logger, stageType pipeline.StageType, listing *catalog.Listing) {
	var err error
	switch stageType {
	case pipeline.StageScriptGenerate:
		err = c.notifier.NotifyScriptReady(ctx, listing.DisplayName())
	case pipeline.StageVideoCompose:
		err = c.notifier.NotifyVideoReady(ctx, listing.DisplayName())
	default:
		return
	}
	if err != nil {
		jobLogger.Debug("review notification failed", logging.Error(err))
	}
}

func applyArtifact(listing *catalog.Listing, stageType pipeline.StageType, result stage.Result) {
	switch stageType {
	case pipeline.StageImageDownload:
		listing.Assets.PhotosDir = result.ArtifactPath
	case pipeline.StageImageProcess:
		listing.Assets.ProcessedDir = result.ArtifactPath
	case pipeline.StageScriptGenerate:
		listing.Assets.ScriptRef = result.ArtifactPath
	case pipeline.StageVoiceoverGenerate:
		listing.Assets.VoiceoverRef = result.ArtifactPath
	case pipeline.StageQRGenerate:
		listing.Assets.QRRef = result.ArtifactPath
	case pipeline.StageVideoCompose:
		listing.Assets.VideoRef = result.ArtifactPath
	}
}

package regen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"lotreel/internal/catalog"
	"lotreel/internal/coordinator"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
)

// Controller re-runs pipeline stages whose artifacts an operator wants
// replaced. It performs the status reset, downstream invalidation, and job
// creation inside one store transaction so a dispatch failure (a conflicting
// active job included) rolls every mutation back. Stale artifact files are
// removed only after the transaction commits.
type Controller struct {
	store  *catalog.Store
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

// NewController constructs a regeneration controller.
func NewController(store *catalog.Store, coord *coordinator.Coordinator, logger *slog.Logger) *Controller {
	return &Controller{
		store:  store,
		coord:  coord,
		logger: logging.NewComponentLogger(logger, "regen"),
	}
}

// Regenerate resets the listing to the target stage's required predecessor
// status, invalidates the target's artifact and everything downstream of it,
// and dispatches a fresh job for the stage. Downstream invalidation follows
// artifact dependencies: regenerating images stales a composed video but
// leaves an approved script alone.
func (r *Controller) Regenerate(ctx context.Context, listingID int64, target pipeline.StageType) (*catalog.Job, error) {
	required, ok := pipeline.RequiredStatus(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "", "regenerate",
			fmt.Sprintf("unknown stage %q", target), nil)
	}

	var (
		job        *catalog.Job
		listing    *catalog.Listing
		stalePaths []string
	)
	err := r.store.WithTx(ctx, func(tx *catalog.Tx) error {
		current, txErr := tx.GetListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		if current.Status == pipeline.StatusPublished {
			return services.Wrap(services.ErrInvalidTransition, string(target), "regenerate",
				"published listings cannot be regenerated", nil)
		}
		if current.Status == pipeline.StatusError {
			// Error recovery re-enters the pipeline at the failed stage;
			// anything further downstream has no inputs to work from.
			if target != current.ErrorStage {
				return services.Wrap(services.ErrInvalidTransition, string(target), "regenerate",
					fmt.Sprintf("listing %d failed at %s and must re-enter there", listingID, current.ErrorStage), nil)
			}
		} else if statusRank(current.Status) < statusRank(required) {
			return services.Wrap(services.ErrInvalidTransition, string(target), "regenerate",
				fmt.Sprintf("listing %d has not reached %s yet", listingID, target), nil)
		}

		stale := append([]pipeline.StageType{target}, pipeline.TransitiveDownstream(target)...)
		for _, stage := range stale {
			if path := clearAssetRef(current, stage); path != "" {
				stalePaths = append(stalePaths, path)
			}
		}

		if containsStage(stale, pipeline.StageScriptGenerate) {
			if txErr := invalidateScript(ctx, tx, listingID); txErr != nil {
				return txErr
			}
		}
		if containsStage(stale, pipeline.StageVideoCompose) {
			paths, txErr := tx.DeleteVideosForListing(ctx, listingID)
			if txErr != nil {
				return txErr
			}
			stalePaths = append(stalePaths, paths...)
		}

		current.Status = required
		current.ClearError()
		if txErr := tx.UpdateListingState(ctx, current); txErr != nil {
			return txErr
		}

		job, txErr = r.coord.Prepare(ctx, tx, current, target)
		if txErr != nil {
			return txErr
		}
		listing = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.removeStale(stalePaths)
	r.coord.Start(job, listing)

	r.logger.Info("regeneration dispatched",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, string(target)),
		logging.Int("stale_artifacts", len(stalePaths)))
	return job, nil
}

// invalidateScript demotes the listing's script document to draft so a stale
// script is never left looking approved. A listing without a script is fine.
func invalidateScript(ctx context.Context, tx *catalog.Tx, listingID int64) error {
	script, err := tx.GetScriptByListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil
		}
		return err
	}
	script.Status = catalog.ScriptDraft
	script.RejectReason = ""
	return tx.UpdateScript(ctx, script)
}

// clearAssetRef empties the listing's asset reference for a stage and returns
// the path that was stored there.
func clearAssetRef(listing *catalog.Listing, stage pipeline.StageType) string {
	var ref *string
	switch stage {
	case pipeline.StageImageDownload:
		ref = &listing.Assets.PhotosDir
	case pipeline.StageImageProcess:
		ref = &listing.Assets.ProcessedDir
	case pipeline.StageScriptGenerate:
		ref = &listing.Assets.ScriptRef
	case pipeline.StageVoiceoverGenerate:
		ref = &listing.Assets.VoiceoverRef
	case pipeline.StageQRGenerate:
		ref = &listing.Assets.QRRef
	case pipeline.StageVideoCompose:
		ref = &listing.Assets.VideoRef
	default:
		return ""
	}
	path := *ref
	*ref = ""
	return path
}

// removeStale deletes superseded artifact files. Failures are logged, not
// returned: the database is already consistent and the replacement job will
// overwrite the paths anyway.
func (r *Controller) removeStale(paths []string) {
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove stale artifact",
				logging.String("path", path),
				logging.Error(err))
		}
	}
}

func containsStage(stages []pipeline.StageType, want pipeline.StageType) bool {
	for _, s := range stages {
		if s == want {
			return true
		}
	}
	return false
}

// statusRank orders the forward statuses so the controller can tell whether a
// listing has ever reached a stage's predecessor. The error status never
// reaches this function.
func statusRank(status pipeline.Status) int {
	for i, s := range pipeline.AllStatuses() {
		if s == status {
			return i
		}
	}
	return -1
}

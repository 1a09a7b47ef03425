package review

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lotreel/internal/catalog"
	"lotreel/internal/logging"
	"lotreel/internal/notifications"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/textutil"
	"lotreel/internal/uploader"
)

// Gate implements the human review operations on scripts and videos. Every
// operation runs in a single transaction so the listing status and the
// document status never diverge.
type Gate struct {
	store    *catalog.Store
	uploads  uploader.Uploader
	notifier notifications.Service
	logger   *slog.Logger
}

// NewGate constructs the review gate.
func NewGate(store *catalog.Store, uploads uploader.Uploader, notifier notifications.Service, logger *slog.Logger) *Gate {
	return &Gate{
		store:    store,
		uploads:  uploads,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "review"),
	}
}

// ApproveScript approves a pending script and advances the listing so the
// voiceover stage may run.
func (g *Gate) ApproveScript(ctx context.Context, listingID int64, reviewer string) (*catalog.Script, error) {
	var script *catalog.Script
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		script, txErr = tx.GetScriptByListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		if script.Status != catalog.ScriptPendingApproval {
			return services.Wrap(services.ErrInvalidTransition, "", "approve script",
				"script status is "+string(script.Status)+", not pending_approval", nil)
		}

		script.Status = catalog.ScriptApproved
		script.RejectReason = ""
		script.UpdatedBy = strings.TrimSpace(reviewer)
		if txErr = tx.UpdateScript(ctx, script); txErr != nil {
			return txErr
		}

		listing, txErr := tx.GetListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		if listing.Status == pipeline.StatusScriptGenerated {
			listing.Status = pipeline.StatusScriptApproved
			return tx.UpdateListingState(ctx, listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("script approved",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String("reviewer", reviewer))
	return script, nil
}

// RejectScript rejects a pending script. The reason is mandatory; it is what
// the operator sees when deciding whether to edit or regenerate.
func (g *Gate) RejectScript(ctx context.Context, listingID int64, reviewer, reason string) (*catalog.Script, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, services.Wrap(services.ErrValidation, "", "reject script",
			"reject reason is required", nil)
	}

	var script *catalog.Script
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		script, txErr = tx.GetScriptByListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		if script.Status != catalog.ScriptPendingApproval {
			return services.Wrap(services.ErrInvalidTransition, "", "reject script",
				"script status is "+string(script.Status)+", not pending_approval", nil)
		}

		script.Status = catalog.ScriptRejected
		script.RejectReason = reason
		script.UpdatedBy = strings.TrimSpace(reviewer)
		return tx.UpdateScript(ctx, script)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("script rejected",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String("reviewer", reviewer))
	return script, nil
}

// UpdateScriptContent replaces the script content, pushing the previous
// content onto the version history first. Edits always restart the review
// cycle.
func (g *Gate) UpdateScriptContent(ctx context.Context, listingID int64, content, editedBy string) (*catalog.Script, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, services.Wrap(services.ErrValidation, "", "update script",
			"script content is required", nil)
	}

	var script *catalog.Script
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		script, txErr = tx.GetScriptByListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}

		if _, txErr = tx.AppendScriptVersion(ctx, script.ID, script.Content, script.UpdatedBy); txErr != nil {
			return txErr
		}
		script.ApplyContent(content)
		script.Status = catalog.ScriptPendingApproval
		script.RejectReason = ""
		script.UpdatedBy = strings.TrimSpace(editedBy)
		if txErr = tx.UpdateScript(ctx, script); txErr != nil {
			return txErr
		}
		return g.demoteApprovedListing(ctx, tx, listingID)
	})
	if err != nil {
		return nil, err
	}
	return script, nil
}

// RevertScriptVersion restores the script content recorded at versionIndex
// (zero-based, oldest first). The revert itself is pushed onto the history so
// it is never silently discarded. An out-of-range index mutates nothing.
func (g *Gate) RevertScriptVersion(ctx context.Context, listingID int64, versionIndex int, editedBy string) (*catalog.Script, error) {
	var script *catalog.Script
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		script, txErr = tx.GetScriptByListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}

		if versionIndex < 0 {
			return services.Wrap(services.ErrOutOfRange, "", "revert script",
				"version index must not be negative", nil)
		}
		// History positions are 1-based in storage.
		target, txErr := tx.GetScriptVersion(ctx, script.ID, versionIndex+1)
		if txErr != nil {
			return txErr
		}

		if _, txErr = tx.AppendScriptVersion(ctx, script.ID, script.Content, script.UpdatedBy); txErr != nil {
			return txErr
		}
		script.ApplyContent(target.Content)
		script.Status = catalog.ScriptPendingApproval
		script.RejectReason = ""
		script.UpdatedBy = strings.TrimSpace(editedBy)
		if txErr = tx.UpdateScript(ctx, script); txErr != nil {
			return txErr
		}
		return g.demoteApprovedListing(ctx, tx, listingID)
	})
	if err != nil {
		return nil, err
	}
	return script, nil
}

// demoteApprovedListing steps a listing back to script_generated when its
// script loses approval, so the voiceover stage cannot run against content
// nobody signed off on.
func (g *Gate) demoteApprovedListing(ctx context.Context, tx *catalog.Tx, listingID int64) error {
	listing, err := tx.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.Status != pipeline.StatusScriptApproved {
		return nil
	}
	listing.Status = pipeline.StatusScriptGenerated
	return tx.UpdateListingState(ctx, listing)
}

// ApproveVideo approves a ready video and advances the listing toward
// publication.
func (g *Gate) ApproveVideo(ctx context.Context, listingID int64, reviewer string) (*catalog.Video, error) {
	var video *catalog.Video
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		video, txErr = g.currentVideo(ctx, tx, listingID)
		if txErr != nil {
			return txErr
		}
		if video.Status != catalog.VideoReady {
			return services.Wrap(services.ErrInvalidTransition, "", "approve video",
				"video status is "+string(video.Status)+", not ready", nil)
		}

		now := time.Now().UTC()
		video.Status = catalog.VideoApproved
		video.RejectReason = ""
		video.ApprovedBy = strings.TrimSpace(reviewer)
		video.ApprovedAt = &now
		if txErr = tx.UpdateVideoReview(ctx, video); txErr != nil {
			return txErr
		}

		listing, txErr := tx.GetListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		if listing.Status == pipeline.StatusVideoGenerated {
			listing.Status = pipeline.StatusVideoApproved
			return tx.UpdateListingState(ctx, listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("video approved",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String("reviewer", reviewer))
	return video, nil
}

// RejectVideo rejects a ready video with a mandatory reason. The listing
// stays at video_generated; the operator regenerates or discards.
func (g *Gate) RejectVideo(ctx context.Context, listingID int64, reviewer, reason string) (*catalog.Video, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, services.Wrap(services.ErrValidation, "", "reject video",
			"reject reason is required", nil)
	}

	var video *catalog.Video
	err := g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		var txErr error
		video, txErr = g.currentVideo(ctx, tx, listingID)
		if txErr != nil {
			return txErr
		}
		if video.Status != catalog.VideoReady {
			return services.Wrap(services.ErrInvalidTransition, "", "reject video",
				"video status is "+string(video.Status)+", not ready", nil)
		}

		video.Status = catalog.VideoRejected
		video.RejectReason = reason
		video.ApprovedBy = strings.TrimSpace(reviewer)
		return tx.UpdateVideoReview(ctx, video)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("video rejected",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String("reviewer", reviewer))
	return video, nil
}

// PublishVideo uploads an approved video and marks the listing published.
// The upload happens before the publish transaction commits; an upload
// failure leaves the video approved and the listing untouched.
func (g *Gate) PublishVideo(ctx context.Context, listingID int64, publishedBy string) (*catalog.Video, error) {
	video, err := g.store.CurrentVideoForListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "publish video",
			"listing has no video", nil)
	}
	if video.Status != catalog.VideoApproved {
		return nil, services.Wrap(services.ErrInvalidTransition, "", "publish video",
			"video status is "+string(video.Status)+", not approved", nil)
	}

	listing, err := g.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != pipeline.StatusVideoApproved {
		return nil, services.Wrap(services.ErrInvalidTransition, "", "publish video",
			"listing status is "+string(listing.Status)+", not video_approved", nil)
	}

	objectKey := textutil.SanitizeToken(listing.DealerID) + "/" + textutil.SanitizeToken(listing.StockNumber) + ".mp4"
	publicURL, err := g.uploads.Upload(ctx, video.Path, objectKey)
	if err != nil {
		return nil, err
	}

	err = g.store.WithTx(ctx, func(tx *catalog.Tx) error {
		fresh, txErr := tx.GetVideo(ctx, video.ID)
		if txErr != nil {
			return txErr
		}
		if fresh.Status != catalog.VideoApproved {
			return services.Wrap(services.ErrInvalidTransition, "", "publish video",
				"video left approved state during upload", nil)
		}

		now := time.Now().UTC()
		fresh.Status = catalog.VideoPublished
		fresh.PublishedAt = &now
		fresh.PublicURL = publicURL
		if strings.TrimSpace(publishedBy) != "" {
			fresh.ApprovedBy = strings.TrimSpace(publishedBy)
		}
		if txErr = tx.UpdateVideoReview(ctx, fresh); txErr != nil {
			return txErr
		}
		video = fresh

		current, txErr := tx.GetListing(ctx, listingID)
		if txErr != nil {
			return txErr
		}
		current.Status = pipeline.StatusPublished
		return tx.UpdateListingState(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("video published",
		logging.Int64(logging.FieldListingID, listingID),
		logging.String("public_url", publicURL))
	if notifyErr := g.notifier.NotifyPublished(ctx, listing.DisplayName(), publicURL); notifyErr != nil {
		g.logger.Debug("publish notification failed", logging.Error(notifyErr))
	}
	return video, nil
}

func (g *Gate) currentVideo(ctx context.Context, tx *catalog.Tx, listingID int64) (*catalog.Video, error) {
	video, err := tx.CurrentVideoForListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "review video",
			"listing has no video", nil)
	}
	return video, nil
}

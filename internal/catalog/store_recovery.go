package catalog

import (
	"context"
	"fmt"
	"time"

	"lotreel/internal/services"
)

// RecoverInterruptedJobs fails every job left queued or processing by a
// previous daemon run and parks its listing in the error state at the job's
// stage. The daemon instance lock guarantees no other process can still be
// working such a row, so at startup every active job is an orphan holding its
// listing's exclusivity slot hostage. Parking the listing in error keeps it
// recoverable through the normal regeneration path. Returns the number of
// jobs recovered.
func (s *Store) RecoverInterruptedJobs(ctx context.Context) (int, error) {
	var recovered int
	err := s.WithTx(ctx, func(tx *Tx) error {
		rows, err := tx.tx.QueryContext(
			ctx,
			"SELECT "+jobColumns+" FROM jobs WHERE status IN ('queued', 'processing')",
		)
		if err != nil {
			return fmt.Errorf("list orphaned jobs: %w", err)
		}
		orphans := []*Job{}
		for rows.Next() {
			job, scanErr := scanJob(rows)
			if scanErr != nil {
				rows.Close()
				return fmt.Errorf("scan orphaned job: %w", scanErr)
			}
			orphans = append(orphans, job)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate orphaned jobs: %w", err)
		}
		rows.Close()

		for _, job := range orphans {
			message := "interrupted by daemon shutdown"
			if job.LastHeartbeat != nil {
				message = fmt.Sprintf("%s; last heartbeat %s", message,
					job.LastHeartbeat.UTC().Format(time.RFC3339))
			}
			if err := tx.FailJob(ctx, job.ID, services.Kind(services.ErrTransient), message); err != nil {
				return err
			}
			listing, err := tx.GetListing(ctx, job.ListingID)
			if err != nil {
				return err
			}
			listing.SetError(job.StageType, message)
			if err := tx.UpdateListingState(ctx, listing); err != nil {
				return err
			}
			recovered++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return recovered, nil
}

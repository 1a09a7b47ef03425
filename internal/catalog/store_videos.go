package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lotreel/internal/services"
)

// InsertVideo records a freshly composed video document.
func (t *Tx) InsertVideo(ctx context.Context, video *Video) (*Video, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO videos (
            listing_id, path, duration_secs, resolution, file_size, status,
            reject_reason, approved_by, approved_at, published_at, public_url, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ListingID,
		video.Path,
		video.Duration,
		nullableString(video.Resolution),
		video.FileSize,
		string(video.Status),
		nullableString(video.RejectReason),
		nullableString(video.ApprovedBy),
		nullableTime(video.ApprovedAt),
		nullableTime(video.PublishedAt),
		nullableString(video.PublicURL),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return getVideo(ctx, t.tx, id)
}

// GetVideo fetches one video by identifier.
func (s *Store) GetVideo(ctx context.Context, id int64) (*Video, error) {
	return getVideo(ctx, s.db, id)
}

// GetVideo fetches one video by identifier within the transaction.
func (t *Tx) GetVideo(ctx context.Context, id int64) (*Video, error) {
	return getVideo(ctx, t.tx, id)
}

func getVideo(ctx context.Context, q dbtx, id int64) (*Video, error) {
	row := q.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get video",
				fmt.Sprintf("video %d not found", id), err)
		}
		return nil, fmt.Errorf("get video %d: %w", id, err)
	}
	return video, nil
}

// CurrentVideoForListing returns the newest video document for a listing, or
// nil when none exists yet.
func (s *Store) CurrentVideoForListing(ctx context.Context, listingID int64) (*Video, error) {
	return currentVideoForListing(ctx, s.db, listingID)
}

// CurrentVideoForListing returns the newest video document within the
// transaction.
func (t *Tx) CurrentVideoForListing(ctx context.Context, listingID int64) (*Video, error) {
	return currentVideoForListing(ctx, t.tx, listingID)
}

func currentVideoForListing(ctx context.Context, q dbtx, listingID int64) (*Video, error) {
	row := q.QueryRowContext(
		ctx,
		"SELECT "+videoColumns+" FROM videos WHERE listing_id = ? ORDER BY id DESC LIMIT 1",
		listingID,
	)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("current video for listing %d: %w", listingID, err)
	}
	return video, nil
}

// UpdateVideoReview persists the review-owned fields of a video document.
func (t *Tx) UpdateVideoReview(ctx context.Context, video *Video) error {
	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE videos SET
            status = ?, reject_reason = ?, approved_by = ?, approved_at = ?,
            published_at = ?, public_url = ?
        WHERE id = ?`,
		string(video.Status),
		nullableString(video.RejectReason),
		nullableString(video.ApprovedBy),
		nullableTime(video.ApprovedAt),
		nullableTime(video.PublishedAt),
		nullableString(video.PublicURL),
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("update video %d: %w", video.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "update video",
			fmt.Sprintf("video %d not found", video.ID), nil)
	}
	return nil
}

// DeleteVideosForListing removes every unpublished video row for a listing
// and returns the artifact paths of the deleted rows so the caller can
// remove the files after its transaction commits.
func (t *Tx) DeleteVideosForListing(ctx context.Context, listingID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT path FROM videos WHERE listing_id = ? AND status != ?`,
		listingID, string(VideoPublished))
	if err != nil {
		return nil, fmt.Errorf("list video paths for listing %d: %w", listingID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan video path: %w", err)
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video paths: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM videos WHERE listing_id = ? AND status != ?`,
		listingID, string(VideoPublished)); err != nil {
		return nil, fmt.Errorf("delete videos for listing %d: %w", listingID, err)
	}
	return paths, nil
}

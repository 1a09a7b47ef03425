package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lotreel/internal/pipeline"
	"lotreel/internal/services"
)

// CreateListing inserts a new listing in the pending state. The dealer and
// stock number pair must be unique.
func (s *Store) CreateListing(ctx context.Context, listing *Listing) (*Listing, error) {
	return createListing(ctx, s.db, listing)
}

// CreateListing inserts a new listing within the transaction.
func (t *Tx) CreateListing(ctx context.Context, listing *Listing) (*Listing, error) {
	return createListing(ctx, t.tx, listing)
}

func createListing(ctx context.Context, q dbtx, listing *Listing) (*Listing, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := q.ExecContext(
		ctx,
		`INSERT INTO listings (
            dealer_id, stock_number, vin, year, make, model, price, condition,
            color, odometer, engine, description, listing_url, photo_urls,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.DealerID,
		listing.StockNumber,
		nullableString(listing.VIN),
		listing.Year,
		nullableString(listing.Make),
		nullableString(listing.Model),
		listing.Price,
		nullableString(listing.Condition),
		nullableString(listing.Color),
		listing.Odometer,
		nullableString(listing.Engine),
		nullableString(listing.Description),
		nullableString(listing.ListingURL),
		nullableString(listing.PhotoURLs),
		pipeline.StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrConflict, "", "create listing",
				fmt.Sprintf("listing %s/%s already exists", listing.DealerID, listing.StockNumber), err)
		}
		return nil, fmt.Errorf("insert listing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return getListing(ctx, q, id)
}

// GetListing fetches one listing by identifier.
func (s *Store) GetListing(ctx context.Context, id int64) (*Listing, error) {
	return getListing(ctx, s.db, id)
}

// GetListing fetches one listing by identifier within the transaction.
func (t *Tx) GetListing(ctx context.Context, id int64) (*Listing, error) {
	return getListing(ctx, t.tx, id)
}

func getListing(ctx context.Context, q dbtx, id int64) (*Listing, error) {
	row := q.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get listing",
				fmt.Sprintf("listing %d not found", id), err)
		}
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return listing, nil
}

// GetListingByStock fetches a listing by its dealer and stock number pair.
func (s *Store) GetListingByStock(ctx context.Context, dealerID, stockNumber string) (*Listing, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT "+listingColumns+" FROM listings WHERE dealer_id = ? AND stock_number = ?",
		dealerID, stockNumber,
	)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get listing",
				fmt.Sprintf("listing %s/%s not found", dealerID, stockNumber), err)
		}
		return nil, fmt.Errorf("get listing %s/%s: %w", dealerID, stockNumber, err)
	}
	return listing, nil
}

// ListListings returns listings filtered by status when any statuses are
// given, newest first.
func (s *Store) ListListings(ctx context.Context, statuses ...pipeline.Status) ([]*Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		listing, scanErr := scanListing(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan listing: %w", scanErr)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

// UpdateListingState persists the orchestration-owned fields of a listing:
// status, error annotations, and asset references. Vehicle attributes are
// never written back.
func (s *Store) UpdateListingState(ctx context.Context, listing *Listing) error {
	return updateListingState(ctx, s.db, listing)
}

// UpdateListingState persists status, error annotations, and asset
// references within the transaction.
func (t *Tx) UpdateListingState(ctx context.Context, listing *Listing) error {
	return updateListingState(ctx, t.tx, listing)
}

func updateListingState(ctx context.Context, q dbtx, listing *Listing) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := q.ExecContext(
		ctx,
		`UPDATE listings SET
            status = ?, error_stage = ?, error_message = ?,
            photos_dir = ?, processed_dir = ?, script_ref = ?,
            voiceover_ref = ?, qr_ref = ?, video_ref = ?, updated_at = ?
        WHERE id = ?`,
		string(listing.Status),
		nullableString(string(listing.ErrorStage)),
		nullableString(listing.ErrorMessage),
		nullableString(listing.Assets.PhotosDir),
		nullableString(listing.Assets.ProcessedDir),
		nullableString(listing.Assets.ScriptRef),
		nullableString(listing.Assets.VoiceoverRef),
		nullableString(listing.Assets.QRRef),
		nullableString(listing.Assets.VideoRef),
		timestamp,
		listing.ID,
	)
	if err != nil {
		return fmt.Errorf("update listing %d: %w", listing.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "update listing",
			fmt.Sprintf("listing %d not found", listing.ID), nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

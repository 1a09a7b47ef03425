package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lotreel/internal/services"
)

// GetScriptByListing fetches the live script document for a listing.
func (s *Store) GetScriptByListing(ctx context.Context, listingID int64) (*Script, error) {
	return getScriptByListing(ctx, s.db, listingID)
}

// GetScriptByListing fetches the live script document within the transaction.
func (t *Tx) GetScriptByListing(ctx context.Context, listingID int64) (*Script, error) {
	return getScriptByListing(ctx, t.tx, listingID)
}

func getScriptByListing(ctx context.Context, q dbtx, listingID int64) (*Script, error) {
	row := q.QueryRowContext(ctx, "SELECT "+scriptColumns+" FROM scripts WHERE listing_id = ?", listingID)
	script, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get script",
				fmt.Sprintf("no script for listing %d", listingID), err)
		}
		return nil, fmt.Errorf("get script for listing %d: %w", listingID, err)
	}
	return script, nil
}

// InsertScript creates the live script document for a listing. Each listing
// has at most one.
func (t *Tx) InsertScript(ctx context.Context, script *Script) (*Script, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO scripts (
            listing_id, content, word_count, estimated_duration, status,
            reject_reason, updated_by, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		script.ListingID,
		script.Content,
		script.WordCount,
		script.EstimatedDuration,
		string(script.Status),
		nullableString(script.RejectReason),
		nullableString(script.UpdatedBy),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrConflict, "", "insert script",
				fmt.Sprintf("listing %d already has a script", script.ListingID), err)
		}
		return nil, fmt.Errorf("insert script: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return getScript(ctx, t.tx, id)
}

func getScript(ctx context.Context, q dbtx, id int64) (*Script, error) {
	row := q.QueryRowContext(ctx, "SELECT "+scriptColumns+" FROM scripts WHERE id = ?", id)
	script, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get script",
				fmt.Sprintf("script %d not found", id), err)
		}
		return nil, fmt.Errorf("get script %d: %w", id, err)
	}
	return script, nil
}

// UpdateScript rewrites the mutable fields of a script document: content,
// derived metrics, review status, and attribution. Callers push the prior
// content onto the version history before overwriting.
func (t *Tx) UpdateScript(ctx context.Context, script *Script) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE scripts SET
            content = ?, word_count = ?, estimated_duration = ?, status = ?,
            reject_reason = ?, updated_by = ?, updated_at = ?
        WHERE id = ?`,
		script.Content,
		script.WordCount,
		script.EstimatedDuration,
		string(script.Status),
		nullableString(script.RejectReason),
		nullableString(script.UpdatedBy),
		timestamp,
		script.ID,
	)
	if err != nil {
		return fmt.Errorf("update script %d: %w", script.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "update script",
			fmt.Sprintf("script %d not found", script.ID), nil)
	}
	return nil
}

// AppendScriptVersion pushes content onto the script's history at the next
// free position. History rows are never rewritten or deleted.
func (t *Tx) AppendScriptVersion(ctx context.Context, scriptID int64, content, createdBy string) (*ScriptVersion, error) {
	row := t.tx.QueryRowContext(
		ctx,
		"SELECT COALESCE(MAX(position), 0) + 1 FROM script_versions WHERE script_id = ?",
		scriptID,
	)
	var position int
	if err := row.Scan(&position); err != nil {
		return nil, fmt.Errorf("next version position: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO script_versions (script_id, position, content, created_at, created_by)
        VALUES (?, ?, ?, ?, ?)`,
		scriptID,
		position,
		content,
		timestamp,
		nullableString(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("append script version: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row = t.tx.QueryRowContext(ctx, "SELECT "+scriptVersionColumns+" FROM script_versions WHERE id = ?", id)
	return scanScriptVersion(row)
}

// GetScriptVersion fetches one history entry by position.
func (t *Tx) GetScriptVersion(ctx context.Context, scriptID int64, position int) (*ScriptVersion, error) {
	row := t.tx.QueryRowContext(
		ctx,
		"SELECT "+scriptVersionColumns+" FROM script_versions WHERE script_id = ? AND position = ?",
		scriptID, position,
	)
	version, err := scanScriptVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrOutOfRange, "", "get script version",
				fmt.Sprintf("script %d has no version %d", scriptID, position), err)
		}
		return nil, fmt.Errorf("get script version %d/%d: %w", scriptID, position, err)
	}
	return version, nil
}

// CountScriptVersions returns the number of history entries for a script.
func (t *Tx) CountScriptVersions(ctx context.Context, scriptID int64) (int, error) {
	return countScriptVersions(ctx, t.tx, scriptID)
}

// CountScriptVersions returns the number of history entries for a script.
func (s *Store) CountScriptVersions(ctx context.Context, scriptID int64) (int, error) {
	return countScriptVersions(ctx, s.db, scriptID)
}

func countScriptVersions(ctx context.Context, q dbtx, scriptID int64) (int, error) {
	row := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM script_versions WHERE script_id = ?", scriptID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count script versions: %w", err)
	}
	return count, nil
}

// ListScriptVersions returns a script's history ordered oldest first.
func (s *Store) ListScriptVersions(ctx context.Context, scriptID int64) ([]*ScriptVersion, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+scriptVersionColumns+" FROM script_versions WHERE script_id = ? ORDER BY position ASC",
		scriptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list script versions: %w", err)
	}
	defer rows.Close()

	var versions []*ScriptVersion
	for rows.Next() {
		version, scanErr := scanScriptVersion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan script version: %w", scanErr)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate script versions: %w", err)
	}
	return versions, nil
}

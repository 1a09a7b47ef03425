package catalog

import (
	"database/sql"
	"errors"
	"time"

	"lotreel/internal/pipeline"
)

const listingColumns = "id, dealer_id, stock_number, vin, year, make, model, price, condition, color, odometer, engine, description, listing_url, photo_urls, status, error_stage, error_message, photos_dir, processed_dir, script_ref, voiceover_ref, qr_ref, video_ref, created_at, updated_at"

const jobColumns = "id, listing_id, stage_type, status, progress, error_kind, error_message, created_at, started_at, completed_at, last_heartbeat"

const scriptColumns = "id, listing_id, content, word_count, estimated_duration, status, reject_reason, updated_by, created_at, updated_at"

const scriptVersionColumns = "id, script_id, position, content, created_at, created_by"

const videoColumns = "id, listing_id, path, duration_secs, resolution, file_size, status, reject_reason, approved_by, approved_at, published_at, public_url, created_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanListing(scanner rowScanner) (*Listing, error) {
	var (
		id           int64
		dealerID     string
		stockNumber  string
		vin          sql.NullString
		year         sql.NullInt64
		makeName     sql.NullString
		model        sql.NullString
		price        sql.NullFloat64
		condition    sql.NullString
		color        sql.NullString
		odometer     sql.NullInt64
		engine       sql.NullString
		description  sql.NullString
		listingURL   sql.NullString
		photoURLs    sql.NullString
		statusStr    string
		errorStage   sql.NullString
		errorMessage sql.NullString
		photosDir    sql.NullString
		processedDir sql.NullString
		scriptRef    sql.NullString
		voiceoverRef sql.NullString
		qrRef        sql.NullString
		videoRef     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&dealerID,
		&stockNumber,
		&vin,
		&year,
		&makeName,
		&model,
		&price,
		&condition,
		&color,
		&odometer,
		&engine,
		&description,
		&listingURL,
		&photoURLs,
		&statusStr,
		&errorStage,
		&errorMessage,
		&photosDir,
		&processedDir,
		&scriptRef,
		&voiceoverRef,
		&qrRef,
		&videoRef,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	listing := &Listing{
		ID:           id,
		DealerID:     dealerID,
		StockNumber:  stockNumber,
		VIN:          vin.String,
		Year:         int(year.Int64),
		Make:         makeName.String,
		Model:        model.String,
		Price:        price.Float64,
		Condition:    condition.String,
		Color:        color.String,
		Odometer:     odometer.Int64,
		Engine:       engine.String,
		Description:  description.String,
		ListingURL:   listingURL.String,
		PhotoURLs:    photoURLs.String,
		Status:       pipeline.Status(statusStr),
		ErrorStage:   pipeline.StageType(errorStage.String),
		ErrorMessage: errorMessage.String,
		Assets: Assets{
			PhotosDir:    photosDir.String,
			ProcessedDir: processedDir.String,
			ScriptRef:    scriptRef.String,
			VoiceoverRef: voiceoverRef.String,
			QRRef:        qrRef.String,
			VideoRef:     videoRef.String,
		},
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		listing.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		listing.UpdatedAt = updated
	}
	return listing, nil
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		id           string
		listingID    int64
		stageType    string
		statusStr    string
		progress     sql.NullFloat64
		errorKind    sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&listingID,
		&stageType,
		&statusStr,
		&progress,
		&errorKind,
		&errorMessage,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		ListingID:    listingID,
		StageType:    pipeline.StageType(stageType),
		Status:       JobStatus(statusStr),
		Progress:     progress.Float64,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	if heartbeatRaw.Valid {
		if beat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &beat
		}
	}
	return job, nil
}

func scanScript(scanner rowScanner) (*Script, error) {
	var (
		id           int64
		listingID    int64
		content      string
		wordCount    sql.NullInt64
		duration     sql.NullInt64
		statusStr    string
		rejectReason sql.NullString
		updatedBy    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&listingID,
		&content,
		&wordCount,
		&duration,
		&statusStr,
		&rejectReason,
		&updatedBy,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	script := &Script{
		ID:                id,
		ListingID:         listingID,
		Content:           content,
		WordCount:         int(wordCount.Int64),
		EstimatedDuration: int(duration.Int64),
		Status:            ScriptStatus(statusStr),
		RejectReason:      rejectReason.String,
		UpdatedBy:         updatedBy.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		script.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		script.UpdatedAt = updated
	}
	return script, nil
}

func scanScriptVersion(scanner rowScanner) (*ScriptVersion, error) {
	var (
		id         int64
		scriptID   int64
		position   int
		content    string
		createdRaw sql.NullString
		createdBy  sql.NullString
	)

	if err := scanner.Scan(&id, &scriptID, &position, &content, &createdRaw, &createdBy); err != nil {
		return nil, err
	}

	version := &ScriptVersion{
		ID:        id,
		ScriptID:  scriptID,
		Position:  position,
		Content:   content,
		CreatedBy: createdBy.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		version.CreatedAt = created
	}
	return version, nil
}

func scanVideo(scanner rowScanner) (*Video, error) {
	var (
		id           int64
		listingID    int64
		path         string
		duration     sql.NullFloat64
		resolution   sql.NullString
		fileSize     sql.NullInt64
		statusStr    string
		rejectReason sql.NullString
		approvedBy   sql.NullString
		approvedRaw  sql.NullString
		publishedRaw sql.NullString
		publicURL    sql.NullString
		createdRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&listingID,
		&path,
		&duration,
		&resolution,
		&fileSize,
		&statusStr,
		&rejectReason,
		&approvedBy,
		&approvedRaw,
		&publishedRaw,
		&publicURL,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:           id,
		ListingID:    listingID,
		Path:         path,
		Duration:     duration.Float64,
		Resolution:   resolution.String,
		FileSize:     fileSize.Int64,
		Status:       VideoStatus(statusStr),
		RejectReason: rejectReason.String,
		ApprovedBy:   approvedBy.String,
		PublicURL:    publicURL.String,
	}

	if approvedRaw.Valid {
		if approved, err := parseTimeString(approvedRaw.String); err == nil {
			video.ApprovedAt = &approved
		}
	}
	if publishedRaw.Valid {
		if published, err := parseTimeString(publishedRaw.String); err == nil {
			video.PublishedAt = &published
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		video.CreatedAt = created
	}
	return video, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

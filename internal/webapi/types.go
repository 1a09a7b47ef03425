package webapi

import (
	"time"

	"lotreel/internal/catalog"
)

type createListingRequest struct {
	DealerID    string   `json:"dealer_id"`
	StockNumber string   `json:"stock_number"`
	VIN         string   `json:"vin"`
	Year        int      `json:"year"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Price       float64  `json:"price"`
	Condition   string   `json:"condition"`
	Color       string   `json:"color"`
	Odometer    int64    `json:"odometer"`
	Engine      string   `json:"engine"`
	Description string   `json:"description"`
	ListingURL  string   `json:"listing_url"`
	PhotoURLs   []string `json:"photo_urls"`
}

type stageRequest struct {
	Stage string `json:"stage"`
}

type reviewRequest struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
}

type scriptUpdateRequest struct {
	Content  string `json:"content"`
	EditedBy string `json:"edited_by"`
}

type scriptRevertRequest struct {
	Version  int    `json:"version"`
	EditedBy string `json:"edited_by"`
}

type assetsResponse struct {
	PhotosDir    string `json:"photos_dir,omitempty"`
	ProcessedDir string `json:"processed_dir,omitempty"`
	ScriptRef    string `json:"script_ref,omitempty"`
	VoiceoverRef string `json:"voiceover_ref,omitempty"`
	QRRef        string `json:"qr_ref,omitempty"`
	VideoRef     string `json:"video_ref,omitempty"`
}

type listingResponse struct {
	ID           int64          `json:"id"`
	DealerID     string         `json:"dealer_id"`
	StockNumber  string         `json:"stock_number"`
	VIN          string         `json:"vin,omitempty"`
	Year         int            `json:"year,omitempty"`
	Make         string         `json:"make,omitempty"`
	Model        string         `json:"model,omitempty"`
	Price        float64        `json:"price,omitempty"`
	Condition    string         `json:"condition,omitempty"`
	Color        string         `json:"color,omitempty"`
	Odometer     int64          `json:"odometer,omitempty"`
	Engine       string         `json:"engine,omitempty"`
	Description  string         `json:"description,omitempty"`
	ListingURL   string         `json:"listing_url,omitempty"`
	Status       string         `json:"status"`
	ErrorStage   string         `json:"error_stage,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Assets       assetsResponse `json:"assets"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type jobResponse struct {
	ID           string     `json:"id"`
	ListingID    int64      `json:"listing_id"`
	Stage        string     `json:"stage"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type scriptResponse struct {
	ID                int64     `json:"id"`
	ListingID         int64     `json:"listing_id"`
	Content           string    `json:"content"`
	WordCount         int       `json:"word_count"`
	EstimatedDuration int       `json:"estimated_duration_secs"`
	Status            string    `json:"status"`
	RejectReason      string    `json:"reject_reason,omitempty"`
	UpdatedBy         string    `json:"updated_by,omitempty"`
	Versions          int       `json:"versions"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type videoResponse struct {
	ID           int64      `json:"id"`
	ListingID    int64      `json:"listing_id"`
	Duration     float64    `json:"duration_secs"`
	Resolution   string     `json:"resolution,omitempty"`
	FileSize     int64      `json:"file_size"`
	Status       string     `json:"status"`
	RejectReason string     `json:"reject_reason,omitempty"`
	ApprovedBy   string     `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	PublicURL    string     `json:"public_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type executorHealthResponse struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type statusResponse struct {
	Version    string                   `json:"version"`
	ActiveJobs int                      `json:"active_jobs"`
	Executors  []executorHealthResponse `json:"executors"`
}

func toListingResponse(listing *catalog.Listing) listingResponse {
	return listingResponse{
		ID:           listing.ID,
		DealerID:     listing.DealerID,
		StockNumber:  listing.StockNumber,
		VIN:          listing.VIN,
		Year:         listing.Year,
		Make:         listing.Make,
		Model:        listing.Model,
		Price:        listing.Price,
		Condition:    listing.Condition,
		Color:        listing.Color,
		Odometer:     listing.Odometer,
		Engine:       listing.Engine,
		Description:  listing.Description,
		ListingURL:   listing.ListingURL,
		Status:       string(listing.Status),
		ErrorStage:   string(listing.ErrorStage),
		ErrorMessage: listing.ErrorMessage,
		Assets: assetsResponse{
			PhotosDir:    listing.Assets.PhotosDir,
			ProcessedDir: listing.Assets.ProcessedDir,
			ScriptRef:    listing.Assets.ScriptRef,
			VoiceoverRef: listing.Assets.VoiceoverRef,
			QRRef:        listing.Assets.QRRef,
			VideoRef:     listing.Assets.VideoRef,
		},
		CreatedAt: listing.CreatedAt,
		UpdatedAt: listing.UpdatedAt,
	}
}

func toJobResponse(job *catalog.Job) jobResponse {
	return jobResponse{
		ID:           job.ID,
		ListingID:    job.ListingID,
		Stage:        string(job.StageType),
		Status:       string(job.Status),
		Progress:     job.Progress,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}

func toScriptResponse(script *catalog.Script, versions int) scriptResponse {
	return scriptResponse{
		ID:                script.ID,
		ListingID:         script.ListingID,
		Content:           script.Content,
		WordCount:         script.WordCount,
		EstimatedDuration: script.EstimatedDuration,
		Status:            string(script.Status),
		RejectReason:      script.RejectReason,
		UpdatedBy:         script.UpdatedBy,
		Versions:          versions,
		UpdatedAt:         script.UpdatedAt,
	}
}

func toVideoResponse(video *catalog.Video) videoResponse {
	return videoResponse{
		ID:           video.ID,
		ListingID:    video.ListingID,
		Duration:     video.Duration,
		Resolution:   video.Resolution,
		FileSize:     video.FileSize,
		Status:       string(video.Status),
		RejectReason: video.RejectReason,
		ApprovedBy:   video.ApprovedBy,
		ApprovedAt:   video.ApprovedAt,
		PublishedAt:  video.PublishedAt,
		PublicURL:    video.PublicURL,
		CreatedAt:    video.CreatedAt,
	}
}

package catalog

import (
	"strconv"
	"strings"
	"time"

	"lotreel/internal/pipeline"
)

// JobStatus represents the lifecycle of one stage execution attempt.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

var jobStatuses = map[JobStatus]struct{}{
	JobQueued:     {},
	JobProcessing: {},
	JobCompleted:  {},
	JobFailed:     {},
}

// ParseJobStatus converts a string into a known JobStatus.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	_, ok := jobStatuses[normalized]
	return normalized, ok
}

// IsActive reports whether the job still holds the listing's exclusivity slot.
func (s JobStatus) IsActive() bool {
	return s == JobQueued || s == JobProcessing
}

// IsTerminal reports whether the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ScriptStatus represents the review lifecycle of a script document.
type ScriptStatus string

const (
	ScriptDraft           ScriptStatus = "draft"
	ScriptPendingApproval ScriptStatus = "pending_approval"
	ScriptApproved        ScriptStatus = "approved"
	ScriptRejected        ScriptStatus = "rejected"
)

// VideoStatus represents the review lifecycle of a video document.
type VideoStatus string

const (
	VideoProcessing VideoStatus = "processing"
	VideoReady      VideoStatus = "ready"
	VideoApproved   VideoStatus = "approved"
	VideoRejected   VideoStatus = "rejected"
	VideoPublished  VideoStatus = "published"
)

// Assets groups the optional artifact references attached to a listing.
type Assets struct {
	PhotosDir    string
	ProcessedDir string
	ScriptRef    string
	VoiceoverRef string
	QRRef        string
	VideoRef     string
}

// Listing represents one dealer vehicle record persisted in SQLite. Vehicle
// attributes are immutable for orchestration purposes; status, error
// annotations, and asset references are owned by the coordinator, review
// gate, and regeneration controller.
type Listing struct {
	ID           int64
	DealerID     string
	StockNumber  string
	VIN          string
	Year         int
	Make         string
	Model        string
	Price        float64
	Condition    string
	Color        string
	Odometer     int64
	Engine       string
	Description  string
	ListingURL   string
	PhotoURLs    string
	Status       pipeline.Status
	ErrorStage   pipeline.StageType
	ErrorMessage string
	Assets       Assets
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the operator-facing label for the listing.
func (l *Listing) DisplayName() string {
	parts := make([]string, 0, 3)
	if l.Year > 0 {
		parts = append(parts, strconv.Itoa(l.Year))
	}
	if l.Make != "" {
		parts = append(parts, l.Make)
	}
	if l.Model != "" {
		parts = append(parts, l.Model)
	}
	if len(parts) == 0 {
		return l.StockNumber
	}
	return strings.Join(parts, " ")
}

// SetError parks the listing in the error state annotated with the failing
// stage so an operator retry re-enters exactly that stage.
func (l *Listing) SetError(stage pipeline.StageType, message string) {
	l.Status = pipeline.StatusError
	l.ErrorStage = stage
	l.ErrorMessage = message
}

// ClearError resets the error annotations after a successful transition.
func (l *Listing) ClearError() {
	l.ErrorStage = ""
	l.ErrorMessage = ""
}

// Job represents one tracked execution attempt of a stage against a listing.
// Immutable once completed or failed.
type Job struct {
	ID           string
	ListingID    int64
	StageType    pipeline.StageType
	Status       JobStatus
	Progress     float64
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time

	// LastHeartbeat is stamped by the running worker so an operator (or the
	// startup recovery sweep) can tell a live job from an orphaned row.
	LastHeartbeat *time.Time
}

// Script is the single live script document for a listing. Every content
// mutation pushes the previous content onto the version history first.
type Script struct {
	ID                int64
	ListingID         int64
	Content           string
	WordCount         int
	EstimatedDuration int // seconds
	Status            ScriptStatus
	RejectReason      string
	UpdatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ScriptVersion is one entry in a script's append-only history.
type ScriptVersion struct {
	ID        int64
	ScriptID  int64
	Position  int
	Content   string
	CreatedAt time.Time
	CreatedBy string
}

// Video is the live video document for a listing. Regeneration supersedes it
// with a new row rather than mutating a published record.
type Video struct {
	ID           int64
	ListingID    int64
	Path         string
	Duration     float64 // seconds
	Resolution   string
	FileSize     int64
	Status       VideoStatus
	RejectReason string
	ApprovedBy   string
	ApprovedAt   *time.Time
	PublishedAt  *time.Time
	PublicURL    string
	CreatedAt    time.Time
}

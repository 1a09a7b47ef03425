package pipeline

import "strings"

// Status represents the lifecycle of a listing.
type Status string

const (
	StatusPending            Status = "pending"
	StatusImagesDownloaded   Status = "images_downloaded"
	StatusImagesProcessed    Status = "images_processed"
	StatusScriptGenerated    Status = "script_generated"
	StatusScriptApproved     Status = "script_approved"
	StatusVoiceoverGenerated Status = "voiceover_generated"
	StatusVideoGenerated     Status = "video_generated"
	StatusVideoApproved      Status = "video_approved"
	StatusPublished          Status = "published"
	StatusError              Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusImagesDownloaded,
	StatusImagesProcessed,
	StatusScriptGenerated,
	StatusScriptApproved,
	StatusVoiceoverGenerated,
	StatusVideoGenerated,
	StatusVideoApproved,
	StatusPublished,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the pipeline. Published is the only
// terminal status; error is absorbing but recoverable via retry.
func (s Status) IsTerminal() bool {
	return s == StatusPublished
}

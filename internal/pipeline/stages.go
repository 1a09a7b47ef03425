package pipeline

import "strings"

// StageType identifies one generation step in the pipeline.
type StageType string

const (
	StageImageDownload     StageType = "image_download"
	StageImageProcess      StageType = "image_process"
	StageScriptGenerate    StageType = "script_generate"
	StageVoiceoverGenerate StageType = "voiceover_generate"
	StageQRGenerate        StageType = "qr_generate"
	StageVideoCompose      StageType = "video_compose"
)

// stageSpec ties a stage to the single listing status it requires and the
// status it produces on success. qr_generate is a side-artifact stage: it
// leaves the listing status unchanged.
type stageSpec struct {
	requires Status
	produces Status
}

var stageTable = map[StageType]stageSpec{
	StageImageDownload:     {requires: StatusPending, produces: StatusImagesDownloaded},
	StageImageProcess:      {requires: StatusImagesDownloaded, produces: StatusImagesProcessed},
	StageScriptGenerate:    {requires: StatusImagesProcessed, produces: StatusScriptGenerated},
	StageVoiceoverGenerate: {requires: StatusScriptApproved, produces: StatusVoiceoverGenerated},
	StageQRGenerate:        {requires: StatusVoiceoverGenerated, produces: StatusVoiceoverGenerated},
	StageVideoCompose:      {requires: StatusVoiceoverGenerated, produces: StatusVideoGenerated},
}

var allStages = []StageType{
	StageImageDownload,
	StageImageProcess,
	StageScriptGenerate,
	StageVoiceoverGenerate,
	StageQRGenerate,
	StageVideoCompose,
}

// AllStages returns the pipeline stages in execution order.
func AllStages() []StageType {
	cp := make([]StageType, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known StageType.
func ParseStage(value string) (StageType, bool) {
	normalized := StageType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageTable[normalized]
	return normalized, ok
}

// RequiredStatus returns the listing status a stage demands before it may run.
func RequiredStatus(stage StageType) (Status, bool) {
	spec, ok := stageTable[stage]
	return spec.requires, ok
}

// SuccessStatus returns the listing status a stage produces on success.
func SuccessStatus(stage StageType) (Status, bool) {
	spec, ok := stageTable[stage]
	return spec.produces, ok
}

// CanTransition reports whether a stage may run against a listing in the given
// status. A listing parked in error re-enters exactly the stage that failed,
// recorded in errorStage.
func CanTransition(current Status, errorStage StageType, stage StageType) bool {
	spec, ok := stageTable[stage]
	if !ok {
		return false
	}
	if current == StatusError {
		return errorStage == stage
	}
	return current == spec.requires
}

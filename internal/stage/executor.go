package stage

import (
	"context"

	"lotreel/internal/catalog"
	"lotreel/internal/pipeline"
)

// Request carries everything an executor needs for one job run. AssetsDir is
// the listing's private directory under the configured assets root. Script is
// the listing's live script document, set only for stages that consume it.
type Request struct {
	Listing   *catalog.Listing
	Job       *catalog.Job
	Script    *catalog.Script
	AssetsDir string
}

// Result reports what an executor produced. Executors fill only the fields
// their artifact type has: every executor sets ArtifactPath, the script
// generator additionally returns the script text, and the video composer
// reports playback metadata.
type Result struct {
	ArtifactPath  string
	ScriptContent string
	Duration      float64
	Resolution    string
	FileSize      int64
}

// Executor describes the contract the coordinator needs from each stage.
type Executor interface {
	StageType() pipeline.StageType
	Execute(context.Context, Request) (Result, error)
	HealthCheck(context.Context) Health
}

// ProgressFunc receives fractional completion updates from a running
// executor. Implementations must be safe for concurrent use.
type ProgressFunc func(percent float64)

// ProgressReporter is implemented by executors that can report incremental
// progress while running.
type ProgressReporter interface {
	SetProgressFunc(ProgressFunc)
}

// Set holds the executor registry keyed by stage type.
type Set struct {
	executors map[pipeline.StageType]Executor
}

// NewSet builds a registry from the provided executors. Later entries for the
// same stage type replace earlier ones.
func NewSet(executors ...Executor) *Set {
	set := &Set{executors: make(map[pipeline.StageType]Executor, len(executors))}
	for _, executor := range executors {
		if executor == nil {
			continue
		}
		set.executors[executor.StageType()] = executor
	}
	return set
}

// Lookup returns the executor registered for the stage type.
func (s *Set) Lookup(stageType pipeline.StageType) (Executor, bool) {
	if s == nil {
		return nil, false
	}
	executor, ok := s.executors[stageType]
	return executor, ok
}

// Health checks every registered executor and returns the reports in
// pipeline order.
func (s *Set) Health(ctx context.Context) []Health {
	if s == nil {
		return nil
	}
	reports := make([]Health, 0, len(s.executors))
	for _, stageType := range pipeline.AllStages() {
		executor, ok := s.executors[stageType]
		if !ok {
			continue
		}
		reports = append(reports, executor.HealthCheck(ctx))
	}
	return reports
}

package stage_test

import (
	"context"
	"testing"

	"lotreel/internal/pipeline"
	"lotreel/internal/stage"
)

type fakeExecutor struct {
	stageType pipeline.StageType
	ready     bool
}

func (f *fakeExecutor) StageType() pipeline.StageType { return f.stageType }

func (f *fakeExecutor) Execute(context.Context, stage.Request) (stage.Result, error) {
	return stage.Result{}, nil
}

func (f *fakeExecutor) HealthCheck(context.Context) stage.Health {
	if f.ready {
		return stage.Healthy(string(f.stageType))
	}
	return stage.Unhealthy(string(f.stageType), "binary missing")
}

func TestSetLookup(t *testing.T) {
	set := stage.NewSet(
		&fakeExecutor{stageType: pipeline.StageImageDownload, ready: true},
		&fakeExecutor{stageType: pipeline.StageVideoCompose, ready: false},
	)

	if _, ok := set.Lookup(pipeline.StageImageDownload); !ok {
		t.Fatal("expected image_download executor")
	}
	if _, ok := set.Lookup(pipeline.StageScriptGenerate); ok {
		t.Fatal("did not expect script_generate executor")
	}
}

func TestSetHealthPipelineOrder(t *testing.T) {
	set := stage.NewSet(
		&fakeExecutor{stageType: pipeline.StageVideoCompose, ready: false},
		&fakeExecutor{stageType: pipeline.StageImageDownload, ready: true},
	)

	reports := set.Health(context.Background())
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Name != string(pipeline.StageImageDownload) || !reports[0].Ready {
		t.Fatalf("unexpected first report: %#v", reports[0])
	}
	if reports[1].Name != string(pipeline.StageVideoCompose) || reports[1].Ready {
		t.Fatalf("unexpected second report: %#v", reports[1])
	}
}

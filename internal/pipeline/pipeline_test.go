package pipeline_test

import (
	"testing"

	"lotreel/internal/pipeline"
)

func TestCanTransitionForwardChain(t *testing.T) {
	cases := []struct {
		current pipeline.Status
		stage   pipeline.StageType
		want    bool
	}{
		{pipeline.StatusPending, pipeline.StageImageDownload, true},
		{pipeline.StatusImagesDownloaded, pipeline.StageImageProcess, true},
		{pipeline.StatusImagesProcessed, pipeline.StageScriptGenerate, true},
		{pipeline.StatusScriptApproved, pipeline.StageVoiceoverGenerate, true},
		{pipeline.StatusVoiceoverGenerated, pipeline.StageQRGenerate, true},
		{pipeline.StatusVoiceoverGenerated, pipeline.StageVideoCompose, true},

		// No skipping stages.
		{pipeline.StatusPending, pipeline.StageImageProcess, false},
		{pipeline.StatusPending, pipeline.StageVideoCompose, false},
		// No re-running a stage the listing is already past.
		{pipeline.StatusImagesProcessed, pipeline.StageImageDownload, false},
		{pipeline.StatusVideoGenerated, pipeline.StageVideoCompose, false},
		// Script must be approved before voiceover.
		{pipeline.StatusScriptGenerated, pipeline.StageVoiceoverGenerate, false},
		// Published is terminal for dispatch purposes.
		{pipeline.StatusPublished, pipeline.StageVideoCompose, false},
	}
	for _, tc := range cases {
		got := pipeline.CanTransition(tc.current, "", tc.stage)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.current, tc.stage, got, tc.want)
		}
	}
}

func TestCanTransitionErrorReentersFailedStage(t *testing.T) {
	if !pipeline.CanTransition(pipeline.StatusError, pipeline.StageScriptGenerate, pipeline.StageScriptGenerate) {
		t.Fatal("expected retry of the failed stage to be legal")
	}
	if pipeline.CanTransition(pipeline.StatusError, pipeline.StageScriptGenerate, pipeline.StageVideoCompose) {
		t.Fatal("expected retry of a different stage to be rejected")
	}
}

func TestRequiredAndSuccessStatus(t *testing.T) {
	req, ok := pipeline.RequiredStatus(pipeline.StageVideoCompose)
	if !ok || req != pipeline.StatusVoiceoverGenerated {
		t.Fatalf("unexpected required status: %s %v", req, ok)
	}
	done, ok := pipeline.SuccessStatus(pipeline.StageVideoCompose)
	if !ok || done != pipeline.StatusVideoGenerated {
		t.Fatalf("unexpected success status: %s %v", done, ok)
	}

	// qr_generate leaves the listing status unchanged.
	req, _ = pipeline.RequiredStatus(pipeline.StageQRGenerate)
	done, _ = pipeline.SuccessStatus(pipeline.StageQRGenerate)
	if req != done || req != pipeline.StatusVoiceoverGenerated {
		t.Fatalf("qr stage should anchor at voiceover_generated, got %s -> %s", req, done)
	}

	if _, ok := pipeline.RequiredStatus(pipeline.StageType("bogus")); ok {
		t.Fatal("unknown stage should not resolve")
	}
}

func TestParseStage(t *testing.T) {
	stage, ok := pipeline.ParseStage("  Video_Compose ")
	if !ok || stage != pipeline.StageVideoCompose {
		t.Fatalf("unexpected parse result: %s %v", stage, ok)
	}
	if _, ok := pipeline.ParseStage("rip_disc"); ok {
		t.Fatal("unknown stage should fail to parse")
	}
}

func TestTransitiveDownstream(t *testing.T) {
	got := pipeline.TransitiveDownstream(pipeline.StageScriptGenerate)
	want := []pipeline.StageType{pipeline.StageVoiceoverGenerate, pipeline.StageVideoCompose}
	if len(got) != len(want) {
		t.Fatalf("unexpected downstream set: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected downstream order: %v", got)
		}
	}

	if got := pipeline.TransitiveDownstream(pipeline.StageVideoCompose); len(got) != 0 {
		t.Fatalf("video_compose should have no downstream, got %v", got)
	}

	// Regenerating images invalidates the video but not the script.
	got = pipeline.TransitiveDownstream(pipeline.StageImageDownload)
	for _, s := range got {
		if s == pipeline.StageScriptGenerate || s == pipeline.StageVoiceoverGenerate {
			t.Fatalf("image regeneration should not invalidate script artifacts: %v", got)
		}
	}
	foundCompose := false
	for _, s := range got {
		if s == pipeline.StageVideoCompose {
			foundCompose = true
		}
	}
	if !foundCompose {
		t.Fatalf("image regeneration should invalidate the composed video: %v", got)
	}
}

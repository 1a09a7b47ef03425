package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lotreel/internal/catalog"
	"lotreel/internal/coordinator"
	"lotreel/internal/logging"
	"lotreel/internal/notifications"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
	"lotreel/internal/testsupport"
)

type fakeExec struct {
	stageType pipeline.StageType
	execute   func(context.Context, stage.Request) (stage.Result, error)
}

func (f *fakeExec) StageType() pipeline.StageType { return f.stageType }

func (f *fakeExec) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	if f.execute == nil {
		return stage.Result{ArtifactPath: "/tmp/artifact"}, nil
	}
	return f.execute(ctx, req)
}

func (f *fakeExec) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(string(f.stageType))
}

func allFakeExecutors(overrides map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error)) *stage.Set {
	executors := make([]stage.Executor, 0, len(pipeline.AllStages()))
	for _, stageType := range pipeline.AllStages() {
		executors = append(executors, &fakeExec{stageType: stageType, execute: overrides[stageType]})
	}
	return stage.NewSet(executors...)
}

func waitForTerminalJob(t *testing.T, store *catalog.Store, jobID string) *catalog.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestDispatchRunsStageAndAdvancesListing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageImageDownload: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{ArtifactPath: req.AssetsDir + "/photos"}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageDownload)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	done := waitForTerminalJob(t, store, job.ID)
	if done.Status != catalog.JobCompleted {
		t.Fatalf("expected completed job, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", done.Progress)
	}
	if done.LastHeartbeat == nil {
		t.Fatal("expected the run to stamp a heartbeat")
	}

	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("GetListing failed: %v", err)
	}
	if fresh.Status != pipeline.StatusImagesDownloaded {
		t.Fatalf("expected images_downloaded, got %s", fresh.Status)
	}
	if fresh.Assets.PhotosDir == "" {
		t.Fatal("expected photos dir recorded on listing")
	}
}

func TestDispatchRejectsSecondActiveJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	release := make(chan struct{})
	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageImageDownload: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			<-release
			return stage.Result{ArtifactPath: "/tmp/photos"}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageDownload)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	_, err = coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageDownload)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	close(release)
	waitForTerminalJob(t, store, job.ID)
}

func TestDispatchRejectsInvalidTransition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	coord := coordinator.New(cfg, store, allFakeExecutors(nil), notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	_, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageVideoCompose)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestScriptStageCreatesPendingScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	// Walk the listing into images_processed first.
	listing.Status = pipeline.StatusImagesProcessed
	if err := store.UpdateListingState(context.Background(), listing); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}

	const scriptText = "Take a look at this twenty twenty one Honda Civic today."
	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageScriptGenerate: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{ArtifactPath: req.AssetsDir + "/script.txt", ScriptContent: scriptText}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageScriptGenerate)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	done := waitForTerminalJob(t, store, job.ID)
	if done.Status != catalog.JobCompleted {
		t.Fatalf("expected completed job, got %s (%s)", done.Status, done.ErrorMessage)
	}

	script, err := store.GetScriptByListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("GetScriptByListing failed: %v", err)
	}
	if script.Status != catalog.ScriptPendingApproval {
		t.Fatalf("expected pending_approval, got %s", script.Status)
	}
	if script.WordCount != 11 {
		t.Fatalf("expected word count 11, got %d", script.WordCount)
	}
	// ceil(11 / 2.5) = 5 seconds.
	if script.EstimatedDuration != 5 {
		t.Fatalf("expected estimated duration 5, got %d", script.EstimatedDuration)
	}
}

func TestScriptRegenerationPushesVersionHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	listing.Status = pipeline.StatusImagesProcessed
	if err := store.UpdateListingState(context.Background(), listing); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}

	var generation int
	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageScriptGenerate: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			generation++
			return stage.Result{
				ArtifactPath:  req.AssetsDir + "/script.txt",
				ScriptContent: fmt.Sprintf("generation %d content", generation),
			}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageScriptGenerate)
	if err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}
	waitForTerminalJob(t, store, job.ID)

	// Rewind the listing so the stage may run again.
	fresh, _ := store.GetListing(context.Background(), listing.ID)
	fresh.Status = pipeline.StatusImagesProcessed
	if err := store.UpdateListingState(context.Background(), fresh); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}

	job, err = coord.Dispatch(context.Background(), listing.ID, pipeline.StageScriptGenerate)
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}
	waitForTerminalJob(t, store, job.ID)

	script, err := store.GetScriptByListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("GetScriptByListing failed: %v", err)
	}
	if script.Content != "generation 2 content" {
		t.Fatalf("unexpected live content %q", script.Content)
	}
	versions, err := store.ListScriptVersions(context.Background(), script.ID)
	if err != nil {
		t.Fatalf("ListScriptVersions failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Content != "generation 1 content" {
		t.Fatalf("expected one version holding generation 1, got %#v", versions)
	}
}

func TestStageFailureParksListingInError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageImageDownload: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{}, services.Wrap(services.ErrExternalTool,
				string(pipeline.StageImageDownload), "download photo", "source returned 503", nil)
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageDownload)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	done := waitForTerminalJob(t, store, job.ID)
	if done.Status != catalog.JobFailed {
		t.Fatalf("expected failed job, got %s", done.Status)
	}
	if done.ErrorKind != "external" {
		t.Fatalf("expected external error kind, got %q", done.ErrorKind)
	}

	fresh, _ := store.GetListing(context.Background(), listing.ID)
	if fresh.Status != pipeline.StatusError {
		t.Fatalf("expected error status, got %s", fresh.Status)
	}
	if fresh.ErrorStage != pipeline.StageImageDownload {
		t.Fatalf("expected error stage image_download, got %s", fresh.ErrorStage)
	}

	// Error re-entry: only the failed stage may run.
	if _, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageProcess); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for other stage, got %v", err)
	}
	retry, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageImageDownload)
	if err != nil {
		t.Fatalf("retry Dispatch failed: %v", err)
	}
	done = waitForTerminalJob(t, store, retry.ID)
	if done.Status != catalog.JobFailed {
		t.Fatalf("expected failed retry, got %s", done.Status)
	}
}

func TestScriptTimeoutLeavesNoScriptDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	listing.Status = pipeline.StatusImagesProcessed
	if err := store.UpdateListingState(context.Background(), listing); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}

	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageScriptGenerate: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{}, services.Wrap(services.ErrTimeout,
				string(pipeline.StageScriptGenerate), "complete", "", context.DeadlineExceeded)
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(context.Background(), listing.ID, pipeline.StageScriptGenerate)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	done := waitForTerminalJob(t, store, job.ID)
	if done.Status != catalog.JobFailed || done.ErrorKind != "timeout" {
		t.Fatalf("expected failed job with timeout kind, got %s/%s", done.Status, done.ErrorKind)
	}

	fresh, _ := store.GetListing(context.Background(), listing.ID)
	if fresh.Status != pipeline.StatusError || fresh.ErrorStage != pipeline.StageScriptGenerate {
		t.Fatalf("expected error state annotated with script_generate, got %s/%s", fresh.Status, fresh.ErrorStage)
	}

	if _, err := store.GetScriptByListing(context.Background(), listing.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no script document, got %v", err)
	}
}

func TestVideoComposeCreatesReadyVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	ctx := context.Background()
	listing.Status = pipeline.StatusVoiceoverGenerated
	listing.Assets.ProcessedDir = "/tmp/processed"
	listing.Assets.VoiceoverRef = "/tmp/voiceover.wav"
	if err := store.UpdateListingState(ctx, listing); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}
	err := store.WithTx(ctx, func(tx *catalog.Tx) error {
		script := &catalog.Script{ListingID: listing.ID, Status: catalog.ScriptApproved}
		script.ApplyContent("a script of exactly seven words here")
		_, txErr := tx.InsertScript(ctx, script)
		return txErr
	})
	if err != nil {
		t.Fatalf("InsertScript failed: %v", err)
	}

	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageVideoCompose: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{
				ArtifactPath: req.AssetsDir + "/video.mp4",
				Resolution:   "1080x1920",
				FileSize:     4096,
			}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(ctx, listing.ID, pipeline.StageVideoCompose)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	done := waitForTerminalJob(t, store, job.ID)
	if done.Status != catalog.JobCompleted {
		t.Fatalf("expected completed job, got %s (%s)", done.Status, done.ErrorMessage)
	}

	video, err := store.CurrentVideoForListing(ctx, listing.ID)
	if err != nil {
		t.Fatalf("CurrentVideoForListing failed: %v", err)
	}
	if video == nil || video.Status != catalog.VideoReady {
		t.Fatalf("expected ready video, got %#v", video)
	}
	// Duration falls back to the script's narration estimate: ceil(7/2.5) = 3.
	if video.Duration != 3 {
		t.Fatalf("expected duration 3, got %v", video.Duration)
	}

	fresh, _ := store.GetListing(ctx, listing.ID)
	if fresh.Status != pipeline.StatusVideoGenerated {
		t.Fatalf("expected video_generated, got %s", fresh.Status)
	}
}

func TestQRStageLeavesStatusAnchored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	listing := testsupport.NewListing(t, store, "dealer-1", "STK1001")

	ctx := context.Background()
	listing.Status = pipeline.StatusVoiceoverGenerated
	if err := store.UpdateListingState(ctx, listing); err != nil {
		t.Fatalf("UpdateListingState failed: %v", err)
	}

	set := allFakeExecutors(map[pipeline.StageType]func(context.Context, stage.Request) (stage.Result, error){
		pipeline.StageQRGenerate: func(ctx context.Context, req stage.Request) (stage.Result, error) {
			return stage.Result{ArtifactPath: req.AssetsDir + "/qr.png"}, nil
		},
	})
	coord := coordinator.New(cfg, store, set, notifications.NewService(cfg), logging.NewNop())
	defer func() { _ = coord.Shutdown(context.Background()) }()

	job, err := coord.Dispatch(ctx, listing.ID, pipeline.StageQRGenerate)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	waitForTerminalJob(t, store, job.ID)

	fresh, _ := store.GetListing(ctx, listing.ID)
	if fresh.Status != pipeline.StatusVoiceoverGenerated {
		t.Fatalf("expected status unchanged at voiceover_generated, got %s", fresh.Status)
	}
	if fresh.Assets.QRRef == "" {
		t.Fatal("expected qr artifact recorded")
	}
}

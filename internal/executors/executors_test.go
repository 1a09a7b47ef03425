package executors_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/executors"
	"lotreel/internal/llm"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
	"lotreel/internal/testsupport"
)

func newRequest(t *testing.T, cfg *config.Config) stage.Request {
	t.Helper()
	listing := &catalog.Listing{
		ID:          1,
		DealerID:    "dealer-1",
		StockNumber: "STK1001",
		Year:        2021,
		Make:        "Honda",
		Model:       "Civic",
		Price:       21995,
		Odometer:    34000,
		ListingURL:  "https://dealer.example.com/inventory/STK1001",
	}
	assetsDir := cfg.ListingAssetDir(listing.DealerID, listing.StockNumber)
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		t.Fatalf("mkdir assets: %v", err)
	}
	return stage.Request{
		Listing:   listing,
		Job:       &catalog.Job{ID: "job-1", ListingID: 1},
		AssetsDir: assetsDir,
	}
}

func TestImageDownloaderFetchesPhotos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	req.Listing.PhotoURLs = `["` + server.URL + `/a.jpg","` + server.URL + `/b.jpg"]`

	downloader := executors.NewImageDownloader(cfg, logging.NewNop())
	result, err := downloader.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	entries, err := os.ReadDir(result.ArtifactPath)
	if err != nil {
		t.Fatalf("read photos dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(entries))
	}
}

func TestImageDownloaderRejectsEmptyPhotoList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	req.Listing.PhotoURLs = "[]"

	downloader := executors.NewImageDownloader(cfg, logging.NewNop())
	_, err := downloader.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImageDownloaderHonorsMaxImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Images.MaxImages = 1
	req := newRequest(t, cfg)
	req.Listing.PhotoURLs = `["` + server.URL + `/a.jpg","` + server.URL + `/b.jpg"]`

	downloader := executors.NewImageDownloader(cfg, logging.NewNop())
	result, err := downloader.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	entries, _ := os.ReadDir(result.ArtifactPath)
	if len(entries) != 1 {
		t.Fatalf("expected 1 photo, got %d", len(entries))
	}
}

func TestImageProcessorRunsToolPerPhoto(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)

	photosDir := filepath.Join(req.AssetsDir, "photos")
	testsupport.WriteFile(t, filepath.Join(photosDir, "photo_001.jpg"), 10)
	testsupport.WriteFile(t, filepath.Join(photosDir, "photo_002.jpg"), 10)
	req.Listing.Assets.PhotosDir = photosDir

	var calls int
	processor := executors.NewImageProcessor(cfg, logging.NewNop()).
		WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			calls++
			return nil
		})

	result, err := processor.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 tool invocations, got %d", calls)
	}
	if result.ArtifactPath != filepath.Join(req.AssetsDir, "processed") {
		t.Fatalf("unexpected artifact path %q", result.ArtifactPath)
	}
}

func TestImageProcessorClassifiesTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	testsupport.WriteFile(t, filepath.Join(req.AssetsDir, "photos", "photo_001.jpg"), 10)

	processor := executors.NewImageProcessor(cfg, logging.NewNop()).
		WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			return context.DeadlineExceeded
		})

	_, err := processor.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestScriptGeneratorWritesScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"script\":\"Check out this 2021 Honda Civic.\"}"}}]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.LLM.BaseURL = server.URL
	req := newRequest(t, cfg)

	client := llm.NewClient(llm.Config{APIKey: cfg.LLM.APIKey, BaseURL: server.URL, Model: "test"})
	generator := executors.NewScriptGenerator(cfg, logging.NewNop(), client)

	result, err := generator.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.ScriptContent != "Check out this 2021 Honda Civic." {
		t.Fatalf("unexpected script content %q", result.ScriptContent)
	}
	data, err := os.ReadFile(result.ArtifactPath)
	if err != nil {
		t.Fatalf("read script file: %v", err)
	}
	if string(data) != result.ScriptContent+"\n" {
		t.Fatalf("script file does not match result: %q", data)
	}
}

func TestScriptGeneratorClassifiesServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)

	client := llm.NewClient(llm.Config{APIKey: cfg.LLM.APIKey, BaseURL: server.URL, Model: "test"})
	generator := executors.NewScriptGenerator(cfg, logging.NewNop(), client)

	_, err := generator.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestVoiceoverGeneratorRequiresScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)

	generator := executors.NewVoiceoverGenerator(cfg, logging.NewNop())
	_, err := generator.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVoiceoverGeneratorSynthesizes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	req.Script = &catalog.Script{Content: "Check out this Civic.", WordCount: 4}

	generator := executors.NewVoiceoverGenerator(cfg, logging.NewNop()).
		WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			// The tool writes its output file.
			testsupport.WriteFile(t, filepath.Join(req.AssetsDir, "voiceover.wav"), 64)
			return nil
		})

	result, err := generator.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.ArtifactPath != filepath.Join(req.AssetsDir, "voiceover.wav") {
		t.Fatalf("unexpected artifact path %q", result.ArtifactPath)
	}
}

func TestQRGeneratorRequiresURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	req.Listing.ListingURL = ""

	generator := executors.NewQRGenerator(cfg, logging.NewNop())
	_, err := generator.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVideoComposerRequiresInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)

	composer := executors.NewVideoComposer(cfg, logging.NewNop())
	_, err := composer.Execute(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVideoComposerReportsMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg)
	req.Listing.Assets.ProcessedDir = filepath.Join(req.AssetsDir, "processed")
	req.Listing.Assets.VoiceoverRef = filepath.Join(req.AssetsDir, "voiceover.wav")
	testsupport.WriteFile(t, req.Listing.Assets.VoiceoverRef, 64)

	composer := executors.NewVideoComposer(cfg, logging.NewNop()).
		WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			testsupport.WriteFile(t, filepath.Join(req.AssetsDir, "video.mp4"), 2048)
			return nil
		})

	result, err := composer.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FileSize != 2048 {
		t.Fatalf("expected file size 2048, got %d", result.FileSize)
	}
	if result.Resolution == "" {
		t.Fatal("expected resolution to be reported")
	}
	if result.ArtifactPath != filepath.Join(req.AssetsDir, "video.mp4") {
		t.Fatalf("unexpected artifact path %q", result.ArtifactPath)
	}
}

func TestExecutorStageTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	nop := logging.NewNop()
	set := stage.NewSet(
		executors.NewImageDownloader(cfg, nop),
		executors.NewImageProcessor(cfg, nop),
		executors.NewScriptGenerator(cfg, nop, llm.NewClient(llm.Config{APIKey: "k"})),
		executors.NewVoiceoverGenerator(cfg, nop),
		executors.NewQRGenerator(cfg, nop),
		executors.NewVideoComposer(cfg, nop),
	)
	for _, stageType := range pipeline.AllStages() {
		if _, ok := set.Lookup(stageType); !ok {
			t.Fatalf("missing executor for stage %s", stageType)
		}
	}
}

package executors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

// ImageProcessor runs the background-removal tool over downloaded photos and
// writes the cleaned frames into the processed directory.
type ImageProcessor struct {
	cfg      *config.Config
	logger   *slog.Logger
	run      commandRunner
	progress stage.ProgressFunc
}

// NewImageProcessor constructs the image processing stage.
func NewImageProcessor(cfg *config.Config, logger *slog.Logger) *ImageProcessor {
	return &ImageProcessor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "image-process"),
		run:    runCommand,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *ImageProcessor) WithCommandRunner(run commandRunner) *ImageProcessor {
	if run != nil {
		p.run = run
	}
	return p
}

func (p *ImageProcessor) StageType() pipeline.StageType { return pipeline.StageImageProcess }

func (p *ImageProcessor) SetProgressFunc(fn stage.ProgressFunc) { p.progress = fn }

func (p *ImageProcessor) HealthCheck(context.Context) stage.Health {
	if detail, ok := binaryHealth(p.cfg.Images.ProcessCommand); !ok {
		return stage.Unhealthy(string(pipeline.StageImageProcess), detail)
	}
	return stage.Healthy(string(pipeline.StageImageProcess))
}

// Execute processes every photo in the listing's photos directory.
func (p *ImageProcessor) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	photosDir := req.Listing.Assets.PhotosDir
	if photosDir == "" {
		photosDir = filepath.Join(req.AssetsDir, "photos")
	}
	photos, err := listPhotos(photosDir)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageImageProcess), "list photos", photosDir, err)
	}
	if len(photos) == 0 {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageImageProcess), "list photos",
			fmt.Sprintf("no photos in %s", photosDir), nil)
	}

	processedDir := filepath.Join(req.AssetsDir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("create processed dir: %w", err)
	}

	for i, photo := range photos {
		dest := filepath.Join(processedDir, strings.TrimSuffix(filepath.Base(photo), filepath.Ext(photo))+".png")
		if err := p.run(ctx, p.cfg.Images.ProcessCommand, photo, dest); err != nil {
			return stage.Result{}, classifyCommandError(
				string(pipeline.StageImageProcess), "process photo", err)
		}
		if p.progress != nil {
			p.progress(float64(i+1) / float64(len(photos)) * 100)
		}
	}

	p.logger.Info("photos processed",
		logging.Int("count", len(photos)),
		logging.String("processed_dir", processedDir))
	return stage.Result{ArtifactPath: processedDir}, nil
}

func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var photos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp":
			photos = append(photos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(photos)
	return photos, nil
}

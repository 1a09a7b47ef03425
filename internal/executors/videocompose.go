package executors

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

// VideoComposer assembles the processed photos, voiceover, and QR overlay
// into the final listing video.
type VideoComposer struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// NewVideoComposer constructs the video composition stage.
func NewVideoComposer(cfg *config.Config, logger *slog.Logger) *VideoComposer {
	return &VideoComposer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "video-compose"),
		run:    runCommand,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *VideoComposer) WithCommandRunner(run commandRunner) *VideoComposer {
	if run != nil {
		c.run = run
	}
	return c
}

func (c *VideoComposer) StageType() pipeline.StageType { return pipeline.StageVideoCompose }

func (c *VideoComposer) HealthCheck(context.Context) stage.Health {
	if detail, ok := binaryHealth(c.cfg.Video.ComposeCommand); !ok {
		return stage.Unhealthy(string(pipeline.StageVideoCompose), detail)
	}
	return stage.Healthy(string(pipeline.StageVideoCompose))
}

// Execute composes the final video. The processed photo frames and the
// voiceover are required; the QR overlay is included when present.
func (c *VideoComposer) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	processedDir := req.Listing.Assets.ProcessedDir
	voicePath := req.Listing.Assets.VoiceoverRef
	if processedDir == "" || voicePath == "" {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageVideoCompose), "resolve inputs",
			"listing is missing processed photos or voiceover", nil)
	}

	resolution := strings.TrimSpace(c.cfg.Video.Resolution)
	if resolution == "" {
		resolution = "1080x1920"
	}

	videoPath := filepath.Join(req.AssetsDir, "video.mp4")
	args := []string{
		"--frames", processedDir,
		"--audio", voicePath,
		"--resolution", resolution,
		"--output", videoPath,
	}
	if qrPath := req.Listing.Assets.QRRef; qrPath != "" {
		args = append(args, "--overlay", qrPath)
	}
	if template := strings.TrimSpace(c.cfg.Video.Template); template != "" {
		args = append(args, "--template", template)
	}

	if err := c.run(ctx, c.cfg.Video.ComposeCommand, args...); err != nil {
		return stage.Result{}, classifyCommandError(
			string(pipeline.StageVideoCompose), "compose", err)
	}

	info, err := os.Stat(videoPath)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalTool,
			string(pipeline.StageVideoCompose), "compose",
			"tool exited cleanly but produced no video file", err)
	}

	c.logger.Info("video composed",
		logging.String("video_path", videoPath),
		logging.Int64("file_size", info.Size()),
		logging.String("resolution", resolution))
	return stage.Result{
		ArtifactPath: videoPath,
		Resolution:   resolution,
		FileSize:     info.Size(),
	}, nil
}

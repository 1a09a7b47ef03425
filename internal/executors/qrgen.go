package executors

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

// QRGenerator renders the listing's detail page URL as a QR code image for
// the video overlay.
type QRGenerator struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// NewQRGenerator constructs the QR code stage.
func NewQRGenerator(cfg *config.Config, logger *slog.Logger) *QRGenerator {
	return &QRGenerator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "qr-generate"),
		run:    runCommand,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (g *QRGenerator) WithCommandRunner(run commandRunner) *QRGenerator {
	if run != nil {
		g.run = run
	}
	return g
}

func (g *QRGenerator) StageType() pipeline.StageType { return pipeline.StageQRGenerate }

func (g *QRGenerator) HealthCheck(context.Context) stage.Health {
	if detail, ok := binaryHealth(g.cfg.QR.Command); !ok {
		return stage.Unhealthy(string(pipeline.StageQRGenerate), detail)
	}
	return stage.Healthy(string(pipeline.StageQRGenerate))
}

// Execute renders the QR code. A listing without a detail page URL cannot
// have one.
func (g *QRGenerator) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	listingURL := strings.TrimSpace(req.Listing.ListingURL)
	if listingURL == "" {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageQRGenerate), "resolve url", "listing has no detail page url", nil)
	}

	qrPath := filepath.Join(req.AssetsDir, "qr.png")
	size := g.cfg.QR.Size
	if size <= 0 {
		size = 6
	}
	args := []string{"-o", qrPath, "-s", fmt.Sprintf("%d", size), listingURL}

	if err := g.run(ctx, g.cfg.QR.Command, args...); err != nil {
		return stage.Result{}, classifyCommandError(
			string(pipeline.StageQRGenerate), "render", err)
	}

	g.logger.Info("qr code rendered",
		logging.String("qr_path", qrPath),
		logging.String("url", listingURL))
	return stage.Result{ArtifactPath: qrPath}, nil
}

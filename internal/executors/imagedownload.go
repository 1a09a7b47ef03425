package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

const defaultDownloadTimeout = 30 * time.Second

// ImageDownloader fetches a listing's source photos into the photos
// directory.
type ImageDownloader struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	progress   stage.ProgressFunc
}

// NewImageDownloader constructs the photo download stage.
func NewImageDownloader(cfg *config.Config, logger *slog.Logger) *ImageDownloader {
	return &ImageDownloader{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "image-download"),
		httpClient: &http.Client{Timeout: defaultDownloadTimeout},
	}
}

// WithHTTPClient overrides the download client (for testing).
func (d *ImageDownloader) WithHTTPClient(client *http.Client) *ImageDownloader {
	if client != nil {
		d.httpClient = client
	}
	return d
}

func (d *ImageDownloader) StageType() pipeline.StageType { return pipeline.StageImageDownload }

func (d *ImageDownloader) SetProgressFunc(fn stage.ProgressFunc) { d.progress = fn }

func (d *ImageDownloader) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(string(pipeline.StageImageDownload))
}

// Execute downloads every photo URL recorded on the listing. A listing with
// no usable photo URLs is a validation failure, not an external one.
func (d *ImageDownloader) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	urls, err := parsePhotoURLs(req.Listing.PhotoURLs)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageImageDownload), "parse photo urls", "", err)
	}
	if len(urls) == 0 {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageImageDownload), "parse photo urls", "listing has no photo urls", nil)
	}
	if max := d.cfg.Images.MaxImages; max > 0 && len(urls) > max {
		urls = urls[:max]
	}

	photosDir := filepath.Join(req.AssetsDir, "photos")
	if err := os.MkdirAll(photosDir, 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("create photos dir: %w", err)
	}

	for i, photoURL := range urls {
		dest := filepath.Join(photosDir, fmt.Sprintf("photo_%03d%s", i+1, extensionFor(photoURL)))
		if err := d.downloadOne(ctx, photoURL, dest); err != nil {
			return stage.Result{}, err
		}
		if d.progress != nil {
			d.progress(float64(i+1) / float64(len(urls)) * 100)
		}
	}

	d.logger.Info("photos downloaded",
		logging.Int("count", len(urls)),
		logging.String("photos_dir", photosDir))
	return stage.Result{ArtifactPath: photosDir}, nil
}

func (d *ImageDownloader) downloadOne(ctx context.Context, photoURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation,
			string(pipeline.StageImageDownload), "build request", photoURL, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout,
				string(pipeline.StageImageDownload), "download photo", photoURL, ctx.Err())
		}
		return services.Wrap(services.ErrTransient,
			string(pipeline.StageImageDownload), "download photo", photoURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool,
			string(pipeline.StageImageDownload), "download photo",
			fmt.Sprintf("%s returned http %d", photoURL, resp.StatusCode), nil)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrTransient,
			string(pipeline.StageImageDownload), "write photo", dest, err)
	}
	return nil
}

func parsePhotoURLs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, fmt.Errorf("photo urls are not a json array: %w", err)
	}
	cleaned := urls[:0]
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	return cleaned, nil
}

func extensionFor(photoURL string) string {
	trimmed := photoURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lotreel/internal/config"
	"lotreel/internal/logging"
	"lotreel/internal/services"
)

// Environment variables holding object storage credentials. Credentials are
// never read from the config file.
const (
	EnvAccessKey = "LOTREEL_S3_ACCESS_KEY"
	EnvSecretKey = "LOTREEL_S3_SECRET_KEY"
)

// Uploader pushes approved videos to object storage at publish time.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectKey string) (string, error)
}

// New builds an uploader backed by the configured S3-compatible endpoint.
// When no endpoint is configured, a noop implementation is returned and
// publishing keeps videos local.
func New(cfg *config.Config, logger *slog.Logger) (Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Storage.Endpoint)
	if endpoint == "" {
		return noopUploader{}, nil
	}

	accessKey := strings.TrimSpace(os.Getenv(EnvAccessKey))
	secretKey := strings.TrimSpace(os.Getenv(EnvSecretKey))
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("storage endpoint configured but %s/%s not set", EnvAccessKey, EnvSecretKey)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.Storage.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &s3Uploader{
		client:        client,
		bucket:        strings.TrimSpace(cfg.Storage.Bucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.Storage.PublicBaseURL), "/"),
		logger:        logging.NewComponentLogger(logger, "uploader"),
	}, nil
}

type s3Uploader struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

// Upload stores the file under objectKey and returns the public URL the
// published listing should reference.
func (u *s3Uploader) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	info, err := u.client.FPutObject(ctx, u.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "upload video",
			fmt.Sprintf("put %s to bucket %s", objectKey, u.bucket), err)
	}

	u.logger.Info("video uploaded",
		logging.String("bucket", u.bucket),
		logging.String("object_key", objectKey),
		logging.Int64("size", info.Size))

	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + objectKey, nil
	}
	return path.Join(u.bucket, objectKey), nil
}

type noopUploader struct{}

// Upload on the noop uploader leaves the video local and returns no URL.
func (noopUploader) Upload(context.Context, string, string) (string, error) {
	return "", nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"lotreel/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	AssetsDir string `toml:"assets_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// LLM contains connection settings for the script-generation service.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Voice contains configuration for the voiceover synthesis worker.
type Voice struct {
	Command string `toml:"command"`
	Name    string `toml:"name"`
	Style   string `toml:"style"`
}

// Images contains configuration for image download and processing.
type Images struct {
	ProcessCommand string `toml:"process_command"`
	MaxImages      int    `toml:"max_images"`
}

// QR contains configuration for QR code generation.
type QR struct {
	Command string `toml:"command"`
	Size    int    `toml:"size"`
}

// Video contains configuration for the video composition worker.
type Video struct {
	ComposeCommand string `toml:"compose_command"`
	Template       string `toml:"template"`
	Resolution     string `toml:"resolution"`
}

// Stages contains per-stage executor timeouts in seconds.
type Stages struct {
	DownloadTimeout  int `toml:"download_timeout"`
	ProcessTimeout   int `toml:"process_timeout"`
	ScriptTimeout    int `toml:"script_timeout"`
	VoiceoverTimeout int `toml:"voiceover_timeout"`
	QRTimeout        int `toml:"qr_timeout"`
	ComposeTimeout   int `toml:"compose_timeout"`
}

// Storage contains object storage settings used when publishing videos.
// Credentials are resolved from the environment, never from the config file.
type Storage struct {
	Endpoint      string `toml:"endpoint"`
	Bucket        string `toml:"bucket"`
	Secure        bool   `toml:"secure"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
	Review         bool   `toml:"review"`
	Publish        bool   `toml:"publish"`
}

// Workflow contains configuration for coordinator concurrency.
type Workflow struct {
	MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
	// HeartbeatInterval is how often (in seconds) a running job stamps its
	// liveness so orphaned rows are distinguishable after a crash.
	HeartbeatInterval int `toml:"heartbeat_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lotreel.
//
// Configuration sections by subsystem:
//   - Paths: asset/log directories and API bind address
//   - LLM: script generation service connection
//   - Voice, Images, QR, Video: external worker commands and options
//   - Stages: per-stage executor timeouts
//   - Storage: object storage target for published videos
//   - Notifications: ntfy push notification settings
//   - Workflow: coordinator concurrency bounds
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Voice         Voice         `toml:"voice"`
	Images        Images        `toml:"images"`
	QR            QR            `toml:"qr"`
	Video         Video         `toml:"video"`
	Stages        Stages        `toml:"stages"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lotreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lotreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.AssetsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ListingAssetDir returns the asset directory for a listing identified by
// dealer and stock number. Identifiers are sanitized so feed data can never
// escape the assets root.
func (c *Config) ListingAssetDir(dealerID, stockNumber string) string {
	return filepath.Join(c.Paths.AssetsDir,
		textutil.SanitizeToken(dealerID), textutil.SanitizeToken(stockNumber))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

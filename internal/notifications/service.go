package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lotreel/internal/config"
)

const userAgent = "Lotreel-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyStageFailed(ctx context.Context, listingName, stageName string, err error) error
	NotifyScriptReady(ctx context.Context, listingName string) error
	NotifyVideoReady(ctx context.Context, listingName string) error
	NotifyPublished(ctx context.Context, listingName, publicURL string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		sendErrors:  cfg.Notifications.Errors,
		sendReview:  cfg.Notifications.Review,
		sendPublish: cfg.Notifications.Publish,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	sendErrors  bool
	sendReview  bool
	sendPublish bool
}

func (n *ntfyService) NotifyStageFailed(ctx context.Context, listingName, stageName string, err error) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Stage failed")
	if stageName = strings.TrimSpace(stageName); stageName != "" {
		builder.WriteString(": ")
		builder.WriteString(stageName)
	}
	if listingName = strings.TrimSpace(listingName); listingName != "" {
		builder.WriteString(" for ")
		builder.WriteString(listingName)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Lotreel - Stage Failed",
		message:  builder.String(),
		tags:     []string{"lotreel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScriptReady(ctx context.Context, listingName string) error {
	if !n.sendReview {
		return nil
	}
	data := payload{
		title:   "Lotreel - Script Ready",
		message: fmt.Sprintf("Script awaiting review: %s", strings.TrimSpace(listingName)),
		tags:    []string{"lotreel", "script", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideoReady(ctx context.Context, listingName string) error {
	if !n.sendReview {
		return nil
	}
	data := payload{
		title:   "Lotreel - Video Ready",
		message: fmt.Sprintf("Video awaiting review: %s", strings.TrimSpace(listingName)),
		tags:    []string{"lotreel", "video", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, listingName, publicURL string) error {
	if !n.sendPublish {
		return nil
	}
	listingName = strings.TrimSpace(listingName)
	message := fmt.Sprintf("Published: %s", listingName)
	if publicURL = strings.TrimSpace(publicURL); publicURL != "" {
		message = fmt.Sprintf("%s\n%s", message, publicURL)
	}
	data := payload{
		title:    "Lotreel - Published",
		message:  message,
		tags:     []string{"lotreel", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lotreel - Test",
		message:  "Notification system test",
		tags:     []string{"lotreel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStageFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyScriptReady(context.Context, string) error                { return nil }
func (noopService) NotifyVideoReady(context.Context, string) error                 { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }

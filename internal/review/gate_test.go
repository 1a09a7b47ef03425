package review

import (
	"context"
	"errors"
	"testing"

	"lotreel/internal/catalog"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/testsupport"
)

type fakeUploader struct {
	url   string
	err   error
	calls []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath, objectKey string) (string, error) {
	f.calls = append(f.calls, objectKey)
	if f.err != nil {
		return "", f.err
	}
	_ = localPath
	return f.url, nil
}

type recordingNotifier struct {
	published []string
}

func (r *recordingNotifier) NotifyStageFailed(context.Context, string, string, error) error {
	return nil
}
func (r *recordingNotifier) NotifyScriptReady(context.Context, string) error { return nil }
func (r *recordingNotifier) NotifyVideoReady(context.Context, string) error  { return nil }
func (r *recordingNotifier) NotifyPublished(_ context.Context, _ string, publicURL string) error {
	r.published = append(r.published, publicURL)
	return nil
}
func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func newGate(t *testing.T) (*Gate, *catalog.Store, *fakeUploader, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	uploads := &fakeUploader{url: "https://cdn.example.com/dealer-001/STK1001.mp4"}
	notifier := &recordingNotifier{}
	return NewGate(store, uploads, notifier, logging.NewNop()), store, uploads, notifier
}

func setListingStatus(t *testing.T, store *catalog.Store, listing *catalog.Listing, status pipeline.Status) {
	t.Helper()
	listing.Status = status
	if err := store.UpdateListingState(context.Background(), listing); err != nil {
		t.Fatalf("update listing state: %v", err)
	}
}

func seedScript(t *testing.T, store *catalog.Store, listingID int64, content string, status catalog.ScriptStatus) *catalog.Script {
	t.Helper()
	var script *catalog.Script
	err := store.WithTx(context.Background(), func(tx *catalog.Tx) error {
		draft := &catalog.Script{ListingID: listingID, Status: status}
		draft.ApplyContent(content)
		var txErr error
		script, txErr = tx.InsertScript(context.Background(), draft)
		return txErr
	})
	if err != nil {
		t.Fatalf("seed script: %v", err)
	}
	return script
}

func seedVideo(t *testing.T, store *catalog.Store, listingID int64, path string, status catalog.VideoStatus) *catalog.Video {
	t.Helper()
	var video *catalog.Video
	err := store.WithTx(context.Background(), func(tx *catalog.Tx) error {
		var txErr error
		video, txErr = tx.InsertVideo(context.Background(), &catalog.Video{
			ListingID:  listingID,
			Path:       path,
			Duration:   24,
			Resolution: "1080x1920",
			FileSize:   4096,
			Status:     status,
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func TestApproveScriptAdvancesListing(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusScriptGenerated)
	seedScript(t, store, listing.ID, "Sharp one-owner Civic with low miles.", catalog.ScriptPendingApproval)

	script, err := gate.ApproveScript(context.Background(), listing.ID, "tara")
	if err != nil {
		t.Fatalf("approve script: %v", err)
	}
	if script.Status != catalog.ScriptApproved {
		t.Fatalf("script status = %s, want approved", script.Status)
	}
	if script.UpdatedBy != "tara" {
		t.Fatalf("updated_by = %q, want tara", script.UpdatedBy)
	}

	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusScriptApproved {
		t.Fatalf("listing status = %s, want script_approved", fresh.Status)
	}
}

func TestApproveScriptRejectsDraft(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	seedScript(t, store, listing.ID, "Draft copy.", catalog.ScriptDraft)

	if _, err := gate.ApproveScript(context.Background(), listing.ID, "tara"); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestRejectScriptRequiresReason(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	seedScript(t, store, listing.ID, "Needs work.", catalog.ScriptPendingApproval)

	if _, err := gate.RejectScript(context.Background(), listing.ID, "tara", "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	script, err := gate.RejectScript(context.Background(), listing.ID, "tara", "too salesy")
	if err != nil {
		t.Fatalf("reject script: %v", err)
	}
	if script.Status != catalog.ScriptRejected || script.RejectReason != "too salesy" {
		t.Fatalf("got status=%s reason=%q", script.Status, script.RejectReason)
	}
}

func TestUpdateThenRevertRestoresContent(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusScriptApproved)
	original := "Original walkaround copy for this Civic."
	seedScript(t, store, listing.ID, original, catalog.ScriptApproved)

	edited, err := gate.UpdateScriptContent(context.Background(), listing.ID, "Punchier rewrite with the price up front.", "miguel")
	if err != nil {
		t.Fatalf("update script: %v", err)
	}
	if edited.Status != catalog.ScriptPendingApproval {
		t.Fatalf("edited status = %s, want pending_approval", edited.Status)
	}

	reverted, err := gate.RevertScriptVersion(context.Background(), listing.ID, 0, "miguel")
	if err != nil {
		t.Fatalf("revert script: %v", err)
	}
	if reverted.Content != original {
		t.Fatalf("reverted content = %q, want original", reverted.Content)
	}
	if reverted.Status != catalog.ScriptPendingApproval {
		t.Fatalf("reverted status = %s, want pending_approval", reverted.Status)
	}

	count, err := store.CountScriptVersions(context.Background(), reverted.ID)
	if err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != 2 {
		t.Fatalf("version count = %d, want 2", count)
	}

	// Losing approval demotes the listing so voiceover cannot run on
	// unreviewed content.
	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusScriptGenerated {
		t.Fatalf("listing status = %s, want script_generated", fresh.Status)
	}
}

func TestRevertOutOfRangeMutatesNothing(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	script := seedScript(t, store, listing.ID, "Only version so far.", catalog.ScriptPendingApproval)

	if _, err := gate.RevertScriptVersion(context.Background(), listing.ID, 5, "miguel"); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("err = %v, want out of range", err)
	}
	if _, err := gate.RevertScriptVersion(context.Background(), listing.ID, -1, "miguel"); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("negative index err = %v, want out of range", err)
	}

	fresh, err := store.GetScriptByListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get script: %v", err)
	}
	if fresh.Content != script.Content {
		t.Fatalf("content changed after failed revert")
	}
	count, err := store.CountScriptVersions(context.Background(), script.ID)
	if err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != 0 {
		t.Fatalf("version count = %d, want 0", count)
	}
}

func TestApproveVideoAdvancesListing(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusVideoGenerated)
	seedVideo(t, store, listing.ID, "/tmp/final.mp4", catalog.VideoReady)

	video, err := gate.ApproveVideo(context.Background(), listing.ID, "tara")
	if err != nil {
		t.Fatalf("approve video: %v", err)
	}
	if video.Status != catalog.VideoApproved || video.ApprovedAt == nil {
		t.Fatalf("got status=%s approved_at=%v", video.Status, video.ApprovedAt)
	}

	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusVideoApproved {
		t.Fatalf("listing status = %s, want video_approved", fresh.Status)
	}
}

func TestRejectVideoKeepsListingStatus(t *testing.T) {
	gate, store, _, _ := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusVideoGenerated)
	seedVideo(t, store, listing.ID, "/tmp/final.mp4", catalog.VideoReady)

	if _, err := gate.RejectVideo(context.Background(), listing.ID, "tara", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	video, err := gate.RejectVideo(context.Background(), listing.ID, "tara", "audio clipping at 0:12")
	if err != nil {
		t.Fatalf("reject video: %v", err)
	}
	if video.Status != catalog.VideoRejected || video.RejectReason == "" {
		t.Fatalf("got status=%s reason=%q", video.Status, video.RejectReason)
	}

	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusVideoGenerated {
		t.Fatalf("listing status = %s, want video_generated", fresh.Status)
	}
}

func TestPublishVideoUploadsAndAdvances(t *testing.T) {
	gate, store, uploads, notifier := newGate(t)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusVideoApproved)
	seedVideo(t, store, listing.ID, "/tmp/final.mp4", catalog.VideoApproved)

	video, err := gate.PublishVideo(context.Background(), listing.ID, "tara")
	if err != nil {
		t.Fatalf("publish video: %v", err)
	}
	if video.Status != catalog.VideoPublished || video.PublishedAt == nil {
		t.Fatalf("got status=%s published_at=%v", video.Status, video.PublishedAt)
	}
	if video.PublicURL != uploads.url {
		t.Fatalf("public_url = %q, want %q", video.PublicURL, uploads.url)
	}
	if len(uploads.calls) != 1 || uploads.calls[0] != "dealer-001/stk1001.mp4" {
		t.Fatalf("upload calls = %v", uploads.calls)
	}
	if len(notifier.published) != 1 {
		t.Fatalf("publish notifications = %d, want 1", len(notifier.published))
	}

	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusPublished {
		t.Fatalf("listing status = %s, want published", fresh.Status)
	}
}

func TestPublishVideoUploadFailureLeavesApproved(t *testing.T) {
	gate, store, uploads, notifier := newGate(t)
	uploads.err = services.Wrap(services.ErrExternalTool, "", "upload", "bucket unreachable", nil)
	listing := testsupport.NewListing(t, store, "dealer-001", "STK1001")
	setListingStatus(t, store, listing, pipeline.StatusVideoApproved)
	seedVideo(t, store, listing.ID, "/tmp/final.mp4", catalog.VideoApproved)

	if _, err := gate.PublishVideo(context.Background(), listing.ID, "tara"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool", err)
	}

	video, err := store.CurrentVideoForListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("current video: %v", err)
	}
	if video.Status != catalog.VideoApproved {
		t.Fatalf("video status = %s, want approved", video.Status)
	}
	fresh, err := store.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if fresh.Status != pipeline.StatusVideoApproved {
		t.Fatalf("listing status = %s, want video_approved", fresh.Status)
	}
	if len(notifier.published) != 0 {
		t.Fatalf("publish notifications = %d, want 0", len(notifier.published))
	}
}

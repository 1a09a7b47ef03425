package webapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/coordinator"
	"lotreel/internal/logging"
	"lotreel/internal/notifications"
	"lotreel/internal/pipeline"
	"lotreel/internal/regen"
	"lotreel/internal/review"
	"lotreel/internal/stage"
	"lotreel/internal/testsupport"
	"lotreel/internal/uploader"
	"lotreel/internal/webapi"
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

type testAPI struct {
	base   string
	store  *catalog.Store
	cfg    *config.Config
	client *http.Client
}

func startServer(t *testing.T) *testAPI {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	executors := make([]stage.Executor, 0, len(pipeline.AllStages()))
	for _, stageType := range pipeline.AllStages() {
		executors = append(executors, &fakeExec{stageType: stageType})
	}
	coord := coordinator.New(cfg, store, stage.NewSet(executors...), notifications.NewService(cfg), logging.NewNop())
	t.Cleanup(func() { _ = coord.Shutdown(context.Background()) })

	uploads, err := uploader.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("uploader: %v", err)
	}
	gate := review.NewGate(store, uploads, notifications.NewService(cfg), logging.NewNop())
	ctrl := regen.NewController(store, coord, logging.NewNop())

	srv := webapi.New(cfg, store, coord, gate, ctrl, logging.NewNop())
	if srv == nil {
		t.Fatal("server disabled; api bind missing from test config")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(srv.Stop)

	return &testAPI{
		base:   "http://" + srv.Addr(),
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		payload = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, a.base+path, payload)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func TestCreateAndFetchListing(t *testing.T) {
	api := startServer(t)

	create := map[string]any{
		"dealer_id":    "dealer-001",
		"stock_number": "STK1001",
		"year":         2021,
		"make":         "Honda",
		"model":        "Civic",
		"price":        21995,
		"photo_urls":   []string{"https://img.example.com/1.jpg"},
	}
	resp, body := api.do(t, http.MethodPost, "/api/listings", create)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != "pending" {
		t.Fatalf("new listing status = %s, want pending", created.Status)
	}

	resp, _ = api.do(t, http.MethodPost, "/api/listings", create)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", resp.StatusCode)
	}

	resp, body = api.do(t, http.MethodGet, fmt.Sprintf("/api/listings/%d", created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var fetched struct {
		StockNumber string `json:"stock_number"`
	}
	if err := json.Unmarshal(body, &fetched); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if fetched.StockNumber != "STK1001" {
		t.Fatalf("stock_number = %s", fetched.StockNumber)
	}

	resp, _ = api.do(t, http.MethodGet, "/api/listings/9999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing listing status = %d, want 404", resp.StatusCode)
	}
}

func TestDispatchEndpointRunsStage(t *testing.T) {
	api := startServer(t)
	listing := testsupport.NewListing(t, api.store, "dealer-001", "STK1001")

	resp, body := api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/dispatch", listing.ID),
		map[string]string{"stage": "image_download"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("dispatch status = %d: %s", resp.StatusCode, body)
	}
	var job struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, body = api.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("job poll status = %d", resp.StatusCode)
		}
		var polled struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &polled); err != nil {
			t.Fatalf("decode polled job: %v", err)
		}
		if polled.Status == "completed" {
			break
		}
		if polled.Status == "failed" {
			t.Fatalf("job failed: %s", body)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", polled.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The listing is now past image_download; re-dispatching it is illegal.
	resp, _ = api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/dispatch", listing.ID),
		map[string]string{"stage": "image_download"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("re-dispatch status = %d, want 422", resp.StatusCode)
	}

	resp, _ = api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/dispatch", listing.ID),
		map[string]string{"stage": "transcode"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown stage status = %d, want 400", resp.StatusCode)
	}
}

func TestVideoRangeServing(t *testing.T) {
	api := startServer(t)
	listing := testsupport.NewListing(t, api.store, "dealer-001", "STK1001")

	videoPath := filepath.Join(testsupport.BaseDir(api.cfg), "final.mp4")
	const fileSize = 1000
	testsupport.WriteFile(t, videoPath, fileSize)
	expected := make([]byte, fileSize)
	for i := range expected {
		expected[i] = byte('a' + i%26)
	}

	err := api.store.WithTx(context.Background(), func(tx *catalog.Tx) error {
		_, txErr := tx.InsertVideo(context.Background(), &catalog.Video{
			ListingID: listing.ID,
			Path:      videoPath,
			FileSize:  fileSize,
			Status:    catalog.VideoReady,
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}

	resp, body := api.do(t, http.MethodGet, fmt.Sprintf("/api/listings/%d/video", listing.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("full fetch status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "video/mp4" {
		t.Fatalf("content-type = %s", resp.Header.Get("Content-Type"))
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("accept-ranges = %q", got)
	}
	if len(body) != fileSize || !bytes.Equal(body, expected) {
		t.Fatalf("full body mismatch: %d bytes", len(body))
	}

	req, err := http.NewRequest(http.MethodGet, api.base+fmt.Sprintf("/api/listings/%d/video", listing.ID), nil)
	if err != nil {
		t.Fatalf("build range request: %v", err)
	}
	req.Header.Set("Range", "bytes=0-99")
	rangeResp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("range request: %v", err)
	}
	defer rangeResp.Body.Close()
	rangeBody, err := io.ReadAll(rangeResp.Body)
	if err != nil {
		t.Fatalf("read range body: %v", err)
	}

	if rangeResp.StatusCode != http.StatusPartialContent {
		t.Fatalf("range status = %d, want 206", rangeResp.StatusCode)
	}
	if got := rangeResp.Header.Get("Content-Range"); got != fmt.Sprintf("bytes 0-99/%d", fileSize) {
		t.Fatalf("content-range = %q", got)
	}
	if got := rangeResp.Header.Get("Content-Length"); got != "100" {
		t.Fatalf("content-length = %q", got)
	}
	if !bytes.Equal(rangeBody, expected[:100]) {
		t.Fatal("range body does not match the first 100 bytes")
	}

	other := testsupport.NewListing(t, api.store, "dealer-001", "STK1002")
	resp, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/listings/%d/video", other.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("no-video status = %d, want 404", resp.StatusCode)
	}
}

func TestScriptReviewEndpoints(t *testing.T) {
	api := startServer(t)
	listing := testsupport.NewListing(t, api.store, "dealer-001", "STK1001")
	listing.Status = pipeline.StatusScriptGenerated
	if err := api.store.UpdateListingState(context.Background(), listing); err != nil {
		t.Fatalf("set listing status: %v", err)
	}
	err := api.store.WithTx(context.Background(), func(tx *catalog.Tx) error {
		script := &catalog.Script{ListingID: listing.ID, Status: catalog.ScriptPendingApproval}
		script.ApplyContent("Check out this sharp one-owner Civic.")
		_, txErr := tx.InsertScript(context.Background(), script)
		return txErr
	})
	if err != nil {
		t.Fatalf("seed script: %v", err)
	}

	resp, _ := api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/script/reject", listing.ID),
		map[string]string{"reviewer": "tara"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reject without reason status = %d, want 400", resp.StatusCode)
	}

	resp, body := api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/script/approve", listing.ID),
		map[string]string{"reviewer": "tara"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d: %s", resp.StatusCode, body)
	}
	var approved struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &approved); err != nil {
		t.Fatalf("decode approve response: %v", err)
	}
	if approved.Status != "approved" {
		t.Fatalf("script status = %s, want approved", approved.Status)
	}

	resp, _ = api.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/script/revert", listing.ID),
		map[string]any{"version": 7, "edited_by": "tara"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range revert status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	api := startServer(t)

	resp, body := api.do(t, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status struct {
		ActiveJobs int `json:"active_jobs"`
		Executors  []struct {
			Name  string `json:"name"`
			Ready bool   `json:"ready"`
		} `json:"executors"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Executors) != len(pipeline.AllStages()) {
		t.Fatalf("executors = %d, want %d", len(status.Executors), len(pipeline.AllStages()))
	}
	for _, e := range status.Executors {
		if !e.Ready {
			t.Fatalf("executor %s not ready", e.Name)
		}
	}
}

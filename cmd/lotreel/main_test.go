package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

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

type cliExec struct {
	stageType pipeline.StageType
}

func (f *cliExec) StageType() pipeline.StageType { return f.stageType }

func (f *cliExec) Execute(_ context.Context, req stage.Request) (stage.Result, error) {
	return stage.Result{ArtifactPath: req.AssetsDir + "/" + string(f.stageType)}, nil
}

func (f *cliExec) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(string(f.stageType))
}

// startTestDaemon brings up the HTTP API backed by fake executors and returns
// its address.
func startTestDaemon(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	executors := make([]stage.Executor, 0, len(pipeline.AllStages()))
	for _, stageType := range pipeline.AllStages() {
		executors = append(executors, &cliExec{stageType: stageType})
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
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv.Addr()
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestAddAndListCommands(t *testing.T) {
	addr := startTestDaemon(t)

	out, err := runCLI(t, "add", "--api", addr,
		"--dealer", "dealer-001", "--stock", "STK1001",
		"--year", "2021", "--make", "Honda", "--model", "Civic",
		"--price", "21995", "--photo", "https://img.example.com/1.jpg")
	if err != nil {
		t.Fatalf("add failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created listing") || !strings.Contains(out, "pending") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out, err = runCLI(t, "list", "--api", addr)
	if err != nil {
		t.Fatalf("list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "STK1001") || !strings.Contains(out, "2021 Honda Civic") {
		t.Fatalf("listing missing from output: %s", out)
	}

	_, err = runCLI(t, "add", "--api", addr, "--dealer", "dealer-001", "--stock", "STK1001")
	if err == nil {
		t.Fatal("duplicate add should fail")
	}
}

func TestDispatchCommandReportsJob(t *testing.T) {
	addr := startTestDaemon(t)

	out, err := runCLI(t, "add", "--api", addr, "--dealer", "dealer-001", "--stock", "STK1001",
		"--photo", "https://img.example.com/1.jpg")
	if err != nil {
		t.Fatalf("add failed: %v\n%s", err, out)
	}

	out, err = runCLI(t, "dispatch", "--api", addr, "1", "image_download")
	if err != nil {
		t.Fatalf("dispatch failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Dispatched image_download for listing 1") {
		t.Fatalf("unexpected dispatch output: %s", out)
	}

	out, err = runCLI(t, "dispatch", "--api", addr, "1", "warp_drive")
	if err == nil {
		t.Fatalf("unknown stage should fail: %s", out)
	}
}

func TestStatusCommandShowsExecutors(t *testing.T) {
	addr := startTestDaemon(t)

	out, err := runCLI(t, "status", "--api", addr)
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	for _, stageType := range pipeline.AllStages() {
		if !strings.Contains(out, string(stageType)) {
			t.Fatalf("status output missing %s:\n%s", stageType, out)
		}
	}
	if !strings.Contains(out, "ready") {
		t.Fatalf("status output missing readiness: %s", out)
	}
}

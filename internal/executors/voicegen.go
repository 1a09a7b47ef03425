package executors

import (
	"context"
	"fmt"
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

// VoiceoverGenerator synthesizes the approved script into a voiceover audio
// file via the configured TTS command.
type VoiceoverGenerator struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// NewVoiceoverGenerator constructs the voiceover synthesis stage.
func NewVoiceoverGenerator(cfg *config.Config, logger *slog.Logger) *VoiceoverGenerator {
	return &VoiceoverGenerator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "voiceover-generate"),
		run:    runCommand,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (g *VoiceoverGenerator) WithCommandRunner(run commandRunner) *VoiceoverGenerator {
	if run != nil {
		g.run = run
	}
	return g
}

func (g *VoiceoverGenerator) StageType() pipeline.StageType { return pipeline.StageVoiceoverGenerate }

func (g *VoiceoverGenerator) HealthCheck(context.Context) stage.Health {
	if detail, ok := binaryHealth(g.cfg.Voice.Command); !ok {
		return stage.Unhealthy(string(pipeline.StageVoiceoverGenerate), detail)
	}
	return stage.Healthy(string(pipeline.StageVoiceoverGenerate))
}

// Execute synthesizes the current approved script. The script text comes from
// the database, not the script.txt artifact, so reviewer edits made after
// generation are always honored.
func (g *VoiceoverGenerator) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	if req.Script == nil || strings.TrimSpace(req.Script.Content) == "" {
		return stage.Result{}, services.Wrap(services.ErrValidation,
			string(pipeline.StageVoiceoverGenerate), "load script", "listing has no script content", nil)
	}

	scriptPath := filepath.Join(req.AssetsDir, "voiceover_input.txt")
	if err := os.WriteFile(scriptPath, []byte(req.Script.Content+"\n"), 0o644); err != nil {
		return stage.Result{}, fmt.Errorf("write voiceover input: %w", err)
	}

	voicePath := filepath.Join(req.AssetsDir, "voiceover.wav")
	args := []string{"--input", scriptPath, "--output", voicePath}
	if voice := strings.TrimSpace(g.cfg.Voice.Name); voice != "" {
		args = append(args, "--voice", voice)
	}
	if style := strings.TrimSpace(g.cfg.Voice.Style); style != "" {
		args = append(args, "--style", style)
	}

	if err := g.run(ctx, g.cfg.Voice.Command, args...); err != nil {
		return stage.Result{}, classifyCommandError(
			string(pipeline.StageVoiceoverGenerate), "synthesize", err)
	}
	if _, err := os.Stat(voicePath); err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalTool,
			string(pipeline.StageVoiceoverGenerate), "synthesize",
			"tool exited cleanly but produced no audio file", err)
	}

	g.logger.Info("voiceover synthesized",
		logging.String("voiceover_path", voicePath),
		logging.Int("script_words", req.Script.WordCount))
	return stage.Result{ArtifactPath: voicePath}, nil
}

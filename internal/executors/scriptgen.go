package executors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/llm"
	"lotreel/internal/logging"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/stage"
)

const scriptSystemPrompt = `You write 30-second voiceover scripts for vehicle listing videos.
Write in a warm, conversational tone a dealership salesperson would use.
Mention the year, make, and model early. Work in price, mileage, and one or
two standout attributes. Keep it between 60 and 90 words. Do not invent
features that are not in the vehicle data. Respond with JSON only:
{"script": "<the voiceover script>"}`

// ScriptGenerator produces the voiceover script for a listing via the
// configured chat completion endpoint.
type ScriptGenerator struct {
	cfg    *config.Config
	logger *slog.Logger
	client *llm.Client
}

// NewScriptGenerator constructs the script generation stage.
func NewScriptGenerator(cfg *config.Config, logger *slog.Logger, client *llm.Client) *ScriptGenerator {
	return &ScriptGenerator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "script-generate"),
		client: client,
	}
}

func (g *ScriptGenerator) StageType() pipeline.StageType { return pipeline.StageScriptGenerate }

func (g *ScriptGenerator) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(g.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(string(pipeline.StageScriptGenerate), "llm api key not configured")
	}
	return stage.Healthy(string(pipeline.StageScriptGenerate))
}

// Execute asks the model for a script and writes it to script.txt so later
// stages can consume it from disk.
func (g *ScriptGenerator) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	userPrompt := buildVehiclePrompt(req.Listing)

	content, err := g.client.CompleteJSON(ctx, scriptSystemPrompt, userPrompt)
	if err != nil {
		if services.IsTimeout(err) || ctx.Err() != nil {
			return stage.Result{}, services.Wrap(services.ErrTimeout,
				string(pipeline.StageScriptGenerate), "complete", "", err)
		}
		return stage.Result{}, services.Wrap(services.ErrExternalTool,
			string(pipeline.StageScriptGenerate), "complete", "", err)
	}

	var parsed struct {
		Script string `json:"script"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalTool,
			string(pipeline.StageScriptGenerate), "parse payload", "", err)
	}
	script := strings.TrimSpace(parsed.Script)
	if script == "" {
		return stage.Result{}, services.Wrap(services.ErrExternalTool,
			string(pipeline.StageScriptGenerate), "parse payload", "model returned an empty script", nil)
	}

	scriptPath := filepath.Join(req.AssetsDir, "script.txt")
	if err := os.MkdirAll(req.AssetsDir, 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("create assets dir: %w", err)
	}
	if err := os.WriteFile(scriptPath, []byte(script+"\n"), 0o644); err != nil {
		return stage.Result{}, fmt.Errorf("write script file: %w", err)
	}

	g.logger.Info("script generated",
		logging.Int("words", len(strings.Fields(script))),
		logging.String("script_path", scriptPath))
	return stage.Result{ArtifactPath: scriptPath, ScriptContent: script}, nil
}

func buildVehiclePrompt(listing *catalog.Listing) string {
	var b strings.Builder
	write := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	write("Year/Make/Model", listing.DisplayName())
	if listing.Price > 0 {
		write("Price", fmt.Sprintf("$%.0f", listing.Price))
	}
	if listing.Odometer > 0 {
		write("Odometer", fmt.Sprintf("%d miles", listing.Odometer))
	}
	write("Condition", listing.Condition)
	write("Color", listing.Color)
	write("Engine", listing.Engine)
	write("VIN", listing.VIN)
	write("Description", listing.Description)
	return b.String()
}

// Package planner asks a hosted multimodal model for the next single action
// toward a goal.
package planner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/types"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o"
)

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// New returns the planner for cfg.Provider.
func New(ctx context.Context, cfg Config, logger types.Logger) (types.Planner, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiPlanner(ctx, cfg, logger)
	case ProviderOpenAI:
		return NewOpenAIPlanner(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported planner provider %q", cfg.Provider)
	}
}

// frameBytes returns the PNG to send: the in-memory frame when present,
// otherwise the persisted file.
func frameBytes(req types.PlanRequest) ([]byte, error) {
	if req.Frame != nil && req.Frame.Image != nil {
		return imageutil.EncodePNG(req.Frame.Image)
	}
	if req.FramePath != "" {
		data, err := os.ReadFile(req.FramePath)
		if err != nil {
			return nil, fmt.Errorf("reading frame %s: %w", req.FramePath, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("plan request has no frame")
}

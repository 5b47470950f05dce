package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/deskagent/pkg/types"
	"google.golang.org/genai"
)

type GeminiPlanner struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      types.Logger
}

func NewGeminiPlanner(ctx context.Context, cfg Config, logger types.Logger) (*GeminiPlanner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini planner requires an API key")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiPlanner{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		logger:      logger,
	}, nil
}

func (p *GeminiPlanner) NextAction(ctx context.Context, req types.PlanRequest) (string, error) {
	img, err := frameBytes(req)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(BuildPrompt(req.Goal, req.RecentActions)),
		genai.NewPartFromBytes(img, "image/png"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := cleanResponse(resp.Text())
	p.logger.Debug().
		Str("model", p.model).
		Dur("duration", time.Since(start)).
		Msg("Planner response received")
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

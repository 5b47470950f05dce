package planner

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIPlanner talks to any OpenAI-compatible chat completions API.
type OpenAIPlanner struct {
	client      *openai.Client
	model       string
	temperature float64
	logger      types.Logger
}

func NewOpenAIPlanner(cfg Config, logger types.Logger) (*OpenAIPlanner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai planner requires an API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIPlanner{
		client:      &client,
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (p *OpenAIPlanner) NextAction(ctx context.Context, req types.PlanRequest) (string, error) {
	img, err := frameBytes(req)
	if err != nil {
		return "", err
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(BuildPrompt(req.Goal, req.RecentActions)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	text := cleanResponse(resp.Choices[0].Message.Content)
	p.logger.Debug().
		Str("model", p.model).
		Dur("duration", time.Since(start)).
		Int("total_tokens", int(resp.Usage.TotalTokens)).
		Msg("Planner response received")
	if text == "" {
		return "", fmt.Errorf("openai returned an empty response")
	}
	return text, nil
}

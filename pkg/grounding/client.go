// Package grounding is the HTTP client for a GUI grounding model server.
// The server receives a screenshot and an instruction and answers with
// candidate click points normalized to the screenshot.
package grounding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/types"
)

const defaultTimeout = 60 * time.Second

type predictRequest struct {
	Instruction string `json:"instruction"`
	Image       string `json:"image"`
	TopK        int    `json:"topk"`
}

type predictResponse struct {
	Points   [][]float64 `json:"topk_points"`
	Scores   []float64   `json:"topk_scores"`
	Response string      `json:"response"`
	Error    string      `json:"error"`
}

type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     types.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger types.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

func (c *Client) Predict(ctx context.Context, frame *types.ScreenFrame, instruction string, topK int) (*types.Prediction, error) {
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("%w: no frame", types.ErrGroundingFailure)
	}

	png, err := imageutil.EncodePNG(frame.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrGroundingFailure, err)
	}
	body, err := json.Marshal(predictRequest{
		Instruction: instruction,
		Image:       base64.StdEncoding.EncodeToString(png),
		TopK:        topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling grounding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating grounding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Deskagent-Grounding-Client/1.0")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrGroundingFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", types.ErrGroundingFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := string(respBody)
		if len(preview) > 256 {
			preview = preview[:256] + "..."
		}
		return nil, fmt.Errorf("%w: server returned %d: %s", types.ErrGroundingFailure, resp.StatusCode, preview)
	}

	var parsed predictResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", types.ErrGroundingFailure, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrGroundingFailure, parsed.Error)
	}

	pred, err := toPrediction(parsed)
	if err != nil {
		return nil, err
	}

	if c.Logger != nil {
		c.Logger.Debug().
			Int("candidates", len(pred.Points)).
			Dur("duration", time.Since(start)).
			Msg("Grounding response received")
	}
	return pred, nil
}

func toPrediction(r predictResponse) (*types.Prediction, error) {
	pred := &types.Prediction{Raw: r.Response}
	for i, pt := range r.Points {
		if len(pt) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates", types.ErrGroundingFailure, i, len(pt))
		}
		score := 0.0
		if i < len(r.Scores) {
			score = r.Scores[i]
		}
		pred.Points = append(pred.Points, types.PredictedPoint{X: pt[0], Y: pt[1], Score: score})
	}
	return pred, nil
}

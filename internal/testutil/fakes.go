// Package testutil provides in-memory collaborators for exercising the agent
// without a display, a grounding server or a planning model.
package testutil

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/log"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/rs/zerolog"
)

func NopLogger() types.Logger {
	return log.NewZerologAdapter(zerolog.Nop())
}

// NoSleep satisfies the Sleep hooks without waiting.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Desktop records every input primitive it receives. MoveTo places the cursor
// at the target shifted by Drift.
type Desktop struct {
	Width, Height int
	Drift         coords.Point

	mu      sync.Mutex
	Moves   []coords.Point
	Clicks  int
	Typed   []string
	Keys    []string
	Hotkeys [][]string
	cursor  coords.Point
}

func NewDesktop(width, height int) *Desktop {
	return &Desktop{Width: width, Height: height}
}

func (d *Desktop) MoveTo(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Moves = append(d.Moves, coords.Point{X: x, Y: y})
	d.cursor = coords.Point{X: x + d.Drift.X, Y: y + d.Drift.Y}
	return nil
}

func (d *Desktop) Click() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clicks++
	return nil
}

func (d *Desktop) TypeText(text string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Typed = append(d.Typed, text)
	return nil
}

func (d *Desktop) PressKey(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Keys = append(d.Keys, key)
	return nil
}

func (d *Desktop) Hotkey(keys ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Hotkeys = append(d.Hotkeys, keys)
	return nil
}

func (d *Desktop) CursorPosition() (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor.X, d.cursor.Y, nil
}

func (d *Desktop) ScreenSize() (int, int, error) {
	return d.Width, d.Height, nil
}

func (d *Desktop) ClickCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Clicks
}

func (d *Desktop) MoveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Moves)
}

// Capturer returns blank frames of a fixed size.
type Capturer struct {
	Width, Height int
	Err           error

	mu    sync.Mutex
	Calls int
}

func NewCapturer(width, height int) *Capturer {
	return &Capturer{Width: width, Height: height}
}

func (c *Capturer) Capture(ctx context.Context) (*types.ScreenFrame, error) {
	c.mu.Lock()
	c.Calls++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	return types.NewScreenFrame(img, c.Width, c.Height), nil
}

// Grounder answers every request with the same candidates.
type Grounder struct {
	Points []types.PredictedPoint
	Err    error

	mu           sync.Mutex
	Instructions []string
}

func (g *Grounder) Predict(ctx context.Context, frame *types.ScreenFrame, instruction string, topK int) (*types.Prediction, error) {
	g.mu.Lock()
	g.Instructions = append(g.Instructions, instruction)
	g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	points := g.Points
	if topK > 0 && len(points) > topK {
		points = points[:topK]
	}
	return &types.Prediction{Points: append([]types.PredictedPoint(nil), points...)}, nil
}

func (g *Grounder) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Instructions)
}

// Planner replays Responses in order and repeats the last one once they run
// out. OnCall, if set, runs before each answer.
type Planner struct {
	Responses []string
	Err       error
	OnCall    func(call int)

	mu       sync.Mutex
	Requests []types.PlanRequest
}

func (p *Planner) NextAction(ctx context.Context, req types.PlanRequest) (string, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	call := len(p.Requests)
	p.mu.Unlock()

	if p.OnCall != nil {
		p.OnCall(call)
	}
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	if call > len(p.Responses) {
		return p.Responses[len(p.Responses)-1], nil
	}
	return p.Responses[call-1], nil
}

func (p *Planner) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/arnavsurve/deskagent/pkg/types"
)

var (
	ErrAlreadyRunning = errors.New("agent is already running")
	ErrEmptyGoal      = errors.New("goal is required")
)

// Controller runs at most one goal at a time on a background goroutine and
// exposes start, stop and status to concurrent callers.
type Controller struct {
	engine        *Engine
	maxIterations int
	baseCtx       context.Context

	mu     sync.Mutex
	status Status
	stop   *StopToken
	done   chan struct{}
	last   *types.RunResult
}

// NewController runs goals with engine. Runs inherit ctx, so cancelling it
// stops any run in progress.
func NewController(ctx context.Context, engine *Engine, maxIterations int) *Controller {
	return &Controller{
		engine:        engine,
		maxIterations: maxIterations,
		baseCtx:       ctx,
		status:        Status{MaxIterations: maxIterations},
	}
}

// Start launches a run for goal and returns its initial status.
func (c *Controller) Start(goal string) (Status, error) {
	goal, err := ParseGoal(goal)
	if err != nil {
		return Status{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Running {
		return c.status, ErrAlreadyRunning
	}

	state := NewLoopState(goal, c.maxIterations)
	updates := make(chan Status, 8)
	engine := *c.engine
	engine.Updates = updates

	c.stop = state.Stop
	c.done = make(chan struct{})
	c.last = nil
	c.status = state.Status()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for st := range updates {
			c.mu.Lock()
			c.status = st
			c.mu.Unlock()
		}
	}()

	done := c.done
	go func() {
		defer close(done)
		result, _ := engine.ExecuteGoal(c.baseCtx, state)
		close(updates)
		<-consumed

		c.mu.Lock()
		c.last = result
		c.status = state.Status()
		c.status.Running = false
		c.mu.Unlock()
	}()

	return c.status, nil
}

// Stop asks the current run to halt at its next iteration boundary. It
// reports false when nothing is running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Running || c.stop == nil {
		return false
	}
	c.stop.Stop()
	return true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed when the current run finishes. It is nil before the first
// Start.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// LastResult returns the outcome of the most recently finished run.
func (c *Controller) LastResult() *types.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

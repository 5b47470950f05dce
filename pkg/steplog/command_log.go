// Package steplog persists the per-command audit trail: one directory per
// command holding the analyzed frame, an annotated debug frame, a JSON record
// and a plain-text summary.
package steplog

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/types"
)

const (
	ScreenshotFile      = "screenshot.png"
	DebugScreenshotFile = "debug_annotated.png"
	RecordFile          = "command_log.json"
	SummaryFile         = "summary.txt"
)

type GroundingRequest struct {
	Instruction    string `json:"instruction"`
	ScreenshotSize string `json:"screenshot_size"`
	Model          string `json:"model,omitempty"`
	TopK           int    `json:"topk"`
}

type GroundingResponse struct {
	Points []types.PredictedPoint `json:"topk_points"`
	Scores []float64              `json:"topk_scores"`
	Raw    string                 `json:"response,omitempty"`
}

type SelectedPoint struct {
	Normalized types.PredictedPoint `json:"normalized"`
	Pixel      coords.Point         `json:"pixel"`
	Actual     *coords.Point        `json:"actual,omitempty"`
}

type ExecutionResult struct {
	Success    bool             `json:"success"`
	ActionType types.ActionKind `json:"action_type"`
	Details    string           `json:"details,omitempty"`
}

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// CommandLog accumulates everything that happened while executing one
// command. It is opened by Store.Open, filled in as each stage completes and
// flushed to disk exactly once by Finalize.
type CommandLog struct {
	CommandNumber       int                    `json:"command_number"`
	CommandText         string                 `json:"command_text"`
	Timestamp           time.Time              `json:"timestamp"`
	ParsedAction        *types.Action          `json:"parsed_action"`
	ScreenshotPath      string                 `json:"screenshot_path,omitempty"`
	GroundingRequest    *GroundingRequest      `json:"vlm_request"`
	GroundingResponse   *GroundingResponse     `json:"vlm_response"`
	PredictedPoints     []types.PredictedPoint `json:"predicted_points"`
	SelectedPoint       *SelectedPoint         `json:"selected_point"`
	ExecutionResult     *ExecutionResult       `json:"execution_result"`
	Attempts            int                    `json:"attempts"`
	Warnings            []Entry                `json:"warnings,omitempty"`
	Errors              []Entry                `json:"errors"`
	DebugScreenshotPath string                 `json:"debug_screenshot_path,omitempty"`

	dir       string
	mu        sync.Mutex
	finalized bool
}

// Dir is the directory holding this command's artifacts.
func (l *CommandLog) Dir() string {
	return l.dir
}

func (l *CommandLog) SetParsedAction(a types.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ParsedAction = &a
}

// SaveScreenshot writes the frame sent to the grounding model.
func (l *CommandLog) SaveScreenshot(frame *types.ScreenFrame) (string, error) {
	if frame == nil || frame.Image == nil {
		return "", fmt.Errorf("no frame to save")
	}
	path := filepath.Join(l.dir, ScreenshotFile)
	if err := imageutil.SavePNG(path, frame.Image); err != nil {
		return "", err
	}
	l.mu.Lock()
	l.ScreenshotPath = path
	l.mu.Unlock()
	return path, nil
}

// SaveDebugScreenshot writes img, normally the frame with candidates marked.
func (l *CommandLog) SaveDebugScreenshot(img image.Image) (string, error) {
	path := filepath.Join(l.dir, DebugScreenshotFile)
	if err := imageutil.SavePNG(path, img); err != nil {
		return "", err
	}
	l.mu.Lock()
	l.DebugScreenshotPath = path
	l.mu.Unlock()
	return path, nil
}

func (l *CommandLog) SetGroundingRequest(req GroundingRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.GroundingRequest = &req
}

func (l *CommandLog) SetGroundingResponse(pred *types.Prediction) {
	if pred == nil {
		return
	}
	resp := GroundingResponse{Raw: pred.Raw}
	for _, p := range pred.Points {
		resp.Points = append(resp.Points, p)
		resp.Scores = append(resp.Scores, p.Score)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.GroundingResponse = &resp
	l.PredictedPoints = resp.Points
}

func (l *CommandLog) SetSelectedPoint(p SelectedPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SelectedPoint = &p
}

// SetActualPoint records where the cursor was read back after the move.
func (l *CommandLog) SetActualPoint(p coords.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SelectedPoint != nil {
		l.SelectedPoint.Actual = &p
	}
}

func (l *CommandLog) SetExecutionResult(success bool, kind types.ActionKind, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ExecutionResult = &ExecutionResult{Success: success, ActionType: kind, Details: details}
}

// AddAttempt counts one execution of the parsed action.
func (l *CommandLog) AddAttempt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Attempts++
}

func (l *CommandLog) AddWarning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warnings = append(l.Warnings, Entry{Timestamp: time.Now(), Message: msg})
}

func (l *CommandLog) AddError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, Entry{Timestamp: time.Now(), Message: msg})
}

// Finalized reports whether Finalize has already flushed this log.
func (l *CommandLog) Finalized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finalized
}

// Finalize writes command_log.json and summary.txt. Only the first call
// writes; later calls are no-ops so it is safe to defer.
func (l *CommandLog) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalized {
		return nil
	}
	l.finalized = true

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling command log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, RecordFile), data, 0644); err != nil {
		return fmt.Errorf("writing command log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, SummaryFile), []byte(l.summary()), 0644); err != nil {
		return fmt.Errorf("writing command summary: %w", err)
	}
	return nil
}

package steplog

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpenNumbersSequentially(t *testing.T) {
	store := NewStore(t.TempDir())

	first, err := store.Open("Click the button")
	require.NoError(t, err)
	second, err := store.Open("Type hello")
	require.NoError(t, err)

	assert.Equal(t, 1, first.CommandNumber)
	assert.Equal(t, 2, second.CommandNumber)
	assert.Equal(t, "command_1", filepath.Base(first.Dir()))
	assert.Equal(t, "command_2", filepath.Base(second.Dir()))
	assert.DirExists(t, first.Dir())
}

func TestStore_OpenSkipsExistingDirectories(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "command_1"), 0755))

	log, err := NewStore(base).Open("Click OK")
	require.NoError(t, err)
	assert.Equal(t, 2, log.CommandNumber)
}

func TestCommandLog_FinalizeWritesOnce(t *testing.T) {
	log, err := NewStore(t.TempDir()).Open("Click the Submit button")
	require.NoError(t, err)

	log.SetParsedAction(types.NewClick("Click the Submit button"))
	log.SetGroundingRequest(GroundingRequest{Instruction: "Click the Submit button", ScreenshotSize: "768x480", TopK: 3})
	log.SetGroundingResponse(&types.Prediction{Points: []types.PredictedPoint{{X: 0.5, Y: 0.5, Score: 0.9}}})
	log.SetSelectedPoint(SelectedPoint{
		Normalized: types.PredictedPoint{X: 0.5, Y: 0.5, Score: 0.9},
		Pixel:      coords.Point{X: 720, Y: 450},
	})
	log.SetActualPoint(coords.Point{X: 721, Y: 450})
	log.AddAttempt()
	log.SetExecutionResult(true, types.ActionClick, "clicked at (720, 450)")

	require.NoError(t, log.Finalize())
	assert.True(t, log.Finalized())

	data, err := os.ReadFile(filepath.Join(log.Dir(), RecordFile))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "Click the Submit button", record["command_text"])
	assert.Equal(t, float64(1), record["attempts"])
	assert.Len(t, record["predicted_points"], 1)

	summary, err := os.ReadFile(filepath.Join(log.Dir(), SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Result: SUCCESS (click)")
	assert.Contains(t, string(summary), "Cursor after move: (721, 450)")

	// Later changes are not flushed again.
	log.AddError("late error")
	require.NoError(t, log.Finalize())
	again, err := os.ReadFile(filepath.Join(log.Dir(), RecordFile))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestCommandLog_ErrorsAndWarningsInSummary(t *testing.T) {
	log, err := NewStore(t.TempDir()).Open("Click nowhere")
	require.NoError(t, err)

	log.AddWarning("cursor error (9, 0) px exceeds 5 px")
	log.AddError("no target found")
	log.SetExecutionResult(false, types.ActionClick, "")
	require.NoError(t, log.Finalize())

	summary, err := os.ReadFile(filepath.Join(log.Dir(), SummaryFile))
	require.NoError(t, err)
	text := string(summary)
	assert.Contains(t, text, "Result: FAILED (click)")
	assert.True(t, strings.Contains(text, "Warnings:") && strings.Contains(text, "Errors:"))
}

func TestCommandLog_SaveScreenshots(t *testing.T) {
	log, err := NewStore(t.TempDir()).Open("Click OK")
	require.NoError(t, err)

	frame := types.NewScreenFrame(image.NewRGBA(image.Rect(0, 0, 20, 10)), 40, 20)
	path, err := log.SaveScreenshot(frame)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, log.ScreenshotPath)

	debugPath, err := log.SaveDebugScreenshot(frame.Image)
	require.NoError(t, err)
	assert.Equal(t, DebugScreenshotFile, filepath.Base(debugPath))

	_, err = log.SaveScreenshot(nil)
	assert.Error(t, err)
}

func TestFrameStore(t *testing.T) {
	fs, err := NewFrameStore(t.TempDir(), "run-1")
	require.NoError(t, err)

	frame := types.NewScreenFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)), 8, 8)
	path, err := fs.Save(7, frame)
	require.NoError(t, err)
	assert.Equal(t, "iter_007_before_action.png", filepath.Base(path))
	assert.FileExists(t, path)

	require.NoError(t, fs.WriteRunSummary(&types.RunResult{RunID: "run-1", Goal: "g", State: types.StateGoalComplete}))
	data, err := os.ReadFile(filepath.Join(fs.Dir, "run.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "GOAL_COMPLETE"`)
}

package types

import (
	"errors"
	"fmt"
)

// Fatal to a run.
var (
	ErrCaptureFailure  = errors.New("screen capture failed")
	ErrPlanningFailure = errors.New("planning service failed")
)

// Fail the current action only.
var (
	ErrGroundingFailure      = errors.New("grounding failed")
	ErrNoTargetFound         = errors.New("no target found")
	ErrUnimplementedShortcut = errors.New("unimplemented shortcut")
)

// IsFatal reports whether err must end the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCaptureFailure) || errors.Is(err, ErrPlanningFailure)
}

// CoordinateMismatch is advisory: the cursor landed further from the target
// than the tolerance allows. The click still proceeds.
type CoordinateMismatch struct {
	TargetX, TargetY int
	ActualX, ActualY int
	ErrorX, ErrorY   int
	Tolerance        int
}

func (m CoordinateMismatch) String() string {
	return fmt.Sprintf("cursor error (%d, %d) px exceeds %d px: target (%d, %d), actual (%d, %d)",
		m.ErrorX, m.ErrorY, m.Tolerance, m.TargetX, m.TargetY, m.ActualX, m.ActualY)
}

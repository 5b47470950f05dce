package types

import (
	"image"
	"time"
)

// ScreenFrame is one captured display image. Width and Height describe the
// image actually handed to the grounding model, after any downscaling.
// SourceWidth and SourceHeight keep the raw capture size for the audit trail.
type ScreenFrame struct {
	Image        image.Image
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	CapturedAt   time.Time
}

// NewScreenFrame wraps img, taking its dimensions from the image bounds.
func NewScreenFrame(img image.Image, sourceWidth, sourceHeight int) *ScreenFrame {
	b := img.Bounds()
	return &ScreenFrame{
		Image:        img,
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceWidth:  sourceWidth,
		SourceHeight: sourceHeight,
		CapturedAt:   time.Now(),
	}
}

// PredictedPoint is a candidate click location normalized to the frame.
type PredictedPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Prediction is the grounding model output, ordered best-first.
type Prediction struct {
	Points []PredictedPoint `json:"points"`
	Raw    string           `json:"response,omitempty"`
}

// Best returns the highest-scoring candidate. Ties go to the earliest point.
func (p *Prediction) Best() (PredictedPoint, bool) {
	if p == nil || len(p.Points) == 0 {
		return PredictedPoint{}, false
	}
	best := p.Points[0]
	for _, pt := range p.Points[1:] {
		if pt.Score > best.Score {
			best = pt
		}
	}
	return best, true
}

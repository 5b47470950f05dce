package coords_test

import (
	"testing"

	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogical(t *testing.T) {
	tests := []struct {
		name             string
		point            types.PredictedPoint
		frameW, frameH   int
		screenW, screenH int
		want             coords.Point
	}{
		{
			name:   "identity scale",
			point:  types.PredictedPoint{X: 0.5, Y: 0.5},
			frameW: 1000, frameH: 800,
			screenW: 1000, screenH: 800,
			want: coords.Point{X: 500, Y: 400},
		},
		{
			name:   "downscaled frame",
			point:  types.PredictedPoint{X: 0.5, Y: 0.5},
			frameW: 500, frameH: 400,
			screenW: 1000, screenH: 800,
			want: coords.Point{X: 500, Y: 400},
		},
		{
			name:   "retina capture larger than logical screen",
			point:  types.PredictedPoint{X: 0.25, Y: 0.75},
			frameW: 768, frameH: 480,
			screenW: 1440, screenH: 900,
			want: coords.Point{X: 360, Y: 675},
		},
		{
			name:   "rounds to nearest pixel",
			point:  types.PredictedPoint{X: 0.3337, Y: 0.6663},
			frameW: 768, frameH: 480,
			screenW: 1512, screenH: 982,
			want: coords.Point{X: 505, Y: 654},
		},
		{
			name:   "out of range values are clamped",
			point:  types.PredictedPoint{X: -0.2, Y: 1.4},
			frameW: 100, frameH: 100,
			screenW: 200, screenH: 200,
			want: coords.Point{X: 0, Y: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := coords.ToLogical(tt.point, tt.frameW, tt.frameH, tt.screenW, tt.screenH)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Pixel)
		})
	}
}

func TestToLogical_ScaleFactors(t *testing.T) {
	m, err := coords.ToLogical(types.PredictedPoint{X: 0.5, Y: 0.5}, 500, 400, 1000, 800)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, m.ScaleX, 1e-9)
	assert.InDelta(t, 2.0, m.ScaleY, 1e-9)
	assert.InDelta(t, 250.0, m.ScreenshotX, 1e-9)
	assert.InDelta(t, 200.0, m.ScreenshotY, 1e-9)
}

func TestToLogical_InvalidDimensions(t *testing.T) {
	_, err := coords.ToLogical(types.PredictedPoint{X: 0.5, Y: 0.5}, 0, 400, 1000, 800)
	assert.ErrorContains(t, err, "invalid frame dimensions")

	_, err = coords.ToLogical(types.PredictedPoint{X: 0.5, Y: 0.5}, 500, 400, 1000, 0)
	assert.ErrorContains(t, err, "invalid screen dimensions")
}

func TestVerify(t *testing.T) {
	target := coords.Point{X: 500, Y: 400}

	v := coords.Verify(target, coords.Point{X: 503, Y: 395}, coords.DefaultTolerance)
	assert.Equal(t, 3, v.ErrorX)
	assert.Equal(t, 5, v.ErrorY)
	assert.False(t, v.Mismatch())

	v = coords.Verify(target, coords.Point{X: 494, Y: 400}, coords.DefaultTolerance)
	assert.Equal(t, 6, v.ErrorX)
	assert.True(t, v.Mismatch())

	w := v.Warning()
	assert.Equal(t, 494, w.ActualX)
	assert.Equal(t, 5, w.Tolerance)
	assert.Contains(t, w.String(), "exceeds 5 px")
}

package dsp

import (
	"math"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/config"
)

// NewWindow builds the tapered envelope applied to each frame before the FFT.
func NewWindow(windowType string, size int) ([]float64, error) {
	if size <= 0 {
		return nil, apperr.InvalidParams("window size must be positive")
	}

	w := make([]float64, size)
	switch windowType {
	case config.WindowHann:
		for n := 0; n < size; n++ {
			w[n] = 0.5 * (1 - math.Cos(2*math.Pi*float64(n)/float64(size-1)))
		}
	case config.WindowHamming:
		for n := 0; n < size; n++ {
			w[n] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(size-1))
		}
	case config.WindowRect:
		for n := 0; n < size; n++ {
			w[n] = 1.0
		}
	default:
		return nil, apperr.Newf(apperr.CodeInvalidParams, "unknown window type %q", windowType)
	}

	return w, nil
}

package dsp

import (
	"github.com/mjibson/go-dsp/fft"

	"github.com/zfogg/resonate/internal/apperr"
)

// STFT slices a mono PCM signal into overlapping windowed frames and computes
// the power spectrum of each. Frame m covers samples [m*hop, m*hop+fftSize).
type STFT struct {
	fftSize int
	hopSize int
	window  []float64
}

// NewSTFT creates an STFT with a precomputed window.
func NewSTFT(fftSize, hopSize int, windowType string) (*STFT, error) {
	if fftSize <= 0 {
		return nil, apperr.InvalidParams("fft size must be positive")
	}
	if hopSize <= 0 {
		return nil, apperr.InvalidParams("hop size must be positive")
	}
	window, err := NewWindow(windowType, fftSize)
	if err != nil {
		return nil, err
	}
	return &STFT{fftSize: fftSize, hopSize: hopSize, window: window}, nil
}

// NumFrames returns how many complete frames fit into a signal of the given
// length: 1 + (len-fftSize)/hop, or 0 when the signal is shorter than one
// frame.
func (s *STFT) NumFrames(signalLen int) int {
	if signalLen < s.fftSize {
		return 0
	}
	return 1 + (signalLen-s.fftSize)/s.hopSize
}

// NumBins returns the number of non-negative-frequency bins per frame.
func (s *STFT) NumBins() int {
	return s.fftSize/2 + 1
}

// PowerSpectrogram computes the magnitude-squared spectrum of every frame.
// The result has shape (frames, fftSize/2+1). Signals shorter than one frame
// are INVALID_SIGNAL: there is nothing meaningful to fingerprint.
func (s *STFT) PowerSpectrogram(x []float64) ([][]float64, error) {
	numFrames := s.NumFrames(len(x))
	if numFrames == 0 {
		return nil, apperr.Newf(apperr.CodeInvalidSignal,
			"signal too short: %d samples, need at least %d", len(x), s.fftSize)
	}

	numBins := s.NumBins()
	power := make([][]float64, numFrames)
	frame := make([]float64, s.fftSize)

	for m := 0; m < numFrames; m++ {
		start := m * s.hopSize
		for n := 0; n < s.fftSize; n++ {
			frame[n] = x[start+n] * s.window[n]
		}

		spectrum := fft.FFTReal(frame)

		row := make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			re := real(spectrum[k])
			im := imag(spectrum[k])
			row[k] = re*re + im*im
		}
		power[m] = row
	}

	return power, nil
}

package dsp

import (
	"math"
	"sync"

	"github.com/zfogg/resonate/internal/apperr"
)

// logFloor keeps the dB conversion away from log10(0).
const logFloor = 1e-10

// HzToMel converts frequency in Hz to the HTK mel scale.
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700.0)
}

// MelToHz converts HTK mel back to Hz.
func MelToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595.0) - 1)
}

type melKey struct {
	sampleRate int
	fftSize    int
	numMels    int
	fmin       float64
	fmax       float64
}

var melCache = struct {
	sync.Mutex
	banks map[melKey][][]float64
}{banks: make(map[melKey][][]float64)}

// MelFilterBank returns the triangular filterbank of shape
// (numMels, fftSize/2+1) for the given parameters. The bank is a pure
// function of its parameters and is cached for the process lifetime; callers
// must not mutate the returned matrix.
func MelFilterBank(sampleRate, fftSize, numMels int, fmin, fmax float64) ([][]float64, error) {
	if sampleRate <= 0 {
		return nil, apperr.InvalidParams("sample rate must be positive")
	}
	if fftSize <= 0 {
		return nil, apperr.InvalidParams("FFT size must be positive")
	}
	if numMels <= 0 {
		return nil, apperr.InvalidParams("number of mel bands must be positive")
	}
	if fmax <= 0 {
		fmax = float64(sampleRate) / 2
	}
	if fmax > float64(sampleRate)/2 {
		return nil, apperr.InvalidParams("fmax cannot exceed Nyquist frequency (sr/2)")
	}

	key := melKey{sampleRate: sampleRate, fftSize: fftSize, numMels: numMels, fmin: fmin, fmax: fmax}
	melCache.Lock()
	defer melCache.Unlock()
	if bank, ok := melCache.banks[key]; ok {
		return bank, nil
	}

	melMin := HzToMel(fmin)
	melMax := HzToMel(fmax)

	// numMels+2 boundaries equally spaced in mel, mapped to FFT bin indices
	// via floor((fftSize+1)*hz/sr). The +1 convention must be preserved for
	// corpus compatibility.
	binPoints := make([]int, numMels+2)
	for i := range binPoints {
		mel := melMin + (melMax-melMin)*float64(i)/float64(numMels+1)
		hz := MelToHz(mel)
		binPoints[i] = int(math.Floor(float64(fftSize+1) * hz / float64(sampleRate)))
	}

	numBins := fftSize/2 + 1
	bank := make([][]float64, numMels)
	for m := 1; m <= numMels; m++ {
		row := make([]float64, numBins)
		left, center, right := binPoints[m-1], binPoints[m], binPoints[m+1]

		for k := left; k < center && k < numBins; k++ {
			if k >= 0 && center != left {
				row[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k < right && k < numBins; k++ {
			if k >= 0 && right != center {
				row[k] = float64(right-k) / float64(right-center)
			}
		}
		bank[m-1] = row
	}

	melCache.banks[key] = bank
	return bank, nil
}

// MelSpectrogramDB projects a power spectrogram of shape (frames, bins)
// through the filterbank and converts to decibels. The result has shape
// (numMels, frames): band-major, matching the peak picker's view of the
// spectrogram.
func MelSpectrogramDB(bank [][]float64, power [][]float64) [][]float64 {
	numMels := len(bank)
	numFrames := len(power)

	spec := make([][]float64, numMels)
	for b := 0; b < numMels; b++ {
		row := make([]float64, numFrames)
		filter := bank[b]
		for m := 0; m < numFrames; m++ {
			sum := 0.0
			frame := power[m]
			for k := 0; k < len(filter) && k < len(frame); k++ {
				if filter[k] != 0 {
					sum += filter[k] * frame[k]
				}
			}
			row[m] = 10 * math.Log10(math.Max(logFloor, sum))
		}
		spec[b] = row
	}
	return spec
}

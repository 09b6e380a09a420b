package fingerprint

import (
	"github.com/zfogg/resonate/internal/config"
	"github.com/zfogg/resonate/internal/dsp"
	"github.com/zfogg/resonate/internal/metrics"
)

// Extractor orchestrates the full pipeline from mono PCM to fingerprint
// tokens: framing, windowed STFT, log-mel projection, peak picking, and
// landmark pairing. It is safe for concurrent use; all state is immutable
// after construction.
type Extractor struct {
	cfg    config.Config
	stft   *dsp.STFT
	bank   [][]float64
	picker *PeakPicker
	pairer *Fingerprinter
}

// NewExtractor validates the configuration and precomputes the window and
// mel filterbank.
func NewExtractor(cfg config.Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stft, err := dsp.NewSTFT(cfg.FFTSize, cfg.HopSize, cfg.WindowType)
	if err != nil {
		return nil, err
	}

	bank, err := dsp.MelFilterBank(cfg.SampleRate, cfg.FFTSize, cfg.NumMels, cfg.FreqMin, cfg.EffectiveFreqMax())
	if err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:    cfg,
		stft:   stft,
		bank:   bank,
		picker: NewPeakPicker(cfg),
		pairer: NewFingerprinter(cfg),
	}, nil
}

// Config returns the configuration the extractor was built with.
func (e *Extractor) Config() config.Config {
	return e.cfg
}

// Extract runs the pipeline over a mono PCM signal in [-1, 1] at the
// configured sample rate. A signal shorter than one FFT frame is
// INVALID_SIGNAL. An empty token list is a valid result (silence, pure
// tones); the caller decides whether that is an error.
func (e *Extractor) Extract(pcm []float64) ([]Token, error) {
	power, err := e.stft.PowerSpectrogram(pcm)
	if err != nil {
		return nil, err
	}

	spec := dsp.MelSpectrogramDB(e.bank, power)
	peaks := e.picker.FindPeaks(spec)

	seconds := float64(len(pcm)) / float64(e.cfg.SampleRate)
	metrics.Get().PeaksPerSecond.Observe(float64(len(peaks)) / seconds)

	return e.pairer.Generate(peaks), nil
}

// Peaks exposes the constellation map for a signal, mainly for diagnostics
// and tests.
func (e *Extractor) Peaks(pcm []float64) ([]Peak, error) {
	power, err := e.stft.PowerSpectrogram(pcm)
	if err != nil {
		return nil, err
	}
	return e.picker.FindPeaks(dsp.MelSpectrogramDB(e.bank, power)), nil
}

package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/config"
)

// extractorConfig keeps extraction fast by running at 8 kHz with a smaller
// mel layout.
func extractorConfig() config.Config {
	cfg := config.Default()
	cfg.SampleRate = 8000
	cfg.FFTSize = 1024
	cfg.HopSize = 256
	cfg.NumMels = 64
	return cfg
}

// sineSweep synthesizes a linear chirp from f0 to f1 Hz.
func sineSweep(sampleRate int, seconds, f0, f1 float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	x := make([]float64, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n)
		freq := f0 + (f1-f0)*progress
		phase += 2 * math.Pi * freq / float64(sampleRate)
		x[i] = 0.5 * math.Sin(phase)
	}
	return x
}

func TestNewExtractorValidatesConfig(t *testing.T) {
	cfg := extractorConfig()
	cfg.FFTSize = -1

	_, err := NewExtractor(cfg)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidParams, apperr.CodeOf(err))
}

func TestExtractTooShort(t *testing.T) {
	extractor, err := NewExtractor(extractorConfig())
	require.NoError(t, err)

	_, err = extractor.Extract(make([]float64, 100))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidSignal, apperr.CodeOf(err))
}

func TestExtractSilence(t *testing.T) {
	extractor, err := NewExtractor(extractorConfig())
	require.NoError(t, err)

	tokens, err := extractor.Extract(make([]float64, 8000*5))
	require.NoError(t, err)
	assert.Empty(t, tokens, "silence must not fingerprint")
}

func TestExtractSweepProducesTokens(t *testing.T) {
	extractor, err := NewExtractor(extractorConfig())
	require.NoError(t, err)

	sweep := sineSweep(8000, 8, 100, 3500)
	tokens, err := extractor.Extract(sweep)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	// Anchors come out in time order and hashes have the contract width.
	for i, tok := range tokens {
		assert.Len(t, tok.Hash, 20)
		if i > 0 {
			assert.GreaterOrEqual(t, tok.AnchorTime, tokens[i-1].AnchorTime)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	extractor, err := NewExtractor(extractorConfig())
	require.NoError(t, err)

	sweep := sineSweep(8000, 6, 200, 3000)

	first, err := extractor.Extract(sweep)
	require.NoError(t, err)
	second, err := extractor.Extract(sweep)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same input and parameters must produce identical tokens")
}

func TestPeaksQuotas(t *testing.T) {
	cfg := extractorConfig()
	extractor, err := NewExtractor(cfg)
	require.NoError(t, err)

	sweep := sineSweep(8000, 8, 100, 3500)
	peaks, err := extractor.Peaks(sweep)
	require.NoError(t, err)
	require.NotEmpty(t, peaks)

	perSecond := map[int]int{}
	for _, pk := range peaks {
		sec := pk.Time * cfg.HopSize / cfg.SampleRate
		perSecond[sec]++
	}
	for sec, count := range perSecond {
		assert.LessOrEqual(t, count, cfg.MaxPeaksPerSecond, "second %d over quota", sec)
	}
}

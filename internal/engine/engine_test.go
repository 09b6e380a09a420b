package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/config"
	"github.com/zfogg/resonate/internal/fingerprint"
	"github.com/zfogg/resonate/internal/index"
	"github.com/zfogg/resonate/internal/logger"
)

func TestMain(m *testing.M) {
	logger.InitializeForTest()
	m.Run()
}

// testConfig runs the pipeline at 8 kHz to keep extraction fast; every other
// knob keeps its default.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.SampleRate = 8000
	cfg.FFTSize = 1024
	cfg.HopSize = 256
	cfg.NumMels = 64
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(testConfig(), index.NewMemory())
	require.NoError(t, err)
	return eng
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

func TestRegisterAndSelfIdentify(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	sweep := sineSweep(8000, 10, 100, 3500)
	id, err := eng.Register(ctx, sweep, "Sweep", []string{"Generator"})
	require.NoError(t, err)

	result, err := eng.Identify(ctx, sweep)
	require.NoError(t, err)
	require.NotNil(t, result, "a registered recording must identify itself")

	assert.Equal(t, id, result.RecordingID)
	assert.GreaterOrEqual(t, result.Score, eng.Config().MinMatchScore)
	assert.InDelta(t, 0, result.Offset, 2, "self-query aligns at offset zero")
}

func TestIdentifyOffsetSlice(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	cfg := eng.Config()

	full := sineSweep(8000, 15, 100, 3600)
	id, err := eng.Register(ctx, full, "Long Sweep", []string{"Generator"})
	require.NoError(t, err)

	// A 5-second slice starting exactly at frame 250.
	const offsetFrames = 250
	start := offsetFrames * cfg.HopSize
	slice := full[start : start+5*cfg.SampleRate]

	result, err := eng.Identify(ctx, slice)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, id, result.RecordingID)
	assert.InDelta(t, offsetFrames, result.Offset, 2)
}

func TestIdentifyPicksCorrectRecording(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	a := sineSweep(8000, 10, 100, 900)
	b := sineSweep(8000, 10, 1200, 2400)
	c := sineSweep(8000, 10, 2600, 3800)

	_, err := eng.Register(ctx, a, "A", []string{"gen"})
	require.NoError(t, err)
	idB, err := eng.Register(ctx, b, "B", []string{"gen"})
	require.NoError(t, err)
	_, err = eng.Register(ctx, c, "C", []string{"gen"})
	require.NoError(t, err)

	result, err := eng.Identify(ctx, b[2*8000:7*8000])
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, idB, result.RecordingID)
}

func TestIdentifySilenceIsNoMatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	_, err := eng.Register(ctx, sineSweep(8000, 10, 100, 3500), "Sweep", []string{"gen"})
	require.NoError(t, err)

	result, err := eng.Identify(ctx, make([]float64, 8000*10))
	require.NoError(t, err, "silence is a no-match, not an error")
	assert.Nil(t, result)
}

func TestIdentifyWhiteNoiseIsNoMatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	_, err := eng.Register(ctx, sineSweep(8000, 10, 100, 900), "A", []string{"gen"})
	require.NoError(t, err)
	_, err = eng.Register(ctx, sineSweep(8000, 10, 1200, 2400), "B", []string{"gen"})
	require.NoError(t, err)
	_, err = eng.Register(ctx, sineSweep(8000, 10, 2600, 3800), "C", []string{"gen"})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	noise := make([]float64, 8000*5)
	for i := range noise {
		noise[i] = rng.Float64()*2 - 1
	}

	result, err := eng.Identify(ctx, noise)
	require.NoError(t, err)
	assert.Nil(t, result, "white noise must not clear the confidence gate")
}

func TestIdentifySurvivesAdditiveNoise(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	sweep := sineSweep(8000, 10, 100, 3500)
	id, err := eng.Register(ctx, sweep, "Sweep", []string{"gen"})
	require.NoError(t, err)

	clean, err := eng.Identify(ctx, sweep)
	require.NoError(t, err)
	require.NotNil(t, clean)

	// Mix in white noise at -10 dB SNR: noise power 10x signal power.
	signalPower := 0.0
	for _, v := range sweep {
		signalPower += v * v
	}
	signalPower /= float64(len(sweep))
	noiseStd := math.Sqrt(10 * signalPower)

	rng := rand.New(rand.NewSource(7))
	noisy := make([]float64, len(sweep))
	for i, v := range sweep {
		noisy[i] = v + rng.NormFloat64()*noiseStd
	}

	result, err := eng.Identify(ctx, noisy)
	require.NoError(t, err)
	require.NotNil(t, result, "heavy noise should degrade, not destroy, recognition")
	assert.Equal(t, id, result.RecordingID)
	assert.GreaterOrEqual(t, float64(result.Score), 0.25*float64(clean.Score))
}

func TestRegisterErrors(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	t.Run("silence is EMPTY_FINGERPRINT", func(t *testing.T) {
		_, err := eng.Register(ctx, make([]float64, 8000*5), "Silence", []string{"nobody"})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeEmptyFingerprint, apperr.CodeOf(err))
	})

	t.Run("short signal is INVALID_SIGNAL", func(t *testing.T) {
		_, err := eng.Register(ctx, make([]float64, 100), "Blip", []string{"nobody"})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidSignal, apperr.CodeOf(err))
	})

	t.Run("duplicate registration is CONFLICT", func(t *testing.T) {
		sweep := sineSweep(8000, 6, 200, 3000)
		_, err := eng.Register(ctx, sweep, "Dup", []string{"gen"})
		require.NoError(t, err)
		_, err = eng.Register(ctx, sweep, "Dup", []string{"gen"})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	})
}

func TestClearForgetsEverything(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	sweep := sineSweep(8000, 10, 100, 3500)
	id, err := eng.Register(ctx, sweep, "Sweep", []string{"gen"})
	require.NoError(t, err)

	require.NoError(t, eng.Clear(ctx))

	result, err := eng.Identify(ctx, sweep)
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = eng.GetRecording(ctx, id)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

// failingIndex forces AddFingerprints to fail so the rollback path can be
// observed.
type failingIndex struct {
	*index.Memory
}

func (f *failingIndex) AddFingerprints(ctx context.Context, recordingID uint, tokens []fingerprint.Token) error {
	return apperr.IndexIO("disk on fire", nil)
}

func TestRegisterRollsBackOnIngestFailure(t *testing.T) {
	ctx := context.Background()
	broken := &failingIndex{Memory: index.NewMemory()}
	eng, err := New(testConfig(), broken)
	require.NoError(t, err)

	_, err = eng.Register(ctx, sineSweep(8000, 6, 200, 3000), "Doomed", []string{"gen"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeIndexIO, apperr.CodeOf(err))

	// The metadata row must have been rolled back: re-registering the same
	// identity on a healthy index succeeds.
	_, err = broken.Memory.AddRecording(ctx, "Doomed", []string{"gen"})
	assert.NoError(t, err)
}

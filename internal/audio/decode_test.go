package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfogg/resonate/internal/apperr"
)

// writeWAV encodes int samples to a 16-bit PCM WAV file and returns its path.
func writeWAV(t *testing.T, sampleRate, numChannels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           data,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestDecodeWAVFileMono(t *testing.T) {
	// 440 Hz tone at half scale.
	const sampleRate = 8000
	n := sampleRate / 2
	data := make([]int, n)
	for i := range data {
		data[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}

	path := writeWAV(t, sampleRate, 1, data)

	pcm, sr, err := DecodeWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRate, sr)
	require.Len(t, pcm, n)

	peak := 0.0
	for _, v := range pcm {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	assert.InDelta(t, 0.5, peak, 0.01, "amplitude should survive the int16 round trip")
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Left and right cancel exactly, so the mono mix is silence.
	const n = 1000
	data := make([]int, 2*n)
	for i := 0; i < n; i++ {
		data[2*i] = 10000
		data[2*i+1] = -10000
	}

	path := writeWAV(t, 8000, 2, data)

	pcm, sr, err := DecodeWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, sr)
	require.Len(t, pcm, n)
	for _, v := range pcm {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV(bytes.NewReader([]byte("definitely not a wav file")))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestDecodeWAVFileMissing(t *testing.T) {
	_, _, err := DecodeWAVFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

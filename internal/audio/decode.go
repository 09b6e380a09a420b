package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/zfogg/resonate/internal/apperr"
)

// wavFormatPCM is the WAV audio format tag for integer PCM.
const wavFormatPCM = 1

// DecodeWAV reads a WAV stream and returns mono float64 samples in [-1, 1]
// plus the file's sample rate. Multi-channel audio is averaged to mono. The
// engine never resamples: callers must check the returned rate against the
// engine configuration.
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, apperr.BadRequest("not a valid WAV file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, 0, apperr.Newf(apperr.CodeBadRequest,
			"unsupported WAV encoding %d, only integer PCM is supported", decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeBadRequest, "failed to decode WAV data", err)
	}
	if len(buf.Data) == 0 {
		return nil, 0, apperr.InvalidSignal("WAV file contains no samples")
	}

	numChannels := buf.Format.NumChannels
	if numChannels <= 0 {
		numChannels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))

	numFrames := len(buf.Data) / numChannels
	mono := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		sum := 0.0
		for ch := 0; ch < numChannels; ch++ {
			sum += float64(buf.Data[i*numChannels+ch])
		}
		v := sum / (float64(numChannels) * scale)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		mono[i] = v
	}

	return mono, buf.Format.SampleRate, nil
}

// DecodeWAVFile decodes a WAV file from disk.
func DecodeWAVFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

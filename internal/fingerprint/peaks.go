package fingerprint

import (
	"sort"

	"github.com/zfogg/resonate/internal/config"
)

// Peak is one landmark of the constellation map: a cell of the log-mel
// spectrogram that survived the local-maximum and adaptive-threshold tests.
type Peak struct {
	Time      int     // frame index
	Band      int     // mel band index
	Amplitude float64 // dB
}

// PeakPicker finds a sparse, evenly distributed set of spectral landmarks.
// The adaptive median threshold lets quiet passages contribute peaks without
// letting loud passages monopolize the landmark budget, and the two quota
// stages spread the surviving peaks across frequency bands and time.
type PeakPicker struct {
	neighborhoodBands  int
	neighborhoodFrames int
	medianBands        int
	medianFrames       int
	offsetDB           float64
	peaksPerBand       int
	bandsSplit         int
	timeWindow         int
	maxPeaksPerSecond  int
	sampleRate         int
	hopSize            int
}

// NewPeakPicker creates a picker from the engine configuration.
func NewPeakPicker(cfg config.Config) *PeakPicker {
	return &PeakPicker{
		neighborhoodBands:  cfg.NeighborhoodBands,
		neighborhoodFrames: cfg.NeighborhoodFrames,
		medianBands:        cfg.MedianBands,
		medianFrames:       cfg.MedianFrames,
		offsetDB:           cfg.OffsetDB,
		peaksPerBand:       cfg.PeaksPerBand,
		bandsSplit:         cfg.BandsSplit,
		timeWindow:         cfg.TimeWindow,
		maxPeaksPerSecond:  cfg.MaxPeaksPerSecond,
		sampleRate:         cfg.SampleRate,
		hopSize:            cfg.HopSize,
	}
}

// FindPeaks scans a dB mel spectrogram of shape (bands, frames) and returns
// the surviving landmarks sorted by time, then band. Degenerate input
// (silence, or a spectrogram smaller than the neighborhood) yields an empty
// set, never an error.
func (p *PeakPicker) FindPeaks(spec [][]float64) []Peak {
	numBands := len(spec)
	if numBands == 0 {
		return nil
	}
	numFrames := len(spec[0])
	if numFrames == 0 {
		return nil
	}
	if numBands < p.neighborhoodBands || numFrames < p.neighborhoodFrames {
		return nil
	}

	maxVal := spec[0][0]
	for _, row := range spec {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal <= 0 {
		return nil
	}

	candidates := p.localMaxima(spec, numBands, numFrames)
	peaks := p.thresholdByMedian(spec, candidates, numBands, numFrames)
	peaks = p.limitPerBandWindow(peaks, numBands)
	peaks = p.limitPerSecond(peaks)

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Time != peaks[j].Time {
			return peaks[i].Time < peaks[j].Time
		}
		return peaks[i].Band < peaks[j].Band
	})
	return peaks
}

// localMaxima returns cells equal to the maximum of their rectangular
// neighborhood. Cells within half a neighborhood of the spectrogram edge are
// excluded outright: their neighborhood is truncated and they tend to be
// windowing artifacts.
func (p *PeakPicker) localMaxima(spec [][]float64, numBands, numFrames int) []Peak {
	bandHalf := p.neighborhoodBands / 2
	frameHalf := p.neighborhoodFrames / 2

	var candidates []Peak
	for f := bandHalf; f < numBands-bandHalf; f++ {
		for t := frameHalf; t < numFrames-frameHalf; t++ {
			v := spec[f][t]
			isMax := true
			for df := -bandHalf; df <= bandHalf && isMax; df++ {
				row := spec[f+df]
				for dt := -frameHalf; dt <= frameHalf; dt++ {
					if row[t+dt] > v {
						isMax = false
						break
					}
				}
			}
			if isMax {
				candidates = append(candidates, Peak{Time: t, Band: f, Amplitude: v})
			}
		}
	}
	return candidates
}

// thresholdByMedian keeps candidates that rise offsetDB above the median of
// their surrounding window. Out-of-range cells count as zero, matching a
// zero-padded median filter. The median is only evaluated at candidate cells;
// the result is identical to filtering the whole spectrogram first.
func (p *PeakPicker) thresholdByMedian(spec [][]float64, candidates []Peak, numBands, numFrames int) []Peak {
	bandHalf := p.medianBands / 2
	frameHalf := p.medianFrames / 2
	windowSize := p.medianBands * p.medianFrames

	window := make([]float64, 0, windowSize)
	kept := candidates[:0]

	for _, c := range candidates {
		window = window[:0]
		for df := -bandHalf; df <= bandHalf; df++ {
			f := c.Band + df
			if f < 0 || f >= numBands {
				for dt := -frameHalf; dt <= frameHalf; dt++ {
					window = append(window, 0)
				}
				continue
			}
			row := spec[f]
			for dt := -frameHalf; dt <= frameHalf; dt++ {
				t := c.Time + dt
				if t < 0 || t >= numFrames {
					window = append(window, 0)
				} else {
					window = append(window, row[t])
				}
			}
		}

		sort.Float64s(window)
		median := window[len(window)/2]
		if c.Amplitude > median+p.offsetDB {
			kept = append(kept, c)
		}
	}
	return kept
}

// limitPerBandWindow partitions the frequency axis into bandsSplit contiguous
// bands and the time axis into windows of timeWindow frames, keeping only the
// strongest peaksPerBand peaks inside each cell.
func (p *PeakPicker) limitPerBandWindow(peaks []Peak, numBands int) []Peak {
	if len(peaks) == 0 {
		return peaks
	}

	bandStep := numBands / p.bandsSplit
	if bandStep < 1 {
		bandStep = 1
	}

	type cell struct{ band, window int }
	cells := make(map[cell][]Peak)
	for _, pk := range peaks {
		b := pk.Band / bandStep
		if b >= p.bandsSplit {
			b = p.bandsSplit - 1 // last band absorbs the remainder
		}
		key := cell{band: b, window: pk.Time / p.timeWindow}
		cells[key] = append(cells[key], pk)
	}

	var kept []Peak
	for _, group := range cells {
		sort.Slice(group, func(i, j int) bool { return group[i].Amplitude > group[j].Amplitude })
		if len(group) > p.peaksPerBand {
			group = group[:p.peaksPerBand]
		}
		kept = append(kept, group...)
	}
	return kept
}

// limitPerSecond caps the surviving peaks per 1-second bucket, keeping the
// loudest.
func (p *PeakPicker) limitPerSecond(peaks []Peak) []Peak {
	if len(peaks) == 0 {
		return peaks
	}

	buckets := make(map[int][]Peak)
	for _, pk := range peaks {
		sec := pk.Time * p.hopSize / p.sampleRate
		buckets[sec] = append(buckets[sec], pk)
	}

	var kept []Peak
	for _, group := range buckets {
		if len(group) > p.maxPeaksPerSecond {
			sort.Slice(group, func(i, j int) bool { return group[i].Amplitude > group[j].Amplitude })
			group = group[:p.maxPeaksPerSecond]
		}
		kept = append(kept, group...)
	}
	return kept
}

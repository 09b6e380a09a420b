package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zfogg/resonate/internal/config"
)

// hashHexLen is the truncation width of the landmark hash: the first 20 hex
// characters (80 bits) of the SHA-1 digest. This width is part of the corpus
// compatibility contract and must not change without a full reindex.
const hashHexLen = 20

// Token is one fingerprint: a landmark-pair hash anchored at the frame index
// of its anchor peak.
type Token struct {
	Hash       string
	AnchorTime int
}

// Fingerprinter pairs anchor peaks with later target peaks inside a bounded
// time-frequency zone and emits a hash token per pair.
type Fingerprinter struct {
	fanoutSize      int
	targetTimeMin   int
	targetTimeMax   int
	targetFreqRange int
}

// NewFingerprinter creates a fingerprinter from the engine configuration.
func NewFingerprinter(cfg config.Config) *Fingerprinter {
	return &Fingerprinter{
		fanoutSize:      cfg.FanoutSize,
		targetTimeMin:   cfg.TargetTimeMin,
		targetTimeMax:   cfg.TargetTimeMax,
		targetFreqRange: cfg.TargetFreqRange,
	}
}

// Generate emits tokens for every valid (anchor, target) pair. Each anchor
// contributes at most fanoutSize tokens, targets are strictly later in time,
// and the time-sorted scan breaks out as soon as a target falls past the
// maximum delta, keeping the pass O(peaks * fanout-zone).
func (fp *Fingerprinter) Generate(peaks []Peak) []Token {
	if len(peaks) < 2 {
		return nil
	}

	sorted := make([]Peak, len(peaks))
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Time != sorted[j].Time {
			return sorted[i].Time < sorted[j].Time
		}
		return sorted[i].Band < sorted[j].Band
	})

	var tokens []Token
	for i := range sorted {
		anchor := sorted[i]
		emitted := 0

		for j := i + 1; j < len(sorted); j++ {
			target := sorted[j]
			dt := target.Time - anchor.Time
			if dt > fp.targetTimeMax {
				break
			}
			if dt < fp.targetTimeMin {
				continue
			}

			df := target.Band - anchor.Band
			if df < 0 {
				df = -df
			}
			if df > fp.targetFreqRange {
				continue
			}

			tokens = append(tokens, Token{
				Hash:       hashPeakPair(anchor.Band, target.Band, dt),
				AnchorTime: anchor.Time,
			})
			emitted++
			if emitted >= fp.fanoutSize {
				break
			}
		}
	}
	return tokens
}

// hashPeakPair derives the landmark hash from the anchor band, target band,
// and their frame delta.
func hashPeakPair(anchorBand, targetBand, deltaTime int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d|%d|%d", anchorBand, targetBand, deltaTime)))
	return hex.EncodeToString(sum[:])[:hashHexLen]
}

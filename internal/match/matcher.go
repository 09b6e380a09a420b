package match

import (
	"context"
	"sort"

	"github.com/zfogg/resonate/internal/fingerprint"
	"github.com/zfogg/resonate/internal/index"
)

// Match is a recognition result: the winning recording, its consensus score
// (the height of its offset-histogram mode), and the alignment offset in
// frames between query time zero and the recording.
type Match struct {
	RecordingID uint `json:"recording_id"`
	Score       int  `json:"score"`
	Offset      int  `json:"offset_frames"`
}

// Matcher scores candidate recordings by offset-histogram consensus. A true
// match concentrates many query/DB hash pairs on a single time offset;
// unrelated recordings scatter their offsets, so the histogram maximum
// separates them cleanly even under noise and partial occlusion.
type Matcher struct {
	minScore int
}

// NewMatcher creates a matcher with the given confidence gate.
func NewMatcher(minScore int) *Matcher {
	return &Matcher{minScore: minScore}
}

// BestMatch looks up the query tokens in one batched call, accumulates the
// per-recording offset histograms, and returns the recording with the
// largest mode. A nil result is "no match": the best score fell below the
// gate, or the query produced no tokens. Absence of a match is never an
// error.
func (m *Matcher) BestMatch(ctx context.Context, idx index.Index, tokens []fingerprint.Token) (*Match, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(tokens))
	hashes := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Hash]; ok {
			continue
		}
		seen[tok.Hash] = struct{}{}
		hashes = append(hashes, tok.Hash)
	}

	postings, err := idx.Lookup(ctx, hashes)
	if err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, nil
	}

	// Invert to hash -> recording -> anchor times so the token pass only
	// touches recordings that actually contain each hash.
	byHash := make(map[string]map[uint][]int)
	for recID, recHashes := range postings {
		for h, times := range recHashes {
			perRec, ok := byHash[h]
			if !ok {
				perRec = make(map[uint][]int)
				byHash[h] = perRec
			}
			perRec[recID] = times
		}
	}

	hist := make(map[uint]map[int]int)
	for _, tok := range tokens {
		for recID, dbTimes := range byHash[tok.Hash] {
			offsets, ok := hist[recID]
			if !ok {
				offsets = make(map[int]int)
				hist[recID] = offsets
			}
			for _, dbTime := range dbTimes {
				offsets[dbTime-tok.AnchorTime]++
			}
		}
	}

	// Candidates are walked in ascending id order and only a strictly
	// greater score replaces the leader, so score ties resolve to the lower
	// id deterministically.
	ids := make([]uint, 0, len(hist))
	for id := range hist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var best *Match
	for _, id := range ids {
		score, offset := histogramMode(hist[id])
		if best == nil || score > best.Score {
			best = &Match{RecordingID: id, Score: score, Offset: offset}
		}
	}

	if best == nil || best.Score < m.minScore {
		return nil, nil
	}
	return best, nil
}

// histogramMode returns the largest bin count and its offset; offset ties
// resolve to the smallest offset for determinism.
func histogramMode(offsets map[int]int) (int, int) {
	bestCount, bestOffset := 0, 0
	first := true
	for offset, count := range offsets {
		if first || count > bestCount || (count == bestCount && offset < bestOffset) {
			bestCount, bestOffset = count, offset
			first = false
		}
	}
	return bestCount, bestOffset
}

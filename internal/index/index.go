package index

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/fingerprint"
	"github.com/zfogg/resonate/internal/models"
)

// Posting is one stored occurrence of a hash: which recording it came from
// and at which anchor frame.
type Posting struct {
	RecordingID uint
	AnchorTime  int
}

// Index is the inverted fingerprint index: recordings metadata plus a
// hash -> postings map. Lookup cost is proportional to the postings matching
// the query hashes, never to total index size.
type Index interface {
	// AddRecording registers metadata and returns the new id. Registering
	// the same (name, artists) twice is CONFLICT.
	AddRecording(ctx context.Context, name string, artists []string) (uint, error)

	// AddFingerprints stores a batch of tokens under a recording.
	// UNKNOWN_RECORDING if the id was never registered; no partial writes.
	AddFingerprints(ctx context.Context, recordingID uint, tokens []fingerprint.Token) error

	// Lookup returns, for each recording with at least one matching posting,
	// the anchor times per query hash. An empty query yields an empty map.
	Lookup(ctx context.Context, hashes []string) (map[uint]map[string][]int, error)

	// GetRecording returns metadata, or NOT_FOUND.
	GetRecording(ctx context.Context, id uint) (*models.Recording, error)

	// Remove deletes one recording and its postings.
	Remove(ctx context.Context, id uint) error

	// Clear drops all postings and recordings.
	Clear(ctx context.Context) error
}

// Memory is the in-process index backend. A single RWMutex gives readers a
// consistent snapshot: a recording's postings are visible all-or-nothing,
// never partially mid-ingest.
type Memory struct {
	mu         sync.RWMutex
	nextID     uint
	recordings map[uint]*models.Recording
	byIdentity map[string]uint
	postings   map[string][]Posting
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.nextID = 0
	m.recordings = make(map[uint]*models.Recording)
	m.byIdentity = make(map[string]uint)
	m.postings = make(map[string][]Posting)
}

func identityKey(name string, artists []string) string {
	return name + "\x1f" + strings.Join(artists, "\x1f")
}

// AddRecording implements Index.
func (m *Memory) AddRecording(ctx context.Context, name string, artists []string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identityKey(name, artists)
	if _, exists := m.byIdentity[key]; exists {
		return 0, apperr.Conflict("recording already registered with the same name and artists")
	}

	m.nextID++
	id := m.nextID
	m.recordings[id] = &models.Recording{
		ID:        id,
		Name:      name,
		Artists:   models.ArtistList(artists),
		CreatedAt: time.Now().UTC(),
	}
	m.byIdentity[key] = id
	return id, nil
}

// AddFingerprints implements Index. The write lock is held for the whole
// batch so concurrent lookups never observe a half-ingested recording.
func (m *Memory) AddFingerprints(ctx context.Context, recordingID uint, tokens []fingerprint.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recordings[recordingID]; !ok {
		return apperr.UnknownRecording(recordingID)
	}

	for _, tok := range tokens {
		m.postings[tok.Hash] = append(m.postings[tok.Hash], Posting{
			RecordingID: recordingID,
			AnchorTime:  tok.AnchorTime,
		})
	}
	return nil
}

// Lookup implements Index.
func (m *Memory) Lookup(ctx context.Context, hashes []string) (map[uint]map[string][]int, error) {
	result := make(map[uint]map[string][]int)
	if len(hashes) == 0 {
		return result, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, h := range hashes {
		for _, posting := range m.postings[h] {
			byHash, ok := result[posting.RecordingID]
			if !ok {
				byHash = make(map[string][]int)
				result[posting.RecordingID] = byHash
			}
			byHash[h] = append(byHash[h], posting.AnchorTime)
		}
	}
	return result, nil
}

// GetRecording implements Index.
func (m *Memory) GetRecording(ctx context.Context, id uint) (*models.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recordings[id]
	if !ok {
		return nil, apperr.NotFound("recording")
	}
	out := *rec
	return &out, nil
}

// Remove implements Index.
func (m *Memory) Remove(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recordings[id]
	if !ok {
		return apperr.NotFound("recording")
	}
	delete(m.recordings, id)
	delete(m.byIdentity, identityKey(rec.Name, rec.Artists))

	for h, postings := range m.postings {
		kept := postings[:0]
		for _, p := range postings {
			if p.RecordingID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(m.postings, h)
		} else {
			m.postings[h] = kept
		}
	}
	return nil
}

// Clear implements Index.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

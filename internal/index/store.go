package index

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/fingerprint"
	"github.com/zfogg/resonate/internal/logger"
	"github.com/zfogg/resonate/internal/models"
)

// insertBatchSize bounds the row count per INSERT during bulk ingest.
const insertBatchSize = 500

// lookupChunkSize bounds the size of the IN (...) list per lookup query.
const lookupChunkSize = 500

// Store is the durable index backend over the canonical relational schema:
// recordings(id, name, artists) and fingerprints(hash, recording_id,
// anchor_time) with an index on hash. Failed inserts, deletes and lookups are
// retried once before surfacing as INDEX_IO; the single-row metadata reads
// (duplicate check, recording existence) are not retried.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an opened and migrated database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// withRetry runs op, retrying exactly once on failure.
func withRetry(op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	logger.Warn("index store operation failed, retrying once", zap.Error(err))
	return op()
}

// AddRecording implements Index.
func (s *Store) AddRecording(ctx context.Context, name string, artists []string) (uint, error) {
	artistsValue, err := models.ArtistList(artists).Value()
	if err != nil {
		return 0, apperr.Internal("failed to serialize artists", err)
	}

	var existing models.Recording
	err = s.db.WithContext(ctx).
		Where("name = ? AND artists = ?", name, artistsValue).
		First(&existing).Error
	if err == nil {
		return 0, apperr.Conflict("recording already registered with the same name and artists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.IndexIO("failed to check for duplicate recording", err)
	}

	rec := models.Recording{Name: name, Artists: models.ArtistList(artists)}
	err = withRetry(func() error {
		return s.db.WithContext(ctx).Create(&rec).Error
	})
	if err != nil {
		return 0, apperr.IndexIO("failed to insert recording", err)
	}
	return rec.ID, nil
}

// AddFingerprints implements Index. The batch goes in as one transaction so
// a lookup sees either all of a recording's postings or none of them.
func (s *Store) AddFingerprints(ctx context.Context, recordingID uint, tokens []fingerprint.Token) error {
	var rec models.Recording
	err := s.db.WithContext(ctx).First(&rec, recordingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.UnknownRecording(recordingID)
	}
	if err != nil {
		return apperr.IndexIO("failed to verify recording", err)
	}

	if len(tokens) == 0 {
		return nil
	}

	rows := make([]models.Fingerprint, len(tokens))
	for i, tok := range tokens {
		rows[i] = models.Fingerprint{
			Hash:        tok.Hash,
			RecordingID: recordingID,
			AnchorTime:  tok.AnchorTime,
		}
	}

	err = withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(rows, insertBatchSize).Error
		})
	})
	if err != nil {
		return apperr.IndexIO("failed to insert fingerprints", err)
	}
	return nil
}

// Lookup implements Index. The query hash set is chunked into bounded
// IN-lists; cost scales with matching postings via the hash index.
func (s *Store) Lookup(ctx context.Context, hashes []string) (map[uint]map[string][]int, error) {
	result := make(map[uint]map[string][]int)
	if len(hashes) == 0 {
		return result, nil
	}

	for start := 0; start < len(hashes); start += lookupChunkSize {
		end := start + lookupChunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		var rows []models.Fingerprint
		err := withRetry(func() error {
			rows = rows[:0]
			return s.db.WithContext(ctx).
				Where("hash IN ?", hashes[start:end]).
				Find(&rows).Error
		})
		if err != nil {
			return nil, apperr.IndexIO("fingerprint lookup failed", err)
		}

		for _, row := range rows {
			byHash, ok := result[row.RecordingID]
			if !ok {
				byHash = make(map[string][]int)
				result[row.RecordingID] = byHash
			}
			byHash[row.Hash] = append(byHash[row.Hash], row.AnchorTime)
		}
	}
	return result, nil
}

// GetRecording implements Index.
func (s *Store) GetRecording(ctx context.Context, id uint) (*models.Recording, error) {
	var rec models.Recording
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("recording")
	}
	if err != nil {
		return nil, apperr.IndexIO("failed to load recording", err)
	}
	return &rec, nil
}

// Remove implements Index.
func (s *Store) Remove(ctx context.Context, id uint) error {
	var rec models.Recording
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("recording")
	}
	if err != nil {
		return apperr.IndexIO("failed to load recording", err)
	}

	err = withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("recording_id = ?", id).Delete(&models.Fingerprint{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Recording{}, id).Error
		})
	})
	if err != nil {
		return apperr.IndexIO("failed to remove recording", err)
	}
	return nil
}

// Clear implements Index.
func (s *Store) Clear(ctx context.Context) error {
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM fingerprints").Error; err != nil {
				return err
			}
			return tx.Exec("DELETE FROM recordings").Error
		})
	})
	if err != nil {
		return apperr.IndexIO("failed to clear index", err)
	}
	return nil
}

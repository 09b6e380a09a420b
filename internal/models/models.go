package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ArtistList is a custom type serialized as a JSON array so that artist order
// round-trips through TEXT columns on both sqlite and postgres.
type ArtistList []string

// Scan implements the sql.Scanner interface for reading from database
func (a *ArtistList) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into ArtistList", value)
	}

	if len(data) == 0 {
		*a = ArtistList{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// Value implements the driver.Valuer interface for writing to database
func (a ArtistList) Value() (driver.Value, error) {
	if a == nil {
		a = ArtistList{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Recording is a registered reference track. Name and artists are opaque
// metadata; nothing in the matcher reads them.
type Recording struct {
	ID      uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string     `gorm:"not null" json:"name"`
	Artists ArtistList `gorm:"type:text;not null" json:"artists"`

	CreatedAt time.Time `json:"created_at"`
}

// Fingerprint is one posting: a single hash occurrence at an anchor time on a
// recording. Equivalent rows are retained; there is no dedup.
type Fingerprint struct {
	Hash        string `gorm:"not null;index:idx_fingerprints_hash" json:"hash"`
	RecordingID uint   `gorm:"not null" json:"recording_id"`
	AnchorTime  int    `gorm:"not null" json:"anchor_time"`
}

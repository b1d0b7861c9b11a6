package contentstore

import (
	"encoding/json"
	"time"
)

// Record is a stored prophecy. Records are immutable once created.
type Record struct {
	ID        string    `json:"-"`
	Text      string    `json:"text"`
	Theme     string    `json:"theme,omitempty"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord builds a record stamped with t.
func NewRecord(id, text, theme string, t time.Time) Record {
	return Record{
		ID:        id,
		Text:      text,
		Theme:     theme,
		Timestamp: t.Unix(),
		CreatedAt: t.UTC(),
	}
}

// Offset-less ISO-8601 layouts found in older prophecy files.
var legacyCreatedAtLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts created_at as RFC 3339 or as an ISO-8601 local time
// without an offset. An unparseable created_at falls back to the timestamp.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.plain)
	r.CreatedAt = parseCreatedAt(raw.CreatedAt, r.Timestamp)
	return nil
}

func parseCreatedAt(s string, timestamp int64) time.Time {
	if s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		for _, layout := range legacyCreatedAtLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t
			}
		}
	}
	if timestamp > 0 {
		return time.Unix(timestamp, 0).UTC()
	}
	return time.Time{}
}

// Mode is the persistence mode chosen when the store is constructed.
type Mode string

const (
	// ModeRemote sends writes and reads to the remote ledger first.
	ModeRemote Mode = "remote"
	// ModeLocal uses only the local JSON file.
	ModeLocal Mode = "local"
)

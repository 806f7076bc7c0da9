package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
)

// FormatVersion is the version written by Encode.
const FormatVersion = 1

// ErrUnsupportedFormat is returned when a blob carries an unknown version.
var ErrUnsupportedFormat = errors.New("unsupported history format")

type envelope struct {
	Version   int                              `json:"version"`
	Workflows map[string]*domain.HistoryRecord `json:"workflows"`
}

// Encode serializes the history map into a versioned JSON blob.
// Timestamps are written as RFC 3339 with nanoseconds.
func Encode(records map[string]*domain.HistoryRecord) ([]byte, error) {
	if records == nil {
		records = map[string]*domain.HistoryRecord{}
	}
	blob, err := json.Marshal(envelope{Version: FormatVersion, Workflows: records})
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return blob, nil
}

// Decode parses a blob produced by Encode. Numbers inside input trees are
// kept as json.Number so they round-trip without float conversion.
// The applying flag is cleared since restores never survive a reload.
func Decode(blob []byte) (map[string]*domain.HistoryRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, env.Version)
	}

	records := env.Workflows
	if records == nil {
		records = map[string]*domain.HistoryRecord{}
	}
	for id, rec := range records {
		if rec == nil {
			records[id] = &domain.HistoryRecord{}
			continue
		}
		rec.IsApplyingSnapshot = false
	}
	return records, nil
}

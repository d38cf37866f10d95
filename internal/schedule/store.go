// Package schedule persists the one-shot chain trigger and re-arms it across
// restarts. A trigger missed while the process was down still fires if it is
// recent enough; anything older is discarded.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"stockpilot/internal/logger"
)

// Entry is the trigger setting for one scheduled action.
type Entry struct {
	Enable      bool   `json:"enable"`
	TriggerTime string `json:"trigger_time"`
}

// Time parses the entry's trigger time. The stored format is ISO-8601 with a
// UTC offset.
func (e Entry) Time() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, e.TriggerTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trigger_time %q: %w", e.TriggerTime, err)
	}
	return ts, nil
}

// Record is the on-disk document shape. The "Update" key is the chain
// trigger.
type Record struct {
	Update Entry `json:"Update"`
}

// Store provides persistent storage for the schedule record.
type Store struct {
	filePath string
	logger   *logger.Logger
	mu       sync.RWMutex
}

// NewStore creates a new Store backed by the given file path.
func NewStore(filePath string, log *logger.Logger) *Store {
	return &Store{
		filePath: filePath,
		logger:   log,
	}
}

// Load reads the record from disk. A missing file yields a disabled record.
func (s *Store) Load() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Update applies fn to the record under the write lock and persists the
// result.
func (s *Store) Update(fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	return s.save(r)
}

func (s *Store) load() (*Record, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return &Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file %s: %w", s.filePath, err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file %s: %w", s.filePath, err)
	}
	return &r, nil
}

func (s *Store) save(r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule record: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.logger.Error("failed to write temporary schedule file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary schedule file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		os.Remove(tmpPath)
		return err
	}
	return nil
}

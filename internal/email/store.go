// Package email owns the outgoing report record and its dispatch paths.
package email

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"stockpilot/internal/logger"
)

// PriceMove is one notable daily mover included in the report.
type PriceMove struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// Content is the report body.
type Content struct {
	Summary          string      `json:"summary"`
	DailyPriceChange []PriceMove `json:"dailyPriceChange"`
}

// Report is the on-disk shape of the pending report record.
type Report struct {
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject"`
	Content   Content `json:"content"`
}

// Store provides persistent storage for the report record.
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

// Load reads the report record from disk. A missing file yields a zero
// record.
func (s *Store) Load() (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Update applies fn to the record under the write lock and persists the
// result.
func (s *Store) Update(fn func(*Report) error) error {
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

func (s *Store) load() (*Report, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return &Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report file %s: %w", s.filePath, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report file %s: %w", s.filePath, err)
	}
	return &r, nil
}

func (s *Store) save(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.logger.Error("failed to write temporary report file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary report file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		os.Remove(tmpPath)
		return err
	}
	return nil
}

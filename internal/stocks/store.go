// Package stocks owns the tracked portfolio: its JSON store on disk, the
// market data feed, and the refresh pass that fills in missing prices.
package stocks

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"stockpilot/internal/logger"
)

// Stock is one tracked position.
type Stock struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Date          string  `json:"date"`
}

// Portfolio is the on-disk document shape.
type Portfolio struct {
	Stocks []Stock `json:"stocks"`
}

// Store provides persistent storage for the portfolio file.
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

// Load reads the portfolio from disk. A missing file yields an empty
// portfolio.
func (s *Store) Load() (*Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Save writes the portfolio to disk atomically.
func (s *Store) Save(p *Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(p)
}

// Update applies fn to the portfolio under the write lock and persists the
// result. fn returning an error aborts the update without writing.
func (s *Store) Update(fn func(*Portfolio) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return s.save(p)
}

func (s *Store) load() (*Portfolio, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return &Portfolio{Stocks: []Stock{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio file %s: %w", s.filePath, err)
	}

	var p Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio file %s: %w", s.filePath, err)
	}
	return &p, nil
}

// save writes through a temporary file and renames it over the target, so a
// crash mid-write never leaves a truncated portfolio behind.
func (s *Store) save(p *Portfolio) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.logger.Error("failed to write temporary portfolio file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary portfolio file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		os.Remove(tmpPath)
		return err
	}
	return nil
}

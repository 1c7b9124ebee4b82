// Package memory is an in-process mirror adapter used in tests and local
// development, where no spreadsheet is reachable.
package memory

import (
	"context"
	"fmt"
	"sync"

	"monetra/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows map[string]core.Transaction
}

func New() *Store {
	return &Store{rows: make(map[string]core.Transaction)}
}

// Upsert stores the transaction keyed by id and returns a synthetic row
// reference.
func (s *Store) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tx.ID] = tx
	return fmt.Sprintf("mem:%s", tx.ID), nil
}

// Delete removes the row for id. Unknown ids are a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// Get returns the mirrored row and whether it exists.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	return tx, ok
}

// Len reports how many rows are mirrored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

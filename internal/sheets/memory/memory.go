package memory

import (
	"context"
	"fmt"
	"sync"

	"cartera/internal/sheets"
)

// Store keeps exported rows in memory, one slice per year.
type Store struct {
	mu   sync.Mutex
	rows map[int][]sheets.Row
}

var _ sheets.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int][]sheets.Row)}
}

// AppendRows stores the rows and returns a synthetic range reference.
func (s *Store) AppendRows(_ context.Context, year int, rows []sheets.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows[year]) + 2 // row 1 is the header
	s.rows[year] = append(s.rows[year], rows...)
	return fmt.Sprintf("mem:%d!A%d:H%d", year, first, first+len(rows)-1), nil
}

// ExportedIDs returns the ids of every stored row for year.
func (s *Store) ExportedIDs(_ context.Context, year int) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]bool, len(s.rows[year]))
	for _, r := range s.rows[year] {
		ids[r.TransactionID] = true
	}
	return ids, nil
}

// Rows returns a copy of the rows stored for year.
func (s *Store) Rows(year int) []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows[year]...)
}

package diag

import (
	"sort"
	"sync"
)

// Set holds the published records of every file.
// It is safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	files map[string][]Record
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{files: make(map[string][]Record)}
}

// Replace stores records as the complete list for file.
// An empty list still creates the entry, so the file counts as published.
func (s *Set) Replace(file string, records []Record) {
	stored := make([]Record, len(records))
	copy(stored, records)
	s.mu.Lock()
	s.files[file] = stored
	s.mu.Unlock()
}

// Delete drops the entry of file and reports whether it existed.
func (s *Set) Delete(file string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[file]
	delete(s.files, file)
	return ok
}

// Clear drops every entry and returns the files that had one, sorted.
func (s *Set) Clear() []string {
	s.mu.Lock()
	prev := s.files
	s.files = make(map[string][]Record)
	s.mu.Unlock()
	files := make([]string, 0, len(prev))
	for file := range prev {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Get returns a copy of the records of file.
func (s *Set) Get(file string) ([]Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.files[file]
	if !ok {
		return nil, false
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out, true
}

// Files returns every file with an entry, sorted.
func (s *Set) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]string, 0, len(s.files))
	for file := range s.files {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Len returns the number of files with an entry.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Lookup finds the record of file with the given range and code.
func (s *Set) Lookup(file string, rng Range, code Code) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.files[file] {
		if rec.Range == rng && rec.Code == code {
			return rec, true
		}
	}
	return Record{}, false
}

package ingestion

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Summary reports the outcome of an ingestion batch.
type Summary struct {
	Processed int
	Succeeded int // includes skipped duplicates
	Failed    int
	Skipped   int
	Chunks    int
	Failures  map[string]error // keyed by document path

	mu sync.Mutex
}

func newSummary() *Summary {
	return &Summary{Failures: make(map[string]error)}
}

func (s *Summary) success(chunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Succeeded++
	s.Chunks += chunks
}

func (s *Summary) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Succeeded++
	s.Skipped++
}

func (s *Summary) fail(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Failed++
	s.Failures[path] = err
}

// String renders the summary line.
func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Processed: %d, Success: %d, Failed: %d", s.Processed, s.Succeeded, s.Failed)
}

// Err joins every per-document failure, ordered by path, or returns nil.
func (s *Summary) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Failures) == 0 {
		return nil
	}
	paths := make([]string, 0, len(s.Failures))
	for p := range s.Failures {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	errs := make([]error, len(paths))
	for i, p := range paths {
		errs[i] = fmt.Errorf("%s: %w", p, s.Failures[p])
	}
	return errors.Join(errs...)
}

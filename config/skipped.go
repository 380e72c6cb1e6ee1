package config

import (
	"slices"
	"sync"

	"github.com/c360studio/semtype/vocabulary/emf"
)

// SkippedClasses holds the skipped class set shared between the config
// watcher and running type change requests.
type SkippedClasses struct {
	mu      sync.RWMutex
	classes []string
}

// NewSkippedClasses creates a holder with the given classes.
func NewSkippedClasses(classes ...string) *SkippedClasses {
	s := &SkippedClasses{}
	s.Set(classes)
	return s
}

// Set replaces the set. Compact IRIs are expanded.
func (s *SkippedClasses) Set(classes []string) {
	expanded := make([]string, 0, len(classes))
	for _, c := range classes {
		expanded = append(expanded, emf.Expand(c))
	}
	slices.Sort(expanded)
	expanded = slices.Compact(expanded)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = expanded
}

// Snapshot returns a copy of the current set.
func (s *SkippedClasses) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.classes)
}

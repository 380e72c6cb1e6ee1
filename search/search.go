// Package search finds the instances that reference a given instance.
package search

import (
	"context"
	"iter"

	"github.com/c360studio/semtype/instance"
)

// Query selects the instances referencing Target. NewType is the type the
// target is about to take; services may use it to narrow the result.
type Query struct {
	Target  string
	NewType string
}

// Service streams the ids of instances matching a query. Each id is
// yielded at most once and the target itself is never yielded.
type Service interface {
	Stream(ctx context.Context, q Query) iter.Seq2[string, error]
}

// Source enumerates stored instances.
type Source interface {
	Scan(ctx context.Context) iter.Seq2[*instance.Instance, error]
}

// ReferrerSearch answers queries by scanning a Source for instances whose
// property values contain the target id.
type ReferrerSearch struct {
	source Source
}

// NewReferrerSearch creates a search over the source.
func NewReferrerSearch(source Source) *ReferrerSearch {
	return &ReferrerSearch{source: source}
}

// Stream implements Service.
func (s *ReferrerSearch) Stream(ctx context.Context, q Query) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		seen := make(map[string]bool)
		for inst, err := range s.source.Scan(ctx) {
			if err != nil {
				yield("", err)
				return
			}
			if inst.ID == q.Target || seen[inst.ID] {
				continue
			}
			if len(inst.References(q.Target)) == 0 {
				continue
			}
			seen[inst.ID] = true
			if !yield(inst.ID, nil) {
				return
			}
		}
	}
}

// Collect drains a stream into a slice, stopping at the first error.
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	var ids []string
	for id, err := range seq {
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

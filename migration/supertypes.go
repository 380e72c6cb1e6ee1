package migration

import (
	"context"

	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/semantic"
	"github.com/c360studio/semtype/vocabulary/emf"
)

// SkipSet holds the class IRIs that never qualify as allowed super types.
type SkipSet map[string]struct{}

// NewSkipSet builds a set from compact or full IRIs.
func NewSkipSet(ids ...string) SkipSet {
	s := make(SkipSet, len(ids))
	for _, id := range ids {
		s[emf.Expand(id)] = struct{}{}
	}
	return s
}

// Contains reports whether the class is skipped.
func (s SkipSet) Contains(id string) bool {
	_, ok := s[emf.Expand(id)]
	return ok
}

// AllowedSuperTypes returns the ancestors of a class that are not skipped,
// nearest first. The class itself is never part of the result.
func AllowedSuperTypes(ctx context.Context, h *semantic.Hierarchy, classID string, skipped SkipSet) ([]instance.InstanceType, error) {
	ancestors, err := h.Ancestors(ctx, classID)
	if err != nil {
		return nil, err
	}

	var result []instance.InstanceType
	for _, a := range ancestors {
		if skipped.Contains(a.ID) {
			continue
		}
		result = append(result, instance.InstanceType(a.ID))
	}
	return result, nil
}

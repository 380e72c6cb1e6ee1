package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/search"
	"github.com/c360studio/semtype/semantic"
)

// ImpactAnalyzer finds the instances whose relations to an instance stay
// valid when that instance changes its semantic type.
type ImpactAnalyzer struct {
	search      search.Service
	loader      instance.BulkLoader
	definitions definition.Service
	semantics   semantic.Service
	hierarchy   *semantic.Hierarchy
	metrics     *Metrics
	logger      *slog.Logger
}

// NewImpactAnalyzer creates an analyzer. metrics may be nil.
func NewImpactAnalyzer(s search.Service, loader instance.BulkLoader, definitions definition.Service, semantics semantic.Service, metrics *Metrics, logger *slog.Logger) *ImpactAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpactAnalyzer{
		search:      s,
		loader:      loader,
		definitions: definitions,
		semantics:   semantics,
		hierarchy:   semantic.NewHierarchy(semantics),
		metrics:     metrics,
		logger:      logger,
	}
}

// Affected returns copies of the instances referencing instanceID through
// at least one relation whose range admits newType. In each copy the
// references to instanceID through incompatible relations are removed.
func (a *ImpactAnalyzer) Affected(ctx context.Context, instanceID, newType string) ([]*instance.Instance, error) {
	start := time.Now()
	var affected []*instance.Instance
	err := a.walk(ctx, instanceID, newType, func(candidate *instance.Instance, incompatible []string) {
		c := candidate.Clone()
		for _, name := range incompatible {
			c.RemoveValue(name, instanceID)
		}
		affected = append(affected, c)
	})
	if err != nil {
		return nil, err
	}
	a.metrics.observeAffected(len(affected), time.Since(start))
	return affected, nil
}

// CountAffected returns len(Affected(...)) without copying instances.
func (a *ImpactAnalyzer) CountAffected(ctx context.Context, instanceID, newType string) (int, error) {
	start := time.Now()
	count := 0
	err := a.walk(ctx, instanceID, newType, func(*instance.Instance, []string) {
		count++
	})
	if err != nil {
		return 0, err
	}
	a.metrics.observeAffected(count, time.Since(start))
	return count, nil
}

// walk calls include for every referrer with a compatible relation, passing
// the names of its incompatible relations to instanceID.
func (a *ImpactAnalyzer) walk(ctx context.Context, instanceID, newType string, include func(*instance.Instance, []string)) error {
	if instanceID == "" || newType == "" {
		return fmt.Errorf("%w: instance id and new type are required", ErrInvalidArgument)
	}
	if _, err := a.hierarchy.Class(ctx, newType); err != nil {
		return err
	}

	candidates, err := a.candidates(ctx, instanceID, newType)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		compatible, incompatible, err := a.evaluate(ctx, candidate, instanceID, newType)
		if err != nil {
			return err
		}
		if len(compatible) == 0 {
			continue
		}
		include(candidate, incompatible)
	}
	return nil
}

func (a *ImpactAnalyzer) candidates(ctx context.Context, instanceID, newType string) ([]*instance.Instance, error) {
	seen := make(map[string]bool)
	var ids []string
	for id, err := range a.search.Stream(ctx, search.Query{Target: instanceID, NewType: newType}) {
		if err != nil {
			return nil, fmt.Errorf("search referrers of %s: %w", instanceID, err)
		}
		if id == instanceID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	loaded, err := a.loader.LoadAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load referrers of %s: %w", instanceID, err)
	}
	a.logger.Debug("Loaded referrers", "instance", instanceID, "found", len(ids), "loaded", len(loaded))
	return loaded, nil
}

// evaluate splits the relations of candidate pointing at instanceID into
// those whose range admits newType and those whose range does not.
func (a *ImpactAnalyzer) evaluate(ctx context.Context, candidate *instance.Instance, instanceID, newType string) (compatible, incompatible []string, err error) {
	def, err := a.definitions.InstanceDefinition(ctx, candidate)
	if err != nil {
		return nil, nil, fmt.Errorf("definition of %s: %w", candidate.ID, err)
	}

	for _, name := range candidate.References(instanceID) {
		field, ok := def.Field(name)
		if !ok || !field.IsObject() {
			continue
		}
		ok, err := a.rangeAllows(ctx, field, newType)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			compatible = append(compatible, name)
		} else {
			incompatible = append(incompatible, name)
		}
	}
	return compatible, incompatible, nil
}

// rangeAllows treats unknown relations, missing ranges and unresolvable
// range classes as unrestricted.
func (a *ImpactAnalyzer) rangeAllows(ctx context.Context, field definition.PropertyDeclaration, newType string) (bool, error) {
	if !field.HasURI() {
		return true, nil
	}
	rel, err := a.semantics.Relation(ctx, field.URI)
	if errors.Is(err, semantic.ErrPropertyNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if rel.Range == "" {
		return true, nil
	}

	ok, err := a.hierarchy.IsCompatible(ctx, newType, rel.Range)
	if errors.Is(err, semantic.ErrClassNotFound) {
		return true, nil
	}
	return ok, err
}

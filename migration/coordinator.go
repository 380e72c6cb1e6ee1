// Package migration changes the definition and semantic type of existing
// instances. It validates the requested change, builds a migrated copy
// carrying every property value the new definition still accepts and
// reports which referring instances stay valid afterwards.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semtype/codelist"
	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/search"
	"github.com/c360studio/semtype/semantic"
)

// Dependencies are the services a Coordinator works with. Decorator may be
// nil.
type Dependencies struct {
	Instances   instance.Loader
	BulkLoader  instance.BulkLoader
	Definitions definition.Service
	Semantics   semantic.Service
	CodeLists   codelist.Service
	Search      search.Service
	Decorator   instance.Decorator
}

// Coordinator answers type change requests. It never persists anything:
// callers decide what to do with the migrated copy.
type Coordinator struct {
	deps         Dependencies
	hierarchy    *semantic.Hierarchy
	properties   *PropertyResolver
	states       *StateResolver
	impact       *ImpactAnalyzer
	skipped      func() []string
	initialState string
	operation    string
	onDrop       DropFunc
	metrics      *Metrics
	logger       *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics records request outcomes and impact statistics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSkippedClasses sets the source of skipped class IRIs. It is read once
// per request so the set may change between requests.
func WithSkippedClasses(source func() []string) Option {
	return func(c *Coordinator) { c.skipped = source }
}

// WithInitialState sets the state instances fall back to.
func WithInitialState(state string) Option {
	return func(c *Coordinator) { c.initialState = state }
}

// WithChangeTypeOperation sets the transition operation of a type change.
func WithChangeTypeOperation(op string) Option {
	return func(c *Coordinator) { c.operation = op }
}

// WithDropFunc is notified about every target field left empty.
func WithDropFunc(fn DropFunc) Option {
	return func(c *Coordinator) { c.onDrop = fn }
}

// NewCoordinator creates a coordinator over the given services.
func NewCoordinator(deps Dependencies, opts ...Option) (*Coordinator, error) {
	var missing []string
	if deps.Instances == nil {
		missing = append(missing, "instances")
	}
	if deps.BulkLoader == nil {
		missing = append(missing, "bulk loader")
	}
	if deps.Definitions == nil {
		missing = append(missing, "definitions")
	}
	if deps.Semantics == nil {
		missing = append(missing, "semantics")
	}
	if deps.CodeLists == nil {
		missing = append(missing, "code lists")
	}
	if deps.Search == nil {
		missing = append(missing, "search")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("migration coordinator: missing %s", strings.Join(missing, ", "))
	}

	c := &Coordinator{
		deps:    deps,
		skipped: func() []string { return nil },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.hierarchy = semantic.NewHierarchy(deps.Semantics)
	c.properties = NewPropertyResolver(deps.Semantics, c.logger, c.recordDrop)
	c.states = NewStateResolver(deps.CodeLists, c.initialState, c.operation)
	c.impact = NewImpactAnalyzer(deps.Search, deps.BulkLoader, deps.Definitions, deps.Semantics, c.metrics, c.logger)
	return c, nil
}

func (c *Coordinator) recordDrop(target *definition.Definition, field definition.PropertyDeclaration, reason DropReason) {
	c.metrics.dropped(reason)
	if c.onDrop != nil {
		c.onDrop(target, field, reason)
	}
}

// GetInstanceAs returns a copy of the instance converted to the target
// definition. When the instance already uses that definition it is returned
// as loaded. The stored instance is never modified.
func (c *Coordinator) GetInstanceAs(ctx context.Context, instanceID, definitionID string) (*instance.Instance, error) {
	result, err := c.getInstanceAs(ctx, instanceID, definitionID)
	switch {
	case errors.Is(err, ErrInvalidArgument):
		c.metrics.request(OutcomeRejected)
	case err != nil:
		c.metrics.request(OutcomeFailed)
	}
	return result, err
}

func (c *Coordinator) getInstanceAs(ctx context.Context, instanceID, definitionID string) (*instance.Instance, error) {
	if strings.TrimSpace(instanceID) == "" || strings.TrimSpace(definitionID) == "" {
		return nil, fmt.Errorf("%w: instance id and definition id are required", ErrInvalidArgument)
	}

	current, err := c.deps.Instances.Load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	currentDef, err := c.deps.Definitions.InstanceDefinition(ctx, current)
	if err != nil {
		return nil, err
	}
	if current.Identifier == definitionID {
		c.metrics.request(OutcomeUnchanged)
		return current, nil
	}

	target, err := c.deps.Definitions.Find(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	newType, err := c.validate(ctx, current, currentDef, target)
	if err != nil {
		return nil, err
	}
	state, err := c.states.Resolve(ctx, current.GetString(instance.PropertyStatus), target)
	if err != nil {
		return nil, err
	}

	migrated, err := c.build(ctx, current, currentDef, target, newType, state)
	if err != nil {
		return nil, err
	}

	c.metrics.request(OutcomeMigrated)
	c.logger.Info("Prepared type change",
		"instance", instanceID,
		"from_definition", currentDef.ID,
		"to_definition", target.ID,
		"from_type", current.Type.ID(),
		"to_type", newType,
		"state", state)
	return migrated, nil
}

// validate checks that the target definition may replace the current one
// and returns the new semantic type.
func (c *Coordinator) validate(ctx context.Context, current *instance.Instance, currentDef, target *definition.Definition) (string, error) {
	if target.Abstract {
		return "", fmt.Errorf("%w: definition %s is abstract", ErrInvalidArgument, target.ID)
	}
	newType, ok := target.SemanticType()
	if !ok {
		return "", fmt.Errorf("%w: definition %s declares no semantic type", ErrInvalidArgument, target.ID)
	}
	newClass, err := c.hierarchy.Class(ctx, newType)
	if errors.Is(err, semantic.ErrClassNotFound) {
		return "", fmt.Errorf("%w: definition %s: %v", ErrInvalidArgument, target.ID, err)
	}
	if err != nil {
		return "", err
	}

	currentType := current.Type.ID()
	if currentType == "" {
		if currentType, ok = currentDef.SemanticType(); !ok {
			return "", fmt.Errorf("%w: instance %s has no semantic type", ErrInvalidArgument, current.ID)
		}
	}

	if current.IsUploaded() {
		if !newClass.Uploadable {
			return "", fmt.Errorf("%w: %s does not accept uploaded content", ErrInvalidArgument, newType)
		}
	} else if !newClass.Creatable {
		return "", fmt.Errorf("%w: %s instances cannot be created", ErrInvalidArgument, newType)
	}

	// Types change within the tree of the nearest allowed super type only.
	supers, err := AllowedSuperTypes(ctx, c.hierarchy, currentType, NewSkipSet(c.skipped()...))
	if err != nil {
		return "", err
	}
	if len(supers) > 0 {
		ok, err := c.hierarchy.IsSubClassOf(ctx, newType, supers[0].ID())
		if err != nil {
			return "", err
		}
		if ok {
			return newType, nil
		}
	}
	return "", fmt.Errorf("%w: %s cannot change its type to %s", ErrInvalidArgument, currentType, newType)
}

func (c *Coordinator) build(ctx context.Context, current *instance.Instance, currentDef, target *definition.Definition, newType, state string) (*instance.Instance, error) {
	props, err := c.properties.Resolve(ctx, current.Properties, currentDef, target)
	if err != nil {
		return nil, err
	}

	migrated := &instance.Instance{
		ID:         current.ID,
		Identifier: target.ID,
		Revision:   current.Revision,
		Type:       instance.InstanceType(newType),
		Properties: props,
	}
	if v, ok := current.Get(instance.PropertyContentID); ok {
		migrated.Add(instance.PropertyContentID, instance.CopyValue(v))
	}

	if err := filterCodeLists(ctx, c.deps.CodeLists, migrated, target); err != nil {
		return nil, err
	}

	migrated.Add(instance.PropertySemanticType, newType)
	migrated.Add(instance.PropertyType, target.ID)
	migrated.Remove(instance.PropertyHasTemplate)
	migrated.Add(instance.PropertyStatus, state)

	if c.deps.Decorator != nil {
		if clearer, ok := c.deps.Decorator.(instance.Clearer); ok {
			clearer.ClearDecorated(migrated)
		}
		if err := c.deps.Decorator.Decorate(ctx, migrated); err != nil {
			return nil, fmt.Errorf("decorate %s: %w", migrated.ID, err)
		}
	}
	return migrated, nil
}

// AllowedSuperTypes returns the allowed super types of a class using the
// currently configured skipped classes.
func (c *Coordinator) AllowedSuperTypes(ctx context.Context, classID string) ([]instance.InstanceType, error) {
	return AllowedSuperTypes(ctx, c.hierarchy, classID, NewSkipSet(c.skipped()...))
}

// AffectedInstances returns copies of the instances whose relations to
// instanceID remain valid when it changes its type to newType.
func (c *Coordinator) AffectedInstances(ctx context.Context, instanceID string, newType instance.InstanceType) ([]*instance.Instance, error) {
	return c.impact.Affected(ctx, instanceID, newType.ID())
}

// CountAffectedInstances returns the number of instances AffectedInstances
// would return.
func (c *Coordinator) CountAffectedInstances(ctx context.Context, instanceID string, newType instance.InstanceType) (int, error) {
	return c.impact.CountAffected(ctx, instanceID, newType.ID())
}

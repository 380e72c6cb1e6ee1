package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/semantic"
)

// DropReason explains why a target field received no value.
type DropReason string

const (
	DropNotUsed          DropReason = "not_used"
	DropUnknownProperty  DropReason = "unknown_semantic_property"
	DropDomainMismatch   DropReason = "domain_mismatch"
	DropNoSourceProperty DropReason = "no_source_property"
	DropNoSourceValue    DropReason = "no_source_value"
)

// DropFunc is notified about every target field left empty.
type DropFunc func(target *definition.Definition, field definition.PropertyDeclaration, reason DropReason)

type dropFuncKey struct{}

// ContextWithDropFunc returns a context whose property resolutions also
// report the target fields left empty to fn. It scopes drop reporting to a
// single request.
func ContextWithDropFunc(ctx context.Context, fn DropFunc) context.Context {
	return context.WithValue(ctx, dropFuncKey{}, fn)
}

func dropFuncFromContext(ctx context.Context) DropFunc {
	fn, _ := ctx.Value(dropFuncKey{}).(DropFunc)
	return fn
}

// PropertyResolver decides which property values survive a type change and
// under which names they are stored in the target definition.
type PropertyResolver struct {
	semantics semantic.Service
	hierarchy *semantic.Hierarchy
	logger    *slog.Logger
	onDrop    DropFunc
}

// NewPropertyResolver creates a resolver. onDrop may be nil.
func NewPropertyResolver(semantics semantic.Service, logger *slog.Logger, onDrop DropFunc) *PropertyResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyResolver{
		semantics: semantics,
		hierarchy: semantic.NewHierarchy(semantics),
		logger:    logger,
		onDrop:    onDrop,
	}
}

// Resolve returns the values of source, declared by from, that the target
// definition accepts, keyed by the target field names. A value is carried
// over when both definitions map a field to the same semantic property and
// the property's domain admits the target semantic type. Values are copied.
func (r *PropertyResolver) Resolve(ctx context.Context, source map[string]any, from, to *definition.Definition) (map[string]any, error) {
	newType, ok := to.SemanticType()
	if !ok {
		return nil, fmt.Errorf("%w: definition %s declares no semantic type", ErrInvalidArgument, to.ID)
	}
	if _, err := r.hierarchy.Class(ctx, newType); err != nil {
		return nil, err
	}

	result := make(map[string]any)
	for _, field := range to.Fields {
		if !field.HasURI() {
			r.drop(ctx, to, field, DropNotUsed)
			continue
		}

		prop, err := r.lookup(ctx, field)
		if errors.Is(err, semantic.ErrPropertyNotFound) {
			r.drop(ctx, to, field, DropUnknownProperty)
			continue
		}
		if err != nil {
			return nil, err
		}

		allowed, err := r.domainAllows(ctx, prop.Domain, newType)
		if err != nil {
			return nil, err
		}
		if !allowed {
			r.drop(ctx, to, field, DropDomainMismatch)
			continue
		}

		sourceField, ok := from.FieldByURI(field.URI)
		if !ok {
			r.drop(ctx, to, field, DropNoSourceProperty)
			continue
		}
		value, ok := source[sourceField.Name]
		if !ok || value == nil {
			r.drop(ctx, to, field, DropNoSourceValue)
			continue
		}
		result[field.Name] = instance.CopyValue(value)
	}
	return result, nil
}

func (r *PropertyResolver) lookup(ctx context.Context, field definition.PropertyDeclaration) (*semantic.Property, error) {
	if field.IsObject() {
		return r.semantics.Relation(ctx, field.URI)
	}
	return r.semantics.Property(ctx, field.URI)
}

// domainAllows treats a missing or unresolvable domain as unrestricted.
func (r *PropertyResolver) domainAllows(ctx context.Context, domain, newType string) (bool, error) {
	if domain == "" {
		return true, nil
	}
	if _, err := r.hierarchy.Class(ctx, domain); errors.Is(err, semantic.ErrClassNotFound) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return r.hierarchy.IsCompatible(ctx, newType, domain)
}

func (r *PropertyResolver) drop(ctx context.Context, to *definition.Definition, field definition.PropertyDeclaration, reason DropReason) {
	r.logger.Debug("Dropped property",
		"definition", to.ID,
		"field", field.Name,
		"uri", field.URI,
		"reason", reason)
	if r.onDrop != nil {
		r.onDrop(to, field, reason)
	}
	if fn := dropFuncFromContext(ctx); fn != nil {
		fn(to, field, reason)
	}
}

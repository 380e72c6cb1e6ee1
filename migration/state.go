package migration

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/c360studio/semtype/codelist"
	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
)

// StateResolver computes the lifecycle state an instance gets after a type
// change.
type StateResolver struct {
	codelists    codelist.Service
	initialState string
	operation    string
}

// NewStateResolver creates a resolver resetting to initialState and
// looking for transitions triggered by operation.
func NewStateResolver(codelists codelist.Service, initialState, operation string) *StateResolver {
	if initialState == "" {
		initialState = instance.StateInitial
	}
	if operation == "" {
		operation = instance.OperationChangeType
	}
	return &StateResolver{
		codelists:    codelists,
		initialState: initialState,
		operation:    operation,
	}
}

// Resolve keeps current when the target definition allows the type change
// operation from it and its status code list still admits it. Otherwise the
// initial state is returned.
func (r *StateResolver) Resolve(ctx context.Context, current string, target *definition.Definition) (string, error) {
	if len(target.TransitionsFor(r.operation)) == 0 {
		return "", fmt.Errorf("%w: definition %s has no %s transitions", ErrInvalidArgument, target.ID, r.operation)
	}
	status, ok := target.Field(instance.PropertyStatus)
	if !ok {
		return "", fmt.Errorf("%w: definition %s has no %s field", ErrInvalidArgument, target.ID, instance.PropertyStatus)
	}

	if current == "" || !target.HasTransition(current, r.operation) {
		return r.initialState, nil
	}
	if status.CodeList == 0 {
		return current, nil
	}

	allowed, err := r.allowedByCodeList(ctx, status, current)
	if err != nil {
		return "", err
	}
	if !allowed {
		return r.initialState, nil
	}
	return current, nil
}

func (r *StateResolver) allowedByCodeList(ctx context.Context, status definition.PropertyDeclaration, state string) (bool, error) {
	if _, err := r.codelists.CodeValue(ctx, status.CodeList, state); err != nil {
		if errors.Is(err, codelist.ErrValueNotFound) {
			return false, nil
		}
		return false, err
	}
	values, err := r.codelists.FilteredCodeValues(ctx, status.CodeList, status.Filters...)
	if err != nil {
		return false, err
	}
	_, ok := values[state]
	return ok, nil
}

// filterCodeLists removes the values of code list fields the target
// definition does not admit. Non string values are left untouched.
func filterCodeLists(ctx context.Context, codelists codelist.Service, inst *instance.Instance, target *definition.Definition) error {
	for _, field := range target.Fields {
		if field.CodeList == 0 || !inst.IsValueNotNil(field.Name) {
			continue
		}
		allowed, err := codelists.FilteredCodeValues(ctx, field.CodeList, field.Filters...)
		if err != nil {
			return fmt.Errorf("filter code list %d: %w", field.CodeList, err)
		}

		values := slices.Clone(inst.Values(field.Name))
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if _, ok := allowed[s]; !ok {
				inst.RemoveValue(field.Name, s)
			}
		}
	}
	return nil
}

package instance

import (
	"context"
	"fmt"

	"github.com/c360studio/semtype/semantic"
)

// HeaderDecorator computes the header shown for an instance from its
// semantic type label and title.
type HeaderDecorator struct {
	classes semantic.ClassResolver
}

// NewHeaderDecorator creates a header decorator.
func NewHeaderDecorator(classes semantic.ClassResolver) *HeaderDecorator {
	return &HeaderDecorator{classes: classes}
}

// Decorate implements Decorator.
func (d *HeaderDecorator) Decorate(ctx context.Context, inst *Instance) error {
	if inst.IsValueNotNil(PropertyHeader) {
		return nil
	}

	label := inst.Type.ID()
	if !inst.Type.IsZero() {
		class, err := d.classes.Class(ctx, inst.Type.ID())
		if err != nil {
			return fmt.Errorf("decorate %s: %w", inst.ID, err)
		}
		label = class.Label()
	}

	title := inst.GetString(PropertyTitle)
	if title == "" {
		title = inst.ID
	}
	inst.Add(PropertyHeader, fmt.Sprintf("(%s) %s", label, title))
	return nil
}

// ClearDecorated implements Clearer.
func (d *HeaderDecorator) ClearDecorated(inst *Instance) {
	inst.Remove(PropertyHeader)
}

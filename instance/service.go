package instance

import "context"

// Loader loads a single instance. Implementations return ErrNotFound when
// the id does not resolve.
type Loader interface {
	Load(ctx context.Context, id string) (*Instance, error)
}

// BulkLoader loads many instances at once. Ids that do not resolve are
// skipped.
type BulkLoader interface {
	LoadAll(ctx context.Context, ids []string) ([]*Instance, error)
}

// Decorator enriches an instance with computed, display only fields.
type Decorator interface {
	Decorate(ctx context.Context, inst *Instance) error
}

// Clearer is implemented by decorators that keep track of what they already
// decorated.
type Clearer interface {
	ClearDecorated(inst *Instance)
}

// DecoratorFunc adapts a function to Decorator.
type DecoratorFunc func(ctx context.Context, inst *Instance) error

// Decorate implements Decorator.
func (f DecoratorFunc) Decorate(ctx context.Context, inst *Instance) error {
	return f(ctx, inst)
}

// Decorators runs decorators in order, stopping at the first error.
type Decorators []Decorator

// Decorate implements Decorator.
func (d Decorators) Decorate(ctx context.Context, inst *Instance) error {
	for _, dec := range d {
		if err := dec.Decorate(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

// ClearDecorated implements Clearer.
func (d Decorators) ClearDecorated(inst *Instance) {
	for _, dec := range d {
		if c, ok := dec.(Clearer); ok {
			c.ClearDecorated(inst)
		}
	}
}

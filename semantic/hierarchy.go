package semantic

import (
	"context"
	"fmt"
)

// ClassResolver is the part of Service the hierarchy view needs.
type ClassResolver interface {
	Class(ctx context.Context, id string) (*Class, error)
}

// Hierarchy is a read-only view over the class taxonomy.
//
// Parent links come from external data, so every upward walk keeps a visited
// set and stops at the first repeated class instead of looping.
type Hierarchy struct {
	classes ClassResolver
}

// NewHierarchy creates a hierarchy view backed by the given resolver.
func NewHierarchy(classes ClassResolver) *Hierarchy {
	return &Hierarchy{classes: classes}
}

// Class resolves a single class.
func (h *Hierarchy) Class(ctx context.Context, id string) (*Class, error) {
	return h.classes.Class(ctx, id)
}

// Parent returns the direct parent of a class, or nil for a root class.
func (h *Hierarchy) Parent(ctx context.Context, id string) (*Class, error) {
	c, err := h.classes.Class(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Parent == "" {
		return nil, nil
	}
	parent, err := h.classes.Class(ctx, c.Parent)
	if err != nil {
		return nil, fmt.Errorf("parent of %s: %w", id, err)
	}
	return parent, nil
}

// Ancestors returns the ancestors of a class ordered from the direct parent
// up to the root. The class itself is not included.
func (h *Hierarchy) Ancestors(ctx context.Context, id string) ([]*Class, error) {
	start, err := h.classes.Class(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{start.ID: true}
	var ancestors []*Class
	for current := start; current.Parent != ""; {
		if visited[current.Parent] {
			break
		}
		parent, err := h.classes.Class(ctx, current.Parent)
		if err != nil {
			return nil, fmt.Errorf("ancestors of %s: %w", id, err)
		}
		visited[parent.ID] = true
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

// IsCreatable reports whether instances of the class can be created.
func (h *Hierarchy) IsCreatable(ctx context.Context, id string) (bool, error) {
	c, err := h.classes.Class(ctx, id)
	if err != nil {
		return false, err
	}
	return c.Creatable, nil
}

// IsUploadable reports whether instances of the class can be uploaded.
func (h *Hierarchy) IsUploadable(ctx context.Context, id string) (bool, error) {
	c, err := h.classes.Class(ctx, id)
	if err != nil {
		return false, err
	}
	return c.Uploadable, nil
}

// IsSubClassOf reports whether id is a strict, transitive subclass of ancestor.
func (h *Hierarchy) IsSubClassOf(ctx context.Context, id, ancestor string) (bool, error) {
	ancestors, err := h.Ancestors(ctx, id)
	if err != nil {
		return false, err
	}
	target, err := h.classes.Class(ctx, ancestor)
	if err != nil {
		return false, err
	}
	for _, a := range ancestors {
		if a.ID == target.ID {
			return true, nil
		}
	}
	return false, nil
}

// IsCompatible reports whether an instance of class id satisfies a domain or
// range constraint: the class is the constraint itself or one of its
// subclasses.
func (h *Hierarchy) IsCompatible(ctx context.Context, id, constraint string) (bool, error) {
	c, err := h.classes.Class(ctx, id)
	if err != nil {
		return false, err
	}
	target, err := h.classes.Class(ctx, constraint)
	if err != nil {
		return false, err
	}
	if c.ID == target.ID {
		return true, nil
	}
	return h.IsSubClassOf(ctx, c.ID, target.ID)
}

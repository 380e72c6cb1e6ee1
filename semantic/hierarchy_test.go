package semantic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/semtype/vocabulary/emf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.AddClass(Class{ID: "ptop:Entity"})
	r.AddClass(Class{ID: "ptop:Happening", Parent: "ptop:Entity"})
	r.AddClass(Class{ID: "ptop:Event", Parent: "ptop:Happening"})
	r.AddClass(Class{ID: "emf:Activity", Parent: "ptop:Event"})
	r.AddClass(Class{ID: "emf:Case", Parent: "emf:Activity", Creatable: true})
	r.AddClass(Class{ID: "emf:Project", Parent: "emf:Activity", Creatable: true})
	r.AddClass(Class{ID: "ptop:Object", Parent: "ptop:Entity"})
	r.AddClass(Class{ID: "ptop:InformationResource", Parent: "ptop:Object"})
	r.AddClass(Class{ID: "emf:Document", Parent: "ptop:InformationResource", Creatable: true, Uploadable: true})
	r.AddClass(Class{ID: "emf:Media", Parent: "ptop:InformationResource", Uploadable: true})
	r.AddClass(Class{ID: "emf:Image", Parent: "emf:Media", Uploadable: true})
	return r
}

func ids(classes []*Class) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, c.ID)
	}
	return out
}

func TestHierarchy_Ancestors(t *testing.T) {
	h := NewHierarchy(testRegistry())
	ctx := context.Background()

	t.Run("ordered from parent to root", func(t *testing.T) {
		got, err := h.Ancestors(ctx, emf.ClassCase)
		require.NoError(t, err)
		assert.Equal(t, []string{emf.ClassActivity, emf.ClassEvent, emf.ClassHappening, emf.ClassEntity}, ids(got))
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		got, err := h.Ancestors(ctx, emf.ClassEntity)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("restartable", func(t *testing.T) {
		first, err := h.Ancestors(ctx, emf.ClassImage)
		require.NoError(t, err)
		second, err := h.Ancestors(ctx, emf.ClassImage)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(second))
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := h.Ancestors(ctx, "emf:Unknown")
		assert.ErrorIs(t, err, ErrClassNotFound)
	})

	t.Run("dangling parent", func(t *testing.T) {
		r := NewRegistry()
		r.AddClass(Class{ID: "emf:Orphan", Parent: "emf:Missing"})
		_, err := NewHierarchy(r).Ancestors(ctx, "emf:Orphan")
		assert.ErrorIs(t, err, ErrClassNotFound)
	})
}

func TestHierarchy_AncestorsStopsOnCycle(t *testing.T) {
	r := NewRegistry()
	r.AddClass(Class{ID: "emf:A", Parent: "emf:B"})
	r.AddClass(Class{ID: "emf:B", Parent: "emf:C"})
	r.AddClass(Class{ID: "emf:C", Parent: "emf:A"})

	got, err := NewHierarchy(r).Ancestors(context.Background(), "emf:A")
	require.NoError(t, err)
	assert.Equal(t, []string{emf.Namespace + "B", emf.Namespace + "C"}, ids(got))
}

func TestHierarchy_Flags(t *testing.T) {
	h := NewHierarchy(testRegistry())
	ctx := context.Background()

	creatable, err := h.IsCreatable(ctx, emf.ClassCase)
	require.NoError(t, err)
	assert.True(t, creatable)

	creatable, err = h.IsCreatable(ctx, emf.ClassActivity)
	require.NoError(t, err)
	assert.False(t, creatable)

	uploadable, err := h.IsUploadable(ctx, emf.ClassImage)
	require.NoError(t, err)
	assert.True(t, uploadable)

	_, err = h.IsUploadable(ctx, "emf:Nope")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestHierarchy_Compatibility(t *testing.T) {
	h := NewHierarchy(testRegistry())
	ctx := context.Background()

	tests := []struct {
		name       string
		class      string
		constraint string
		sub        bool
		compatible bool
	}{
		{"same class", emf.ClassProject, emf.ClassProject, false, true},
		{"direct parent", emf.ClassProject, emf.ClassActivity, true, true},
		{"root", emf.ClassProject, emf.ClassEntity, true, true},
		{"sibling", emf.ClassProject, emf.ClassCase, false, false},
		{"descendant", emf.ClassActivity, emf.ClassProject, false, false},
		{"other branch", emf.ClassProject, emf.ClassObject, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := h.IsSubClassOf(ctx, tt.class, tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.sub, sub)

			compatible, err := h.IsCompatible(ctx, tt.class, tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.compatible, compatible)
		})
	}
}

func TestRegistry_SubClasses(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []string{emf.ClassCase, emf.ClassProject}, ids(r.SubClasses("emf:Activity")))

	// re-parenting moves the class between subclass lists
	r.AddClass(Class{ID: "emf:Project", Parent: "ptop:Event"})
	assert.Equal(t, []string{emf.ClassCase}, ids(r.SubClasses("emf:Activity")))
	assert.Contains(t, ids(r.SubClasses("ptop:Event")), emf.ClassProject)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.yaml")
	content := `
classes:
  - id: ptop:Entity
  - id: emf:Case
    title: Case
    parent: ptop:Entity
    creatable: true
properties:
  - id: emf:title
    domain: ptop:Entity
relations:
  - id: emf:hasChild
    domain: emf:Case
    range: ptop:Entity
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := LoadFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	c, err := r.Class(ctx, emf.ClassCase)
	require.NoError(t, err)
	assert.Equal(t, "Case", c.Label())
	assert.Equal(t, emf.ClassEntity, c.Parent)
	assert.True(t, c.Creatable)

	p, err := r.Property(ctx, "emf:title")
	require.NoError(t, err)
	assert.Equal(t, emf.ClassEntity, p.Domain)

	rel, err := r.Relation(ctx, emf.Namespace+"hasChild")
	require.NoError(t, err)
	assert.Equal(t, emf.ClassCase, rel.Domain)

	_, err = r.Relation(ctx, "emf:title")
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestLoadFile_RejectsClassWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes:\n  - title: nameless\n"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

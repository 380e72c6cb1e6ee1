package migration

import (
	"context"
	"testing"

	"github.com/c360studio/semtype/codelist"
	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/search"
	"github.com/c360studio/semtype/semantic"
	"github.com/c360studio/semtype/vocabulary/emf"
	"github.com/stretchr/testify/require"
)

const (
	currentDef           = "currentDef"
	siblingDef           = "siblingDef"
	someOtherDef         = "someOtherDef"
	someNotCreatableDef  = "someNotCreateableDef"
	someAbstractDef      = "someAbstractDef"
	inverseDef           = "inverseDef"
	imageDef             = "imageDef"
	documentDef          = "documentDef"
	mediaDef             = "mediaDef"
	noStatusDef          = "noStatusDef"
	targetInstanceID     = "emf:instanceId"
	statusCodeList       = 10
	definitionsCodeList  = 15
	filterActive         = "active"
	filterInitial        = "initial"
	filterDraft          = "draft"
	stateDraft           = "DRAFT"
	stateUnknownInTarget = "SOME_NOT_DEFINED_IN_TARGET_MODEL_STATUS"
)

type world struct {
	classes     *semantic.Registry
	definitions *definition.Registry
	codelists   *codelist.Registry
	store       *instance.MemoryStore
	decorator   *recordingDecorator
}

// recordingDecorator remembers which instances it decorated and whether
// they were cleared first.
type recordingDecorator struct {
	decorated []*instance.Instance
	cleared   []*instance.Instance
}

func (d *recordingDecorator) Decorate(_ context.Context, inst *instance.Instance) error {
	d.decorated = append(d.decorated, inst)
	inst.Add(instance.PropertyHeader, "decorated")
	return nil
}

func (d *recordingDecorator) ClearDecorated(inst *instance.Instance) {
	d.cleared = append(d.cleared, inst)
	inst.Remove(instance.PropertyHeader)
}

func dataField(name, uri string) definition.PropertyDeclaration {
	return definition.PropertyDeclaration{Name: name, URI: uri, Kind: definition.KindData}
}

func objectField(name, uri string) definition.PropertyDeclaration {
	return definition.PropertyDeclaration{Name: name, URI: uri, Kind: definition.KindObject}
}

// baseFields are the status, type and semanticType fields every test
// definition declares.
func baseFields(defID, semanticType string) []definition.PropertyDeclaration {
	return []definition.PropertyDeclaration{
		{Name: instance.PropertyStatus, URI: "emf:status", Kind: definition.KindData, CodeList: statusCodeList, Filters: []string{filterActive, filterInitial}},
		{Name: instance.PropertyType, URI: "emf:type", Kind: definition.KindData, CodeList: definitionsCodeList, DefaultValue: defID},
		{Name: instance.PropertySemanticType, URI: instance.PropertySemanticType, Kind: definition.KindObject, DefaultValue: semanticType},
	}
}

func changeTypeFrom(states ...string) []definition.StateTransition {
	var result []definition.StateTransition
	for _, s := range states {
		result = append(result, definition.StateTransition{From: s, Operation: instance.OperationChangeType, To: instance.StateApproved})
	}
	return result
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		classes:     semantic.NewRegistry(),
		definitions: definition.NewRegistry(),
		codelists:   codelist.NewRegistry(),
		decorator:   &recordingDecorator{},
	}

	w.defineClasses()
	w.defineProperties()
	w.defineDefinitions()

	w.codelists.Add(statusCodeList,
		codelist.CodeValue{Value: instance.StateInitial, Tags: []string{filterInitial}},
		codelist.CodeValue{Value: instance.StateApproved, Tags: []string{filterActive}},
		codelist.CodeValue{Value: stateDraft, Tags: []string{filterDraft}},
	)
	var defs []codelist.CodeValue
	for _, id := range w.definitions.IDs() {
		defs = append(defs, codelist.CodeValue{Value: id})
	}
	w.codelists.Add(definitionsCodeList, defs...)

	w.store = instance.NewMemoryStore()
	return w
}

func (w *world) defineClasses() {
	add := func(id, parent string, creatable, uploadable bool) {
		w.classes.AddClass(semantic.Class{ID: id, Parent: parent, Creatable: creatable, Uploadable: uploadable})
	}
	add(emf.ClassEntity, "", false, false)
	add(emf.ClassHappening, emf.ClassEntity, false, false)
	add(emf.ClassEvent, emf.ClassHappening, false, false)
	add(emf.ClassActivity, emf.ClassEvent, false, false)
	add(emf.ClassCase, emf.ClassActivity, true, false)
	add(emf.ClassProject, emf.ClassActivity, true, false)
	add(emf.ClassObject, emf.ClassEntity, false, false)
	add(emf.ClassInformationResource, emf.ClassObject, false, false)
	add(emf.ClassDocument, emf.ClassInformationResource, true, true)
	add(emf.ClassMedia, emf.ClassInformationResource, false, true)
	add(emf.ClassImage, emf.ClassMedia, false, true)
}

func (w *world) defineProperties() {
	relation := func(uri, domain, rng string) {
		w.classes.AddRelation(semantic.Property{ID: uri, Domain: domain, Range: rng})
	}
	property := func(uri, domain string) {
		w.classes.AddProperty(semantic.Property{ID: uri, Domain: domain})
	}

	property("emf:status", "")
	property("emf:type", "")
	property("emf:contentId", "")
	relation(instance.PropertySemanticType, "", emf.OWLClass)
	relation(instance.PropertyHasTemplate, "", emf.ClassTemplate)

	relation("emf:relation1", emf.ClassCase, emf.ClassDocument)
	relation("emf:relation2", emf.ClassCase, emf.ClassTask)
	relation("emf:relation22", emf.ClassProject, emf.ClassTask)
	relation("emf:relation3", emf.ClassActivity, emf.ClassDocument)
	relation("emf:relation4", emf.ClassEntity, emf.ClassEntity)
	property("emf:property1", emf.ClassEntity)
	property("emf:property2", emf.ClassObject)
	property("emf:property3", emf.ClassCase)
	property("emf:property33", emf.ClassProject)
	property("emf:property4", emf.ClassActivity)
	property("emf:property5", emf.ClassActivity)
	property("emf:property6", emf.ClassActivity)

	relation("emf:relation100", emf.ClassTask, emf.ClassDocument)
	relation("emf:relation101", emf.ClassTask, emf.ClassCase)
	relation("emf:relation102", emf.ClassActivity, emf.ClassProject)
	relation("emf:relation103", emf.ClassEntity, emf.ClassEntity)
	relation("emf:relation104", emf.ClassEntity, "")
}

func (w *world) defineDefinitions() {
	current := &definition.Definition{ID: currentDef}
	current.Fields = append(baseFields(currentDef, emf.ClassCase),
		objectField(instance.PropertyHasTemplate, instance.PropertyHasTemplate),
		objectField("relation1", "emf:relation1"),
		objectField("relation2", "emf:relation2"),
		objectField("relation3", "emf:relation3"),
		objectField("relation4", "emf:relation4"),
		dataField("property1", "emf:property1"),
		dataField("property2", "emf:property2"),
		dataField("property3", "emf:property3"),
		dataField("property4", "emf:property4"),
		dataField("property6", "emf:property6"),
		dataField("internalNote", definition.NotUsedURI),
	)
	w.definitions.Add(current)

	sibling := &definition.Definition{ID: siblingDef, Transitions: changeTypeFrom(instance.StateInitial)}
	sibling.Fields = append(baseFields(siblingDef, emf.ClassProject),
		objectField(instance.PropertyHasTemplate, instance.PropertyHasTemplate),
		objectField("relation1", "emf:relation1"),
		objectField("otherRelation2", "emf:relation22"),
		objectField("relation3", "emf:relation3"),
		objectField("otherRelation4", "emf:relation4"),
		dataField("otherProperty1", "emf:property1"),
		dataField("property2", "emf:property2"),
		dataField("property3", "emf:property33"),
		dataField("otherProperty4", "emf:property4"),
		dataField("property5", "emf:property5"),
		dataField("internalNote", definition.NotUsedURI),
		dataField("unmapped", "emf:unmapped"),
	)
	w.definitions.Add(sibling)

	w.definitions.Add(&definition.Definition{ID: someOtherDef, Fields: baseFields(someOtherDef, emf.ClassDocument), Transitions: changeTypeFrom(instance.StateInitial)})
	w.definitions.Add(&definition.Definition{ID: someNotCreatableDef, Fields: baseFields(someNotCreatableDef, emf.ClassActivity), Transitions: changeTypeFrom(instance.StateInitial)})
	w.definitions.Add(&definition.Definition{ID: someAbstractDef, Abstract: true, Fields: baseFields(someAbstractDef, emf.ClassEntity), Transitions: changeTypeFrom(instance.StateInitial)})
	w.definitions.Add(&definition.Definition{ID: noStatusDef, Fields: baseFields(noStatusDef, emf.ClassProject)[1:], Transitions: changeTypeFrom(instance.StateInitial)})

	withContent := func(id, semanticType string) *definition.Definition {
		d := &definition.Definition{ID: id, Transitions: changeTypeFrom(instance.StateInitial, instance.StateApproved)}
		d.Fields = append(baseFields(id, semanticType), dataField(instance.PropertyContentID, "emf:contentId"))
		return d
	}
	w.definitions.Add(withContent(imageDef, emf.ClassImage))
	w.definitions.Add(withContent(documentDef, emf.ClassDocument))
	w.definitions.Add(withContent(mediaDef, emf.ClassMedia))

	inverse := &definition.Definition{ID: inverseDef}
	inverse.Fields = append(baseFields(inverseDef, emf.ClassTask),
		objectField(instance.PropertyHasTemplate, instance.PropertyHasTemplate),
		objectField("relation100", "emf:relation100"),
		objectField("relation101", "emf:relation101"),
		objectField("relation102", "emf:relation102"),
		objectField("relation103", "emf:relation103"),
		objectField("relation104", "emf:relation104"),
		objectField("relation105", "emf:relation105"),
		dataField("note", "emf:note"),
	)
	w.definitions.Add(inverse)
}

func (w *world) definition(t *testing.T, id string) *definition.Definition {
	t.Helper()
	d, err := w.definitions.Find(context.Background(), id)
	require.NoError(t, err)
	return d
}

func (w *world) put(t *testing.T, inst *instance.Instance) {
	t.Helper()
	require.NoError(t, w.store.Put(context.Background(), inst))
}

func (w *world) coordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithSkippedClasses(func() []string {
		return []string{emf.ClassProtonDocument, emf.ClassMedia}
	})}, opts...)
	c, err := NewCoordinator(Dependencies{
		Instances:   w.store,
		BulkLoader:  w.store,
		Definitions: w.definitions,
		Semantics:   w.classes,
		CodeLists:   w.codelists,
		Search:      search.NewReferrerSearch(w.store),
		Decorator:   w.decorator,
	}, opts...)
	require.NoError(t, err)
	return c
}

// caseInstance is an emf:Case instance bound to currentDef.
func caseInstance() *instance.Instance {
	inst := instance.New(targetInstanceID, currentDef)
	inst.Type = instance.InstanceType(emf.ClassCase)
	inst.Add(instance.PropertySemanticType, emf.ClassCase)
	inst.Add(instance.PropertyStatus, stateDraft)
	inst.Add(instance.PropertyType, currentDef)
	inst.Add(instance.PropertyHasTemplate, "emf:currentDefTemplateId")

	inst.Add("relation1", "emf:relation1-value")
	inst.Append("relation2", "emf:relation2-1-value")
	inst.Append("relation2", "emf:relation2-2-value")
	inst.Add("relation3", "emf:relation3-value")
	inst.Append("relation4", "emf:relation4-1-value")
	inst.Append("relation4", "emf:relation4-2-value")
	inst.Append("relation4", "emf:relation4-3-value")

	inst.Add("property1", "property 1 value")
	inst.Add("property2", "property 2 value")
	inst.Append("property3", "property 3.1 value")
	inst.Append("property3", "property 3.2 value")
	inst.Add("property4", "property 4 value")
	inst.Add("property6", "property 6 value")
	inst.Add("internalNote", "never copied")
	return inst
}

// referrer is an inverseDef instance pointing at the target through every
// relation of the definition.
func referrer(id string) *instance.Instance {
	inst := instance.New(id, inverseDef)
	inst.Type = instance.InstanceType(emf.ClassTask)
	inst.Add("relation100", targetInstanceID)
	inst.Append("relation101", targetInstanceID)
	inst.Append("relation101", targetInstanceID+"-1")
	inst.Add("relation102", targetInstanceID)
	inst.Add("relation103", targetInstanceID)
	inst.Add("relation104", targetInstanceID)
	return inst
}

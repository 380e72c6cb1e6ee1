package emf

import "github.com/c360studio/semstreams/vocabulary"

// Type change predicates describe the outcome of migrating an instance to a
// new definition.
const (
	// TypeChangeDefinition is the definition identifier the instance now uses.
	TypeChangeDefinition = "emf.typechange.definition"

	// TypeChangeSemanticType is the new semantic class IRI.
	TypeChangeSemanticType = "emf.typechange.semantic_type"

	// TypeChangePreviousDefinition is the definition identifier before the change.
	TypeChangePreviousDefinition = "emf.typechange.previous_definition"

	// TypeChangePreviousSemanticType is the semantic class IRI before the change.
	TypeChangePreviousSemanticType = "emf.typechange.previous_semantic_type"

	// TypeChangeStatus is the state after the change.
	TypeChangeStatus = "emf.typechange.status"

	// TypeChangeInstance links a type change event to the changed instance.
	TypeChangeInstance = "emf.typechange.instance"

	// TypeChangeDroppedProperty names a target field left empty by the change.
	TypeChangeDroppedProperty = "emf.typechange.dropped_property"

	// TypeChangeAffected links the changed instance to an instance whose
	// relations are affected by the change.
	TypeChangeAffected = "emf.typechange.affected"
)

func init() {
	vocabulary.Register(TypeChangeDefinition,
		vocabulary.WithDescription("Definition identifier after a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"definitionId"))

	vocabulary.Register(TypeChangeSemanticType,
		vocabulary.WithDescription("Semantic class after a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"))

	vocabulary.Register(TypeChangePreviousDefinition,
		vocabulary.WithDescription("Definition identifier before a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"previousDefinitionId"))

	vocabulary.Register(TypeChangePreviousSemanticType,
		vocabulary.WithDescription("Semantic class before a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"previousType"))

	vocabulary.Register(TypeChangeStatus,
		vocabulary.WithDescription("Instance state after a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"status"))

	vocabulary.Register(TypeChangeInstance,
		vocabulary.WithDescription("Instance changed by a type change event"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"changedInstance"))

	vocabulary.Register(TypeChangeDroppedProperty,
		vocabulary.WithDescription("Target field left empty by a type change"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"droppedProperty"))

	vocabulary.Register(TypeChangeAffected,
		vocabulary.WithDescription("Instance with relations affected by a type change"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"affectedInstance"))
}

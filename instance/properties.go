package instance

// Well known property names.
const (
	// PropertyStatus holds the lifecycle state.
	PropertyStatus = "status"

	// PropertyType holds the definition identifier as a codelist value.
	PropertyType = "type"

	// PropertySemanticType holds the semantic class IRI.
	PropertySemanticType = "semanticType"

	// PropertyTitle is the display title.
	PropertyTitle = "title"

	// PropertyHeader is computed by HeaderDecorator.
	PropertyHeader = "header"

	// PropertyHasTemplate is the relation to the assigned template.
	PropertyHasTemplate = "emf:hasTemplate"

	// PropertyContentID references the primary content of uploaded instances.
	PropertyContentID = "emf:contentId"
)

// Well known states.
const (
	StateInitial  = "INIT"
	StateApproved = "APPROVED"
)

// OperationChangeType is the state transition operation of a type change.
const OperationChangeType = "changeType"

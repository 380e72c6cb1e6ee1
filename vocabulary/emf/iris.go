package emf

// Namespace is the base IRI of the EMF domain ontology.
const Namespace = "http://ittruse.ittbg.com/ontology/enterpriseManagementFramework#"

// ProtonNamespace is the base IRI of the PROTON top ontology.
const ProtonNamespace = "http://www.ontotext.com/proton/protontop#"

// Prefixes used in compact IRIs.
const (
	Prefix       = "emf:"
	ProtonPrefix = "ptop:"
)

// PROTON classes.
const (
	// ClassEntity is the root of the class hierarchy.
	ClassEntity = ProtonNamespace + "Entity"

	ClassHappening           = ProtonNamespace + "Happening"
	ClassEvent               = ProtonNamespace + "Event"
	ClassObject              = ProtonNamespace + "Object"
	ClassInformationResource = ProtonNamespace + "InformationResource"

	// ClassProtonDocument is the PROTON document marker class. It is skipped
	// by default when computing allowed super types.
	ClassProtonDocument = ProtonNamespace + "Document"
)

// EMF classes.
const (
	ClassActivity = Namespace + "Activity"
	ClassCase     = Namespace + "Case"
	ClassProject  = Namespace + "Project"
	ClassTask     = Namespace + "Task"
	ClassDocument = Namespace + "Document"
	ClassTemplate = Namespace + "Template"

	// ClassMedia is the media marker class. It is skipped by default when
	// computing allowed super types.
	ClassMedia = Namespace + "Media"
	ClassImage = Namespace + "Image"
)

// OWLClass is the range of the semantic type property.
const OWLClass = "http://www.w3.org/2002/07/owl#Class"

// Expand turns a compact IRI (emf:Case, ptop:Entity) into its full form.
// Values without a known prefix are returned unchanged.
func Expand(iri string) string {
	switch {
	case len(iri) > len(Prefix) && iri[:len(Prefix)] == Prefix:
		return Namespace + iri[len(Prefix):]
	case len(iri) > len(ProtonPrefix) && iri[:len(ProtonPrefix)] == ProtonPrefix:
		return ProtonNamespace + iri[len(ProtonPrefix):]
	}
	return iri
}

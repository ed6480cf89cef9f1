// Package metadata abstracts the dynamic discovery of a user-declared
// entity's shape. The original system derived this by reflecting over
// runtime type attributes; per the design notes this is modeled instead as
// an explicit descriptor provider interface so the model builder never
// depends on reflection and can be driven in tests by hand-built
// descriptors.
package metadata

// MemberKind distinguishes a scalar column member from a navigation member
// (a reference or collection of another entity, excluded from DDL).
type MemberKind string

const (
	KindScalar     MemberKind = "scalar"
	KindReference  MemberKind = "reference" // single navigation, e.g. Order.Customer
	KindCollection MemberKind = "collection" // sequence navigation, e.g. Customer.Orders
)

// Annotation is a single declarative marker on a member: a primary key
// marker, an explicit foreign-key marker, a required/length/range
// constraint, or a regular-expression pattern. Kind is one of the
// AnnotationKind* constants; Args carries kind-specific parameters.
type Annotation struct {
	Kind AnnotationKind
	Args map[string]string
}

type AnnotationKind string

const (
	AnnotationKey         AnnotationKind = "Key"
	AnnotationForeignKey  AnnotationKind = "ForeignKey"  // Args["navigation"] names the target navigation member
	AnnotationRequired    AnnotationKind = "Required"
	AnnotationMaxLength   AnnotationKind = "MaxLength"   // Args["length"]
	AnnotationRange       AnnotationKind = "Range"       // Args["min"], Args["max"]
	AnnotationRegex       AnnotationKind = "RegularExpression" // Args["pattern"]
	AnnotationDescription AnnotationKind = "Description" // Args["text"]
)

// Member describes one declared member of an entity type.
type Member struct {
	Name         string
	Kind         MemberKind
	SQLTypeName  string // canonical SQL type, meaningful only for KindScalar
	IsNullable   bool
	DefaultValue *string
	Annotations  []Annotation

	// TargetEntity names the entity a reference/collection member points
	// at; empty for KindScalar.
	TargetEntity string
}

// Descriptor is the declarative shape of one entity type, as the model
// builder sees it. A Provider hands these out; nothing in builder ever
// reflects over a live Go value.
type Descriptor struct {
	EntityName string
	CLRType    string
	Members    []Member
}

// Provider supplies descriptors for every entity type registered with it.
// A real binding scans struct tags or attributes once at startup and
// caches the result; tests construct a StaticProvider directly.
type Provider interface {
	Descriptors() []Descriptor
}

// StaticProvider is a Provider backed by an in-memory literal slice. It is
// the provider every builder test uses, and is a reasonable default for
// callers who assemble descriptors themselves rather than generating them.
type StaticProvider struct {
	descriptors []Descriptor
}

// NewStaticProvider constructs a Provider from an explicit descriptor set.
func NewStaticProvider(descriptors ...Descriptor) *StaticProvider {
	return &StaticProvider{descriptors: descriptors}
}

func (p *StaticProvider) Descriptors() []Descriptor {
	return p.descriptors
}

// Find returns the annotation of the given kind on a member, if present.
func (m Member) Find(kind AnnotationKind) (Annotation, bool) {
	for _, a := range m.Annotations {
		if a.Kind == kind {
			return a, true
		}
	}
	return Annotation{}, false
}

// Has reports whether a member carries an annotation of the given kind.
func (m Member) Has(kind AnnotationKind) bool {
	_, ok := m.Find(kind)
	return ok
}

package schema

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// RootType returns the root type name for an operation kind ("query",
// "mutation" or "subscription"), or "" when the schema does not define one.
func (s *Schema) RootType(operation string) string {
	switch operation {
	case "", "query":
		return s.QueryType
	case "mutation":
		return s.MutationType
	case "subscription":
		return s.SubscriptionType
	}
	return ""
}

// FieldDefinition looks up the field fieldName on the named type. The
// __typename meta field resolves on every object, interface and union. It
// returns nil when the type or the field is unknown.
func (s *Schema) FieldDefinition(typeName, fieldName string) *Field {
	if s == nil {
		return nil
	}
	t := s.Types[typeName]
	if t == nil {
		return nil
	}
	if fieldName == typenameField.Name {
		switch t.Kind {
		case TypeKindObject, TypeKindInterface, TypeKindUnion:
			return typenameField
		}
		return nil
	}
	return t.Field(fieldName)
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool
}

// Field returns the field named name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Equal reports whether both references name the same type with the same
// List and Non-Null wrapping.
func (t *TypeRef) Equal(o *TypeRef) bool {
	for t != nil && o != nil {
		if t.Kind != o.Kind {
			return false
		}
		if t.Kind == TypeRefKindNamed {
			return t.Named == o.Named
		}
		t, o = t.OfType, o.OfType
	}
	return t == nil && o == nil
}

// String renders the reference in SDL notation, e.g. [String!]!.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return ""
}

// GetNamedType returns the name under every List and Non-Null wrapper.
func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

// Literal is a value kept in its GraphQL source form, such as an enum value
// or an input object default.
type Literal string

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any // nil, a Go scalar, or a Literal
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

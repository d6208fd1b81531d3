// Package introspection adds the GraphQL introspection meta types to a schema
// so that __schema and __type selections resolve like any other field.
package introspection

import (
	schema "github.com/hanpama/fieldmerge/internal/schema"
)

// Extend returns a copy of original with the introspection types registered
// and __schema/__type added to the query root. original is left untouched.
func Extend(original *schema.Schema) *schema.Schema {
	extended := schema.NewSchema(original.Description).
		SetQueryType(original.QueryType).
		SetMutationType(original.MutationType).
		SetSubscriptionType(original.SubscriptionType)
	for _, typ := range original.Types {
		extended.AddType(typ)
	}
	for _, dir := range original.Directives {
		extended.AddDirective(dir)
	}

	for _, typ := range metaTypes() {
		extended.AddType(typ)
	}

	if queryType := original.GetQueryType(); queryType != nil {
		// copy so the original root keeps its field list
		root := *queryType
		root.Fields = append(append([]*schema.Field(nil), queryType.Fields...),
			schema.NewField("__schema", "Access the current type schema of this server.", nonNull("__Schema")),
			schema.NewField("__type", "Request the type information of a single type.", named("__Type")).
				AddArgument(schema.NewInputValue("name", "The name of the type to look up.", nonNull("String"))),
		)
		extended.AddType(&root)
	}
	return extended
}

// IsMetaType reports whether name is one of the introspection types.
func IsMetaType(name string) bool {
	switch name {
	case "__Schema", "__Type", "__Field", "__InputValue", "__EnumValue",
		"__Directive", "__TypeKind", "__DirectiveLocation":
		return true
	}
	return false
}

func named(name string) *schema.TypeRef   { return schema.NamedType(name) }
func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

// nonNullList is [name!]!
func nonNullList(name string) *schema.TypeRef {
	return schema.NonNullType(schema.ListType(nonNull(name)))
}

// includeDeprecated is the optional filter argument shared by several meta fields.
func includeDeprecated() *schema.InputValue {
	return schema.NewInputValue("includeDeprecated", "", named("Boolean")).SetDefault(false)
}

func field(name string, typ *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", typ)
}

func metaTypes() []*schema.Type {
	return []*schema.Type{
		schemaType(),
		typeType(),
		fieldType(),
		inputValueType(),
		enumValueType(),
		directiveType(),
		enumOf("__TypeKind", "SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),
		enumOf("__DirectiveLocation",
			"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
			"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
			"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
			"INPUT_FIELD_DEFINITION"),
	}
}

func schemaType() *schema.Type {
	return schema.NewType("__Schema", schema.TypeKindObject, "A GraphQL Schema defines the capabilities of a GraphQL server.").
		AddField(schema.NewField("description", "A description of the schema.", named("String"))).
		AddField(schema.NewField("types", "A list of all types supported by this server.", nonNullList("__Type"))).
		AddField(schema.NewField("queryType", "The type that query operations will be rooted at.", nonNull("__Type"))).
		AddField(schema.NewField("mutationType", "If this server supports mutation, the type that mutation operations will be rooted at.", named("__Type"))).
		AddField(schema.NewField("subscriptionType", "If this server support subscription, the type that subscription operations will be rooted at.", named("__Type"))).
		AddField(schema.NewField("directives", "A list of all directives supported by this server.", nonNullList("__Directive")))
}

func typeType() *schema.Type {
	return schema.NewType("__Type", schema.TypeKindObject, "The fundamental unit of any GraphQL Schema is the type.").
		AddField(field("kind", nonNull("__TypeKind"))).
		AddField(field("name", named("String"))).
		AddField(field("description", named("String"))).
		AddField(field("specifiedByURL", named("String"))).
		AddField(field("fields", schema.ListType(nonNull("__Field"))).AddArgument(includeDeprecated())).
		AddField(field("interfaces", schema.ListType(nonNull("__Type")))).
		AddField(field("possibleTypes", schema.ListType(nonNull("__Type")))).
		AddField(field("enumValues", schema.ListType(nonNull("__EnumValue"))).AddArgument(includeDeprecated())).
		AddField(field("inputFields", schema.ListType(nonNull("__InputValue"))).AddArgument(includeDeprecated())).
		AddField(field("ofType", named("__Type"))).
		AddField(field("isOneOf", named("Boolean")))
}

func fieldType() *schema.Type {
	return schema.NewType("__Field", schema.TypeKindObject, "").
		AddField(field("name", nonNull("String"))).
		AddField(field("description", named("String"))).
		AddField(field("args", nonNullList("__InputValue")).AddArgument(includeDeprecated())).
		AddField(field("type", nonNull("__Type"))).
		AddField(field("isDeprecated", nonNull("Boolean"))).
		AddField(field("deprecationReason", named("String")))
}

func inputValueType() *schema.Type {
	return schema.NewType("__InputValue", schema.TypeKindObject, "").
		AddField(field("name", nonNull("String"))).
		AddField(field("description", named("String"))).
		AddField(field("type", nonNull("__Type"))).
		AddField(field("defaultValue", named("String"))).
		AddField(field("isDeprecated", nonNull("Boolean"))).
		AddField(field("deprecationReason", named("String")))
}

func enumValueType() *schema.Type {
	return schema.NewType("__EnumValue", schema.TypeKindObject, "").
		AddField(field("name", nonNull("String"))).
		AddField(field("description", named("String"))).
		AddField(field("isDeprecated", nonNull("Boolean"))).
		AddField(field("deprecationReason", named("String")))
}

func directiveType() *schema.Type {
	return schema.NewType("__Directive", schema.TypeKindObject, "").
		AddField(field("name", nonNull("String"))).
		AddField(field("description", named("String"))).
		AddField(field("isRepeatable", nonNull("Boolean"))).
		AddField(field("locations", nonNullList("__DirectiveLocation"))).
		AddField(field("args", nonNullList("__InputValue")).AddArgument(includeDeprecated()))
}

func enumOf(name string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}

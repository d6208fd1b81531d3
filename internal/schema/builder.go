package schema

import (
	"strconv"

	"github.com/vektah/gqlparser/v2/gqlerror"

	language "github.com/hanpama/fieldmerge/internal/language"
)

// BuildFromDocument builds a Schema from a parsed SDL document.
// Type extensions are merged into their base definitions. A document without a
// schema definition uses the conventional Query, Mutation and Subscription
// root type names when those types exist.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	b := &builder{
		defs:   make(map[string]*language.Definition),
		fields: make(map[string]language.FieldList),
	}
	b.collect(doc)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	s := NewSchema("")
	addBuiltins(s)
	b.setRootTypes(s, doc)

	for _, name := range b.order {
		def := b.defs[name]
		switch def.Kind {
		case language.Object:
			s.AddType(b.buildObject(def))
		case language.Interface:
			s.AddType(b.buildInterface(def))
		case language.Enum:
			s.AddType(buildEnum(def))
		case language.InputObject:
			s.AddType(b.buildInput(def))
		case language.Union:
			s.AddType(buildUnion(def))
		case language.Scalar:
			s.AddType(buildScalar(def))
		}
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirective(dir))
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return s, nil
}

// BuildFromSDL parses SDL string and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

type builder struct {
	order  []string
	defs   map[string]*language.Definition
	fields map[string]language.FieldList
	errs   language.ErrorList
}

// collect indexes definitions by name and folds extensions into copies of
// their base definitions, leaving the parsed document untouched.
func (b *builder) collect(doc *language.SchemaDocument) {
	for _, def := range doc.Definitions {
		if _, dup := b.defs[def.Name]; dup {
			b.errs = append(b.errs, gqlerror.ErrorPosf(def.Position, "Type %q is defined more than once", def.Name))
			continue
		}
		copied := *def
		copied.Interfaces = append([]string(nil), def.Interfaces...)
		copied.Types = append([]string(nil), def.Types...)
		copied.EnumValues = append(language.EnumValueList(nil), def.EnumValues...)
		copied.Directives = append(language.DirectiveList(nil), def.Directives...)
		b.defs[def.Name] = &copied
		b.fields[def.Name] = append(language.FieldList(nil), def.Fields...)
		b.order = append(b.order, def.Name)
	}
	for _, ext := range doc.Extensions {
		def, ok := b.defs[ext.Name]
		if !ok {
			b.errs = append(b.errs, gqlerror.ErrorPosf(ext.Position, "Cannot extend type %q because it is not defined", ext.Name))
			continue
		}
		if def.Kind != ext.Kind {
			b.errs = append(b.errs, gqlerror.ErrorPosf(ext.Position, "Cannot extend %s %q as %s", def.Kind, ext.Name, ext.Kind))
			continue
		}
		def.Interfaces = append(def.Interfaces, ext.Interfaces...)
		def.Types = append(def.Types, ext.Types...)
		def.EnumValues = append(def.EnumValues, ext.EnumValues...)
		def.Directives = append(def.Directives, ext.Directives...)
		b.fields[def.Name] = append(b.fields[def.Name], ext.Fields...)
	}
}

func (b *builder) setRootTypes(s *Schema, doc *language.SchemaDocument) {
	explicit := false
	for _, list := range [][]*language.SchemaDefinition{doc.Schema, doc.SchemaExtension} {
		for _, sd := range list {
			s.Description = sd.Description
			for _, op := range sd.OperationTypes {
				explicit = true
				switch op.Operation {
				case language.Query:
					s.SetQueryType(op.Type)
				case language.Mutation:
					s.SetMutationType(op.Type)
				case language.Subscription:
					s.SetSubscriptionType(op.Type)
				}
				if _, ok := b.defs[op.Type]; !ok {
					b.errs = append(b.errs, gqlerror.ErrorPosf(op.Position, "Root %s type %q is not defined", op.Operation, op.Type))
				}
			}
		}
	}
	if explicit {
		return
	}
	if _, ok := b.defs["Query"]; ok {
		s.SetQueryType("Query")
	}
	if _, ok := b.defs["Mutation"]; ok {
		s.SetMutationType("Mutation")
	}
	if _, ok := b.defs["Subscription"]; ok {
		s.SetSubscriptionType("Subscription")
	}
}

func (b *builder) buildObject(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindObject, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fieldDef := range b.fields[def.Name] {
		t.AddField(buildField(fieldDef))
	}
	return t
}

func (b *builder) buildInterface(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindInterface, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fieldDef := range b.fields[def.Name] {
		t.AddField(buildField(fieldDef))
	}
	return t
}

func buildField(def *language.FieldDefinition) *Field {
	f := NewField(def.Name, def.Description, buildTypeRef(def.Type))
	if reason, ok := deprecation(def.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		f.AddArgument(buildArgument(arg))
	}
	return f
}

func buildEnum(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindEnum, def.Description)
	for _, v := range def.EnumValues {
		e := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			e.Deprecate(reason)
		}
		t.AddEnumValue(e)
	}
	return t
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func buildArgument(a *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(a.Name, a.Description, buildTypeRef(a.Type)).SetDefault(defaultValue(a.DefaultValue))
	if reason, ok := deprecation(a.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func (b *builder) buildInput(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindInputObject, def.Description).
		SetOneOf(def.Directives.ForName("oneOf") != nil)
	for _, v := range b.fields[def.Name] {
		in := NewInputValue(v.Name, v.Description, buildTypeRef(v.Type)).SetDefault(defaultValue(v.DefaultValue))
		if reason, ok := deprecation(v.Directives); ok {
			in.Deprecate(reason)
		}
		t.AddInputField(in)
	}
	return t
}

func buildUnion(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindUnion, def.Description)
	for _, name := range def.Types {
		t.AddPossibleType(name)
	}
	return t
}

func buildScalar(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindScalar, def.Description)
	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if url := d.Arguments.ForName("url"); url != nil && url.Value != nil {
			t.SetSpecifiedByURL(url.Value.Raw)
		}
	}
	return t
}

func buildDirective(dir *language.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func deprecation(directives language.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if reason := d.Arguments.ForName("reason"); reason != nil && reason.Value != nil {
		return reason.Value.Raw, true
	}
	return "", true
}

// defaultValue converts an SDL constant into the Go form Render understands.
// Scalars become Go values; everything else keeps its source form.
func defaultValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n
		}
	case language.FloatValue:
		if f, err := strconv.ParseFloat(v.Raw, 64); err == nil {
			return f
		}
	case language.StringValue, language.BlockValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	}
	return Literal(v.String())
}

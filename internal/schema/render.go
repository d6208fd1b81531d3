package schema

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema. Types and directives are emitted in
// name order; builtin scalars and directives are left out.
func Render(s *Schema) string {
	var b strings.Builder
	_ = WriteSDL(&b, s)
	return b.String()
}

// WriteSDL writes the SDL of s to w.
func WriteSDL(w io.Writer, s *Schema) error {
	if s == nil {
		return nil
	}
	p := &sdlPrinter{}
	p.schemaBlock(s)
	for _, name := range sortedKeys(s.Types) {
		if t := s.Types[name]; !isBuiltinType(t) {
			p.typeDef(t)
		}
	}
	for _, name := range sortedKeys(s.Directives) {
		if d := s.Directives[name]; !isBuiltinDirective(d) {
			p.directiveDef(d)
		}
	}
	out := strings.TrimRight(p.String(), "\n") + "\n"
	_, err := io.WriteString(w, out)
	return err
}

func isBuiltinType(t *Type) bool {
	switch t {
	case stringType, intType, floatType, booleanType, idType:
		return true
	}
	return false
}

func isBuiltinDirective(d *Directive) bool {
	switch d {
	case includeDirective, skipDirective, deprecatedDirective, specifiedByDirective:
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type sdlPrinter struct {
	strings.Builder
}

func (p *sdlPrinter) description(desc, indent string) {
	if desc == "" {
		return
	}
	p.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		p.WriteString(indent + line + "\n")
	}
	p.WriteString(indent + `"""` + "\n")
}

// schemaBlock writes the schema definition only when it carries something
// the default root names would not.
func (p *sdlPrinter) schemaBlock(s *Schema) {
	roots := [][2]string{
		{"query", s.QueryType},
		{"mutation", s.MutationType},
		{"subscription", s.SubscriptionType},
	}
	defaults := map[string]string{"query": "Query", "mutation": "Mutation", "subscription": "Subscription"}
	custom := s.Description != ""
	for _, r := range roots {
		if r[1] != "" && r[1] != defaults[r[0]] {
			custom = true
		}
	}
	if !custom {
		return
	}
	p.description(s.Description, "")
	p.WriteString("schema {\n")
	for _, r := range roots {
		if r[1] != "" {
			fmt.Fprintf(p, "  %s: %s\n", r[0], r[1])
		}
	}
	p.WriteString("}\n\n")
}

func (p *sdlPrinter) typeDef(t *Type) {
	p.description(t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		p.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			fmt.Fprintf(p, " @specifiedBy(url: %s)", strconv.Quote(*t.SpecifiedByURL))
		}
		p.WriteString("\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		p.WriteString(keyword + " " + t.Name)
		if len(t.Interfaces) > 0 {
			p.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		p.WriteString(" {\n")
		for _, f := range t.Fields {
			p.description(f.Description, "  ")
			p.WriteString("  " + f.Name)
			p.arguments(f.Arguments)
			p.WriteString(": " + typeRefString(f.Type))
			p.deprecated(f.IsDeprecated, f.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n")
	case TypeKindUnion:
		p.WriteString("union " + t.Name + " = " + strings.Join(t.PossibleTypes, " | ") + "\n")
	case TypeKindEnum:
		p.WriteString("enum " + t.Name + " {\n")
		for _, v := range t.EnumValues {
			p.description(v.Description, "  ")
			p.WriteString("  " + v.Name)
			p.deprecated(v.IsDeprecated, v.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n")
	case TypeKindInputObject:
		p.WriteString("input " + t.Name)
		if t.OneOf {
			p.WriteString(" @oneOf")
		}
		p.WriteString(" {\n")
		for _, f := range t.InputFields {
			p.description(f.Description, "  ")
			p.WriteString("  ")
			p.inputValue(f)
			p.deprecated(f.IsDeprecated, f.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n")
	}
	p.WriteString("\n")
}

func (p *sdlPrinter) directiveDef(d *Directive) {
	p.description(d.Description, "")
	p.WriteString("directive @" + d.Name)
	p.arguments(d.Arguments)
	if d.IsRepeatable {
		p.WriteString(" repeatable")
	}
	p.WriteString(" on " + strings.Join(d.Locations, " | ") + "\n\n")
}

func (p *sdlPrinter) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	p.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			p.WriteString(", ")
		}
		p.inputValue(arg)
	}
	p.WriteString(")")
}

func (p *sdlPrinter) inputValue(v *InputValue) {
	p.WriteString(v.Name + ": " + typeRefString(v.Type))
	if v.DefaultValue != nil {
		p.WriteString(" = " + renderValue(v.DefaultValue))
	}
}

func (p *sdlPrinter) deprecated(isDeprecated bool, reason string) {
	if !isDeprecated {
		return
	}
	p.WriteString(" @deprecated")
	if reason != "" {
		fmt.Fprintf(p, "(reason: %s)", strconv.Quote(reason))
	}
}

func typeRefString(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	return ref.String()
}

// renderValue prints a default value as a GraphQL constant.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case Literal:
		return string(v)
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = renderValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(v)
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = k + ": " + renderValue(v[k])
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(value)
}

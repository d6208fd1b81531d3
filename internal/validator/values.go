package validator

import (
	"strconv"

	language "github.com/hanpama/fieldmerge/internal/language"
)

// argumentsEqual reports whether a and b carry the same argument names with
// structurally equal values. Argument order is irrelevant.
func argumentsEqual(a, b language.ArgumentList) bool {
	if len(a) != len(b) {
		return false
	}
	for _, arg := range a {
		other := b.ForName(arg.Name)
		if other == nil || !valuesEqual(arg.Value, other.Value) {
			return false
		}
	}
	return true
}

// directivesEqual reports whether a and b apply the same directives with equal
// arguments. Directives are matched by name; a repeatable directive used several
// times compares its uses in order.
func directivesEqual(a, b language.DirectiveList) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string][]*language.Directive, len(b))
	for _, d := range b {
		byName[d.Name] = append(byName[d.Name], d)
	}
	for _, d := range a {
		uses := byName[d.Name]
		if len(uses) == 0 || !argumentsEqual(d.Arguments, uses[0].Arguments) {
			return false
		}
		byName[d.Name] = uses[1:]
	}
	return true
}

// valuesEqual compares two literal value trees. Variables are compared by name
// and never resolved. Int and Float literals never equal each other.
func valuesEqual(a, b *language.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	kind := literalKind(a.Kind)
	if kind != literalKind(b.Kind) {
		return false
	}
	switch kind {
	case language.NullValue:
		return true
	case language.FloatValue:
		fa, errA := strconv.ParseFloat(a.Raw, 64)
		fb, errB := strconv.ParseFloat(b.Raw, 64)
		if errA != nil || errB != nil {
			return a.Raw == b.Raw
		}
		return fa == fb
	case language.ListValue:
		if len(a.Children) != len(b.Children) {
			return false
		}
		for i := range a.Children {
			if !valuesEqual(a.Children[i].Value, b.Children[i].Value) {
				return false
			}
		}
		return true
	case language.ObjectValue:
		if len(a.Children) != len(b.Children) {
			return false
		}
		for _, child := range a.Children {
			other := objectField(b, child.Name)
			if other == nil || !valuesEqual(child.Value, other) {
				return false
			}
		}
		return true
	default:
		// Int, Boolean, Enum, String and Variable compare their source text.
		return a.Raw == b.Raw
	}
}

// literalKind folds block strings into plain strings.
func literalKind(k language.ValueKind) language.ValueKind {
	if k == language.BlockValue {
		return language.StringValue
	}
	return k
}

func objectField(v *language.Value, name string) *language.Value {
	for _, child := range v.Children {
		if child.Name == name {
			return child.Value
		}
	}
	return nil
}

package validator

import (
	language "github.com/hanpama/fieldmerge/internal/language"
)

// occurrence is one textual field together with the type it is evaluated
// against and the selection context it appears in.
type occurrence struct {
	field      *language.Field
	parentType string
	context    int
}

// responseKey is the alias if present, else the field name.
func (o *occurrence) responseKey() string {
	if o.field.Alias != "" {
		return o.field.Alias
	}
	return o.field.Name
}

type occurrenceID struct {
	field   *language.Field
	context int
}

// fieldMap groups occurrences by response key, in discovery order.
// Built once and not modified afterwards.
type fieldMap struct {
	keys   []string
	groups map[string][]*occurrence
	seen   map[occurrenceID]struct{}
}

func newFieldMap() *fieldMap {
	return &fieldMap{
		groups: make(map[string][]*occurrence),
		seen:   make(map[occurrenceID]struct{}),
	}
}

// add appends o under its response key. An occurrence of the same field in the
// same context is only kept once.
func (m *fieldMap) add(o *occurrence) {
	id := o.id()
	if _, dup := m.seen[id]; dup {
		return
	}
	m.seen[id] = struct{}{}
	key := o.responseKey()
	if _, ok := m.groups[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.groups[key] = append(m.groups[key], o)
}

func (m *fieldMap) size() int { return len(m.seen) }

func (o *occurrence) id() occurrenceID { return occurrenceID{field: o.field, context: o.context} }

// has reports whether o was collected into m.
func (m *fieldMap) has(o *occurrence) bool {
	_, ok := m.seen[o.id()]
	return ok
}

// flatten returns the fields of context ctx with every inline fragment and
// fragment spread expanded in place. Results are memoized per context.
func (e *engine) flatten(ctx int) *fieldMap {
	if fm, ok := e.cache.flattened(ctx); ok {
		return fm
	}
	key := e.cache.contextKey(ctx)
	fm := newFieldMap()
	expanded := make(map[string]bool)
	if def, ok := key.owner.(*language.FragmentDefinition); ok {
		expanded[def.Name] = true
	}
	e.collect(fm, selectionSetOf(key.owner), key.parentType, ctx, expanded)
	e.cache.storeFlattened(ctx, fm)
	return fm
}

// collect walks set in textual order. Each named fragment is expanded at most
// once per flattened map, which also stops spread cycles.
func (e *engine) collect(fm *fieldMap, set language.SelectionSet, parentType string, ctx int, expanded map[string]bool) {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			fm.add(&occurrence{field: sel, parentType: parentType, context: ctx})
		case *language.InlineFragment:
			typeName := parentType
			if sel.TypeCondition != "" {
				typeName = sel.TypeCondition
			}
			child := e.cache.context(contextKey{owner: sel, parentType: typeName})
			e.collect(fm, sel.SelectionSet, typeName, child, expanded)
		case *language.FragmentSpread:
			if expanded[sel.Name] {
				continue
			}
			expanded[sel.Name] = true
			def := e.doc.Fragments.ForName(sel.Name)
			if def == nil {
				continue
			}
			child := e.cache.context(contextKey{owner: def, parentType: def.TypeCondition})
			e.collect(fm, def.SelectionSet, def.TypeCondition, child, expanded)
		}
	}
}

// subSelection flattens the selection set of o against its return type.
// A field without sub-selection yields an empty map.
func (e *engine) subSelection(o *occurrence) *fieldMap {
	ctx, ok := e.subContext(o)
	if !ok {
		return newFieldMap()
	}
	return e.flatten(ctx)
}

// subContext interns the context of o's own selection set.
func (e *engine) subContext(o *occurrence) (int, bool) {
	if len(o.field.SelectionSet) == 0 {
		return 0, false
	}
	var returnType string
	if def := e.schema.FieldDefinition(o.parentType, o.field.Name); def != nil {
		returnType = def.Type.GetNamedType()
	}
	return e.cache.context(contextKey{owner: o.field, parentType: returnType}), true
}

func selectionSetOf(owner any) language.SelectionSet {
	switch n := owner.(type) {
	case *language.OperationDefinition:
		return n.SelectionSet
	case *language.FragmentDefinition:
		return n.SelectionSet
	case *language.InlineFragment:
		return n.SelectionSet
	case *language.Field:
		return n.SelectionSet
	}
	return nil
}

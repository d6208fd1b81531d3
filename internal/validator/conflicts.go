package validator

import (
	"fmt"

	language "github.com/hanpama/fieldmerge/internal/language"
	schema "github.com/hanpama/fieldmerge/internal/schema"
)

// reason is either a leaf message or the list of conflicting subfields.
type reason struct {
	message   string
	subfields []*conflict
}

type conflict struct {
	responseKey string
	reason      reason
	locations   []language.Location
	origin      pairID
}

// engine finds merge conflicts in one document.
type engine struct {
	schema *schema.Schema
	doc    *language.QueryDocument
	cache  *cache
}

func newEngine(sch *schema.Schema, doc *language.QueryDocument) *engine {
	return &engine{schema: sch, doc: doc, cache: newCache()}
}

// checkContext runs the within-check of a context once per document.
func (e *engine) checkContext(ctx int) []*conflict {
	if !e.cache.beginWithin(ctx) {
		return nil
	}
	return e.findConflictsWithin(e.flatten(ctx))
}

// findConflictsWithin compares every pair of occurrences sharing a response
// key. The sub-selections of a key's occurrences are checked before the key's
// own pairs so a conflict is reported at the nearest selection set where both
// sides are visible.
func (e *engine) findConflictsWithin(fm *fieldMap) []*conflict {
	var conflicts []*conflict
	for _, key := range fm.keys {
		group := fm.groups[key]
		for _, o := range group {
			if ctx, ok := e.subContext(o); ok {
				conflicts = append(conflicts, e.checkContext(ctx)...)
			}
		}
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				if c := e.comparePair(group[i], group[j]); c != nil {
					conflicts = append(conflicts, c)
				}
			}
		}
	}
	return conflicts
}

// findConflictsBetween compares occurrences of a against occurrences of b for
// every response key present in both. A pair already visible together on one
// side belongs to that side's own within-check and is skipped here.
func (e *engine) findConflictsBetween(a, b *fieldMap) []*conflict {
	var conflicts []*conflict
	for _, key := range a.keys {
		others := b.groups[key]
		if len(others) == 0 {
			continue
		}
		for _, oa := range a.groups[key] {
			for _, ob := range others {
				if a.has(ob) || b.has(oa) {
					continue
				}
				if c := e.comparePair(oa, ob); c != nil {
					conflicts = append(conflicts, c)
				}
			}
		}
	}
	return conflicts
}

// comparePair returns the memoized comparison of a and b, computing it on
// first use. A pair met again while its own comparison is running counts as
// mergeable.
func (e *engine) comparePair(a, b *occurrence) *conflict {
	if a.field == b.field && a.parentType == b.parentType {
		return nil
	}
	if c, ok := e.cache.hasResult(a, b); ok {
		e.cache.hits++
		return c
	}
	e.cache.store(a, b, nil)
	c := e.compareFields(a, b)
	e.cache.store(a, b, c)
	return c
}

func (e *engine) compareFields(a, b *occurrence) *conflict {
	e.cache.comparisons++
	key := a.responseKey()
	if a.field.Name != b.field.Name {
		return leafConflict(key, fmt.Sprintf("%s and %s are different fields", a.field.Name, b.field.Name), a, b)
	}
	if !argumentsEqual(a.field.Arguments, b.field.Arguments) {
		return leafConflict(key, "they have differing arguments", a, b)
	}
	if !directivesEqual(a.field.Directives, b.field.Directives) {
		return leafConflict(key, "they have differing directives", a, b)
	}
	defA := e.schema.FieldDefinition(a.parentType, a.field.Name)
	defB := e.schema.FieldDefinition(b.parentType, b.field.Name)
	if defA != nil && defB != nil && !defA.Type.Equal(defB.Type) {
		return leafConflict(key, fmt.Sprintf("they return differing types %s and %s", defA.Type, defB.Type), a, b)
	}

	if len(a.field.SelectionSet) == 0 && len(b.field.SelectionSet) == 0 {
		return nil
	}
	// pairs from one side only were already checked within that side, so
	// the merged selection contributes exactly the cross-side pairs
	sub := dedupe(e.findConflictsBetween(e.subSelection(a), e.subSelection(b)))
	if len(sub) == 0 {
		return nil
	}

	locations := []language.Location{language.LocationOf(a.field.Position), language.LocationOf(b.field.Position)}
	for _, c := range sub {
		locations = append(locations, c.locations...)
	}
	return &conflict{
		responseKey: key,
		reason:      reason{subfields: sub},
		locations:   locations,
		origin:      pairID{a: a.id(), b: b.id()},
	}
}

func leafConflict(key, message string, a, b *occurrence) *conflict {
	return &conflict{
		responseKey: key,
		reason:      reason{message: message},
		locations:   []language.Location{language.LocationOf(a.field.Position), language.LocationOf(b.field.Position)},
		origin:      pairID{a: a.id(), b: b.id()},
	}
}

// dedupe drops conflicts whose key and rendered reason were already seen.
func dedupe(conflicts []*conflict) []*conflict {
	seen := make(map[string]bool, len(conflicts))
	out := conflicts[:0]
	for _, c := range conflicts {
		id := c.responseKey + "\x00" + renderReason(c.reason)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out
}

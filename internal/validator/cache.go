package validator

// contextKey identifies a selection context: the node owning a selection set
// and the type its fields are evaluated against. owner is one of
// *OperationDefinition, *FragmentDefinition, *InlineFragment or *Field.
type contextKey struct {
	owner      any
	parentType string
}

// pairKey is an unordered pair of context ids, smaller id first.
type pairKey [2]int

func pairOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// pairID is an ordered pair of occurrences.
type pairID struct {
	a, b occurrenceID
}

// unordered returns p with its sides in a fixed order so both orientations
// of one pair share an identity.
func (p pairID) unordered() pairID {
	if p.b.context < p.a.context ||
		(p.b.context == p.a.context && fieldOffset(p.b) < fieldOffset(p.a)) {
		return pairID{a: p.b, b: p.a}
	}
	return p
}

func fieldOffset(id occurrenceID) int {
	if id.field.Position == nil {
		return 0
	}
	return id.field.Position.Start
}

// cache holds every memo of one document validation. It is not safe for
// concurrent use.
//
// Comparison results are kept per context pair and, inside it, per ordered
// occurrence pair. A stored nil means the pair merges, or that its
// comparison is still running further up the stack.
type cache struct {
	ids     map[contextKey]int
	keys    []contextKey
	flat    []*fieldMap
	within  map[int]bool
	results map[pairKey]map[pairID]*conflict
	emitted map[pairID]bool

	comparisons int
	hits        int
}

func newCache() *cache {
	return &cache{
		ids:     make(map[contextKey]int),
		within:  make(map[int]bool),
		results: make(map[pairKey]map[pairID]*conflict),
		emitted: make(map[pairID]bool),
	}
}

// context interns key and returns its id.
func (c *cache) context(key contextKey) int {
	if id, ok := c.ids[key]; ok {
		return id
	}
	id := len(c.keys)
	c.ids[key] = id
	c.keys = append(c.keys, key)
	c.flat = append(c.flat, nil)
	return id
}

func (c *cache) contextKey(id int) contextKey { return c.keys[id] }

func (c *cache) flattened(id int) (*fieldMap, bool) {
	fm := c.flat[id]
	return fm, fm != nil
}

func (c *cache) storeFlattened(id int, fm *fieldMap) { c.flat[id] = fm }

// beginWithin marks the within-check of context id as started. It reports
// false when the check already ran.
func (c *cache) beginWithin(id int) bool {
	if c.within[id] {
		return false
	}
	c.within[id] = true
	return true
}

// hasResult returns the stored comparison of a against b.
func (c *cache) hasResult(a, b *occurrence) (*conflict, bool) {
	found, ok := c.results[pairOf(a.context, b.context)][pairID{a: a.id(), b: b.id()}]
	return found, ok
}

func (c *cache) store(a, b *occurrence, found *conflict) {
	key := pairOf(a.context, b.context)
	m := c.results[key]
	if m == nil {
		m = make(map[pairID]*conflict)
		c.results[key] = m
	}
	m[pairID{a: a.id(), b: b.id()}] = found
}

// emit reports whether found is reported for the first time. A conflict
// between the same two occurrences under the same key is reported once per
// document, whichever selection set finds it first.
func (c *cache) emit(found *conflict) bool {
	id := found.origin.unordered()
	if c.emitted[id] {
		return false
	}
	c.emitted[id] = true
	return true
}

func (c *cache) counters() map[string]int {
	return map[string]int{
		CounterComparisons: c.comparisons,
		CounterCacheHits:   c.hits,
		CounterContexts:    len(c.keys),
	}
}

// Package validator checks that fields which can occupy the same response
// position of a GraphQL query are mergeable.
package validator

import (
	"context"
	"sort"
	"time"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	language "github.com/hanpama/fieldmerge/internal/language"
	schema "github.com/hanpama/fieldmerge/internal/schema"
)

// OverlappingFieldsRuleName is the Rule recorded on every merge conflict.
const OverlappingFieldsRuleName = "OverlappingFieldsCanBeMerged"

// Counters reported by the overlapping fields rule.
const (
	CounterComparisons = "comparisons"
	CounterCacheHits   = "cache_hits"
	CounterContexts    = "contexts"
)

// Rule validates one aspect of a query document and records its findings in the report.
type Rule interface {
	Name() string
	Validate(sch *schema.Schema, doc *language.QueryDocument, report *Report)
}

// Report collects the diagnostics and work counters of one validation.
type Report struct {
	Errors   language.ErrorList
	Counters map[string]int
}

func newReport() *Report {
	return &Report{Counters: make(map[string]int)}
}

// Add appends a diagnostic.
func (r *Report) Add(err *language.Error) { r.Errors = append(r.Errors, err) }

// Count adds n to the named counter.
func (r *Report) Count(name string, n int) { r.Counters[name] += n }

// Valid reports whether no diagnostics were recorded.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

// DefaultRules returns the rules Validate runs when none are given.
func DefaultRules() []Rule {
	return []Rule{OverlappingFieldsCanBeMerged()}
}

// Request is a query document as received from a client. Source names the
// document in parse positions and is left empty for network requests.
type Request struct {
	Source        string
	Query         string
	OperationName string
}

// Validate runs rules against doc. With no rules it runs DefaultRules.
func Validate(ctx context.Context, sch *schema.Schema, doc *language.QueryDocument, rules ...Rule) *Report {
	return run(ctx, sch, doc, "", rules)
}

// ValidateQuery parses source and validates it with the default rules.
// Syntax errors are returned in the report.
func ValidateQuery(ctx context.Context, sch *schema.Schema, source string) *Report {
	return ValidateRequest(ctx, sch, Request{Query: source})
}

// ValidateRequest parses req.Query and validates it. OperationName is only
// carried into the published events.
func ValidateRequest(ctx context.Context, sch *schema.Schema, req Request, rules ...Rule) *Report {
	doc, err := language.ParseNamedQuery(req.Source, req.Query)
	if err != nil {
		report := newReport()
		report.Add(language.AsError(err))
		eventbus.Publish(ctx, events.ValidationStart{OperationName: req.OperationName})
		eventbus.Publish(ctx, events.ValidationFinish{OperationName: req.OperationName, Errors: report.Errors})
		return report
	}
	return run(ctx, sch, doc, req.OperationName, rules)
}

func run(ctx context.Context, sch *schema.Schema, doc *language.QueryDocument, operationName string, rules []Rule) *Report {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	eventbus.Publish(ctx, events.ValidationStart{
		OperationName: operationName,
		Operations:    len(doc.Operations),
		Fragments:     len(doc.Fragments),
	})
	start := time.Now()

	report := newReport()
	for _, rule := range rules {
		rule.Validate(sch, doc, report)
	}

	eventbus.Publish(ctx, events.ValidationFinish{
		OperationName: operationName,
		Operations:    len(doc.Operations),
		Errors:        report.Errors,
		Counters:      report.Counters,
		Duration:      time.Since(start),
	})
	return report
}

type overlappingFields struct{}

// OverlappingFieldsCanBeMerged reports response keys whose fields cannot be
// merged into one result entry.
func OverlappingFieldsCanBeMerged() Rule { return overlappingFields{} }

func (overlappingFields) Name() string { return OverlappingFieldsRuleName }

// Validate checks every operation and fragment definition in document order.
// They share one cache, so a conflict between the same two fields is reported
// once per document no matter how often their fragments are spread. Enclosing
// fields that reach it through different response keys each still report it.
func (overlappingFields) Validate(sch *schema.Schema, doc *language.QueryDocument, report *Report) {
	e := newEngine(sch, doc)
	for _, root := range documentRoots(sch, doc) {
		for _, c := range e.checkContext(e.cache.context(root)) {
			if e.cache.emit(c) {
				report.Add(conflictError(c))
			}
		}
	}
	for name, n := range e.cache.counters() {
		report.Count(name, n)
	}
}

type root struct {
	key contextKey
	pos *language.Position
}

func documentRoots(sch *schema.Schema, doc *language.QueryDocument) []contextKey {
	roots := make([]root, 0, len(doc.Operations)+len(doc.Fragments))
	for _, op := range doc.Operations {
		var rootType string
		if sch != nil {
			rootType = sch.RootType(string(op.Operation))
		}
		roots = append(roots, root{key: contextKey{owner: op, parentType: rootType}, pos: op.Position})
	}
	for _, frag := range doc.Fragments {
		roots = append(roots, root{key: contextKey{owner: frag, parentType: frag.TypeCondition}, pos: frag.Position})
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return offset(roots[i].pos) < offset(roots[j].pos)
	})

	keys := make([]contextKey, len(roots))
	for i, r := range roots {
		keys[i] = r.key
	}
	return keys
}

func offset(pos *language.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Start
}

package validator

import (
	"fmt"
	"strings"

	language "github.com/hanpama/fieldmerge/internal/language"
)

// conflictError renders a top-level conflict as a located GraphQL error.
// Nested subfield conflicts are folded into the message, never reported apart.
func conflictError(c *conflict) *language.Error {
	return &language.Error{
		Message: fmt.Sprintf(
			`Fields "%s" conflict because %s. Use different aliases on the fields to fetch both if this was intentional.`,
			c.responseKey, renderReason(c.reason),
		),
		Locations: c.locations,
		Rule:      OverlappingFieldsRuleName,
	}
}

// renderReason renders a leaf message as is and nested reasons as
// `subfields "x" conflict because ...` joined by " and ".
func renderReason(r reason) string {
	if len(r.subfields) == 0 {
		return r.message
	}
	parts := make([]string, len(r.subfields))
	for i, sub := range r.subfields {
		parts[i] = fmt.Sprintf(`subfields "%s" conflict because %s`, sub.responseKey, renderReason(sub.reason))
	}
	return strings.Join(parts, " and ")
}

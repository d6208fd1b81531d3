package events

import (
	"time"

	language "github.com/hanpama/fieldmerge/internal/language"
)

// ValidationStart is emitted before a query document is validated.
type ValidationStart struct {
	OperationName string
	Operations    int
	Fragments     int
}

// ValidationFinish is emitted after all rules ran. Errors holds syntax errors
// or rule diagnostics; Counters holds the rules' work counters.
type ValidationFinish struct {
	OperationName string
	Operations    int
	Errors        language.ErrorList
	Counters      map[string]int
	Duration      time.Duration
}

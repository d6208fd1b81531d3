package events

import (
	"net/http"
	"time"
)

// HTTPStart is published by the validation handler before routing.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published once the response is written. Route is the matched
// route pattern, or "" when no route matched.
type HTTPFinish struct {
	Request  *http.Request
	Route    string
	Status   int
	Duration time.Duration
}

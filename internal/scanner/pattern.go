package scanner

import "regexp"

// Detection patterns are modeled as data so new dialects and APIs can be
// added without touching scanner control flow. Each scanner walks its file
// line by line and, per category, emits at most one node for the first
// pattern that matches the line.

// eventPattern binds a UI event-binding regex to the interaction kind it
// represents. The first capture group is the handler expression.
type eventPattern struct {
	re          *regexp.Regexp
	triggerType string
}

// httpPattern binds an HTTP-call regex to the method it implies. An empty
// method means the method must be inferred from the match or its context.
type httpPattern struct {
	re     *regexp.Regexp
	method string
}

func pat(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

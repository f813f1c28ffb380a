package voice

import (
	"regexp"
	"strings"
)

// DefaultRouteWindow is how many characters of the reply are inspected
// for a routing marker before detection is disabled for the run.
const DefaultRouteWindow = 50

// DefaultRouteGrace extends the window slightly so a marker straddling
// the boundary is still caught.
const DefaultRouteGrace = 50

// routePattern matches a structured delegation prefix at the start of
// a reply: "[ROUTE:agent-id] refined query...".
var routePattern = regexp.MustCompile(`(?s)^\s*\[ROUTE:([\w-]+)\]\s*(.*)`)

// Route is a parsed delegation marker.
type Route struct {
	// AgentID identifies the specialist agent to hand off to.
	AgentID string

	// Query is the refined request text following the marker.
	Query string
}

// ParseRoute extracts a routing marker from the start of text.
func ParseRoute(text string) (*Route, bool) {
	m := routePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return &Route{AgentID: m[1], Query: strings.TrimSpace(m[2])}, true
}

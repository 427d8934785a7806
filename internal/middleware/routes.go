package middleware

import "strings"

// RouteUnmatched labels paths outside the route table.
const RouteUnmatched = "unmatched"

// routeTable lists the API routes. Metric labels and span names use these
// patterns instead of raw paths so label cardinality stays bounded.
var routeTable = []string{
	"/",
	"/health",
	"/ready",
	"/metrics",
	"/tools/{slug}/alternatives",
	"/links/tools/{slug}",
	"/links/alternatives/{slug}",
	"/links/compare/{pair}",
	"/links/categories/{slug}",
	"/links/best/{token}",
}

var routeSegments = func() [][]string {
	segs := make([][]string, len(routeTable))
	for i, route := range routeTable {
		segs[i] = strings.Split(route, "/")
	}
	return segs
}()

// routeOf maps a request path to its route pattern. A "{name}" segment
// matches any non-empty segment.
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	for i, segs := range routeSegments {
		if matchSegments(segs, parts) {
			return routeTable[i]
		}
	}
	return RouteUnmatched
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) != len(parts) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}
	return true
}

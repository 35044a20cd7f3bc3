// pagedata.go: OpenAPI document → page template data.
//
// DiscoverRoutes maps operation IDs to paths so page templates never
// hardcode the Datastar endpoint URLs.
package humastar

import (
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Routes maps operation IDs to their paths.
type Routes map[string]string

// DiscoverRoutes collects the paths of every operation tagged tag, keyed by
// operation ID with the tag prefix removed, e.g. "geovisor-opacity" becomes
// "opacity".
func DiscoverRoutes(api huma.API, tag string) Routes {
	routes := Routes{}
	for p, pi := range api.OpenAPI().Paths {
		for _, op := range operationsOf(pi) {
			if op == nil || !slices.Contains(op.Tags, tag) {
				continue
			}
			routes[strings.TrimPrefix(op.OperationID, tag+"-")] = p
		}
	}
	return routes
}

// PageData is what the geovisor page template renders from.
type PageData struct {
	// Signals are the initial data-signals values.
	Signals map[string]any
	Routes  Routes
	// Client is handed to the page script verbatim.
	Client any
	// Config and Legend are template-only data.
	Config any
	Legend any
}

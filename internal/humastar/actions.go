package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent hypermedia action link.
// Response bodies implement the Actor interface to emit RFC 8288 Link
// headers with method, title, and schema extension parameters.
//
// Example Link header output:
//
//	</api/v1/styles>; rel="preview"; method="POST"; title="Preview styles with this aquifer selected"
type Action struct {
	Rel    string // IANA rel or custom (e.g., "preview", "bounds")
	Href   string // target URL
	Method string // HTTP method: GET, POST, ...
	Title  string // optional human-readable label
	Schema string // optional JSON Schema URL for the request body
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value
// with method and title extension parameters.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	if a.Schema != "" {
		h += fmt.Sprintf(`; schema="%s"`, a.Schema)
	}
	return h
}

// ActionDef is a reusable action template.
// Pattern uses a single %s verb for the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string // e.g. "/api/v1/aquifers/%s"
	Method  string
	Title   string
	Schema  string
}

// ActionsFor generates concrete Action values from ActionDefs for a given
// resource ID. Patterns without a %s verb are used as-is.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		href := d.Pattern
		if strings.Contains(d.Pattern, "%s") {
			href = fmt.Sprintf(d.Pattern, id)
		}
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   href,
			Method: d.Method,
			Title:  d.Title,
			Schema: d.Schema,
		}
	}
	return actions
}

package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds the RFC 8288 link headers generated from an OpenAPI document,
// keyed by operation path.
type Links struct {
	mu     sync.RWMutex
	byPath map[string][]string
}

// NewLinks returns an empty link set. Install its Transformer in the Huma
// config, then call Build once all routes are registered.
func NewLinks() *Links {
	return &Links{byPath: map[string][]string{}}
}

// Build walks the OpenAPI document and generates hypermedia links.
// Operations tagged skipTag (the Datastar SSE endpoints) are left out.
func (l *Links) Build(api huma.API, skipTag string) {
	oapi := api.OpenAPI()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPath = map[string][]string{}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), skipTag) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	// Item → collection and up.
	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
	}

	// Collection → item template.
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
	}

	_, hasQuery := oapi.Paths["/api/v1/query"]
	for _, coll := range collections {
		if coll == "/health" {
			continue
		}
		l.add(coll, "/health", "up")
		// Entry point links to every collection.
		l.add("/health", coll, lastSegment(coll))
	}
	l.add("/health", "/openapi.json", "describedby")
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")
	if hasQuery {
		l.add("/health", "/api/v1/query", "search")
	}

	// describedby per resource: the response schema in the OpenAPI document.
	for _, p := range append(collections, items...) {
		if ref := responseSchemaRef(oapi.Paths[p]); ref != "" {
			l.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	// Document the relations on the operations themselves.
	for p, pi := range oapi.Paths {
		headers := l.byPath[p]
		if len(headers) == 0 {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the link headers generated for an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byPath[opPath]
}

// Root returns the entry point links, for use by non-Huma handlers such as
// the page handler.
func (l *Links) Root() []string {
	return l.For("/health")
}

// Transformer returns a Huma Transformer that injects the generated link
// headers, a self link on item endpoints, pagination links from [Pager]
// bodies and action links from [Actor] bodies.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if slices.Contains(l.byPath[from], val) {
		return
	}
	l.byPath[from] = append(l.byPath[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  "Related: " + rel,
		}
	}
}

func responseSchemaRef(pi *huma.PathItem) string {
	if pi == nil || pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

func parseLinkHeader(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if strings.HasPrefix(params, `rel="`) {
		rel = strings.Trim(params[4:], `"`)
	}
	return rel, href
}

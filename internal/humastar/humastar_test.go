package humastar

import (
	"context"
	"net/http"
	"slices"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"opacity":"0.4","n":3,"on":true,"flag":"true","name":"Ameca"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Float("opacity"); got != 0.4 {
		t.Fatalf("Float(opacity)=%v", got)
	}
	if got := s.Int("n"); got != 3 {
		t.Fatalf("Int(n)=%v", got)
	}
	if got := s.String("n"); got != "3" {
		t.Fatalf("String(n)=%q", got)
	}
	if !s.Bool("on") || !s.Bool("flag") {
		t.Fatal("Bool")
	}
	if _, ok := s.Number("name"); ok {
		t.Fatal("Number(name) should not be numeric")
	}
	if s.Has("missing") || s.String("missing") != "" {
		t.Fatal("missing key")
	}

	empty, err := ParseSignals(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty body: %v %v", empty, err)
	}
	if _, err := ParseSignals([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		offset, limit int
		want          []int
	}{
		{0, 2, []int{1, 2}},
		{4, 2, []int{5}},
		{9, 2, []int{}},
		{-1, 0, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		p := Paginate(items, tt.offset, tt.limit)
		if !slices.Equal(p.Data, tt.want) || p.Total != 5 {
			t.Errorf("Paginate(%d,%d)=%+v, want %v", tt.offset, tt.limit, p, tt.want)
		}
	}

	links := Paginate(items, 2, 2).PaginationLinks("/items")
	want := []string{
		`</items?offset=0&limit=2>; rel="first"`,
		`</items?offset=0&limit=2>; rel="prev"`,
		`</items?offset=4&limit=2>; rel="next"`,
		`</items?offset=4&limit=2>; rel="last"`,
	}
	if !slices.Equal(links, want) {
		t.Fatalf("links=%v", links)
	}
}

func TestActionsFor(t *testing.T) {
	defs := []ActionDef{
		{Rel: "self", Pattern: "/api/v1/aquifers/%s", Method: "GET"},
		{Rel: "preview", Pattern: "/api/v1/styles", Method: "POST", Title: "Preview"},
	}
	actions := ActionsFor("Ameca", defs)
	if actions[0].Href != "/api/v1/aquifers/Ameca" || actions[1].Href != "/api/v1/styles" {
		t.Fatalf("actions=%+v", actions)
	}
	if got := actions[1].LinkHeader(); got != `</api/v1/styles>; rel="preview"; method="POST"; title="Preview"` {
		t.Fatalf("header=%s", got)
	}
}

type itemBody struct {
	Name string `json:"name"`
}

func testAPI() (huma.API, *Links) {
	links := NewLinks()
	cfg := huma.DefaultConfig("test", "0.0.0")
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	api := humago.New(http.NewServeMux(), cfg)

	get := func(ctx context.Context, _ *struct{}) (*struct{ Body itemBody }, error) {
		return &struct{ Body itemBody }{}, nil
	}
	huma.Get(api, "/health", get, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/things", get, huma.OperationTags("things"))
	huma.Get(api, "/api/v1/things/{name}", func(ctx context.Context, _ *struct {
		Name string `path:"name"`
	}) (*struct{ Body itemBody }, error) {
		return &struct{ Body itemBody }{}, nil
	}, huma.OperationTags("things"))
	huma.Post(api, "/api/v1/ui/poke", func(ctx context.Context, _ *SignalsInput) (*huma.StreamResponse, error) {
		return nil, nil
	}, func(o *huma.Operation) {
		o.OperationID = "ui-poke"
		o.Tags = []string{"ui"}
	})
	return api, links
}

func TestLinksBuild(t *testing.T) {
	api, links := testAPI()
	links.Build(api, "ui")

	item := links.For("/api/v1/things/{name}")
	if !slices.Contains(item, `</api/v1/things>; rel="collection"`) {
		t.Fatalf("item links=%v", item)
	}
	coll := links.For("/api/v1/things")
	if !slices.Contains(coll, `</api/v1/things/{name}>; rel="item"`) || !slices.Contains(coll, `</health>; rel="up"`) {
		t.Fatalf("collection links=%v", coll)
	}
	root := links.Root()
	if !slices.Contains(root, `</api/v1/things>; rel="things"`) || !slices.Contains(root, `</openapi.json>; rel="service-desc"`) {
		t.Fatalf("root links=%v", root)
	}
	for _, l := range root {
		if l == `</api/v1/ui/poke>; rel="poke"` {
			t.Fatal("skipped tag was linked")
		}
	}
}

func TestDiscoverRoutes(t *testing.T) {
	api, _ := testAPI()
	routes := DiscoverRoutes(api, "ui")
	if len(routes) != 1 || routes["poke"] != "/api/v1/ui/poke" {
		t.Fatalf("routes=%v", routes)
	}
}

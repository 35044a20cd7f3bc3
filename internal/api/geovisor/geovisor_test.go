package geovisor

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/templates"
	"github.com/joeblew999/geovisor/internal/vulnerability"
	"github.com/joeblew999/geovisor/web"
)

const testdata = "../../aquifer/testdata/vulnerabilidad.geojson"

type testEnv struct {
	srv      *httptest.Server
	data     *service.DataService
	sessions *service.SessionStore
}

func newTestEnv(t *testing.T, source string, load bool) *testEnv {
	t.Helper()
	bus := service.NewEventBus()
	data := service.NewDataService("", source, bus)
	if load {
		if err := data.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	sessions := service.NewSessionStore(data, service.DefaultMapConfig)

	renderer, err := templates.New(web.FS, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("geovisor test", "0.0.0"))
	h := New(data, sessions, bus, renderer, service.DefaultMapConfig)
	h.RegisterRoutes(api)
	mux.Handle("GET /{$}", h.Page(humastar.DiscoverRoutes(api, Tag)))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, data: data, sessions: sessions}
}

func (e *testEnv) post(t *testing.T, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func mustContain(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(body, w) {
			t.Fatalf("response missing %q:\n%s", w, body)
		}
	}
}

func TestOpacity(t *testing.T) {
	env := newTestEnv(t, testdata, true)

	tests := []struct {
		name  string
		body  string
		want  float64
		label string
	}{
		{"number", `{"sessionid":"s1","opacity":0.5}`, 0.5, `"opacitylabel":"50%"`},
		{"string from range input", `{"sessionid":"s1","opacity":"0.3"}`, 0.3, `"opacitylabel":"30%"`},
		{"clamped", `{"sessionid":"s1","opacity":7}`, 1, `"opacitylabel":"100%"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.post(t, "/api/v1/geovisor/opacity", tt.body)
			if code != http.StatusOK {
				t.Fatalf("status=%d body=%s", code, body)
			}
			mustContain(t, body, "datastar-patch-signals", tt.label, `"styles":[`, `"sessionid":"s1"`)
			if got := env.sessions.Get("s1").State().Opacity; got != tt.want {
				t.Fatalf("opacity=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpacityRejectsNonNumber(t *testing.T) {
	env := newTestEnv(t, testdata, true)
	code, _ := env.post(t, "/api/v1/geovisor/opacity", `{"sessionid":"s1","opacity":"half"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", code)
	}
}

func TestInvalidSignals(t *testing.T) {
	env := newTestEnv(t, testdata, true)
	code, _ := env.post(t, "/api/v1/geovisor/filter", `{not json`)
	if code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", code)
	}
}

func TestFilterMutesOtherLevels(t *testing.T) {
	env := newTestEnv(t, testdata, true)
	code, body := env.post(t, "/api/v1/geovisor/filter", `{"sessionid":"s1","filter":"3"}`)
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	mustContain(t, body, `"filter":"3"`, vulnerability.Muted.FillColor, vulnerability.Medium.Color())
	if got := env.sessions.Get("s1").State().Filter; got != 3 {
		t.Fatalf("filter=%d, want 3", got)
	}

	// Unknown radio values degrade to all.
	_, body = env.post(t, "/api/v1/geovisor/filter", `{"sessionid":"s1","filter":"9"}`)
	mustContain(t, body, `"filter":"all"`)
}

func TestAquiferSelection(t *testing.T) {
	env := newTestEnv(t, testdata, true)

	code, body := env.post(t, "/api/v1/geovisor/aquifer", `{"sessionid":"s1","aquifer":"Valle de Toluca"}`)
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	mustContain(t, body, `"kind":"fit"`, `"bounds":[[`, "#00FFFF", `"aquifer":"Valle de Toluca"`)

	_, body = env.post(t, "/api/v1/geovisor/aquifer", `{"sessionid":"s1","aquifer":"Nope"}`)
	mustContain(t, body, `"kind":"reset"`, `"aquifer":""`)
	if strings.Contains(body, "#00FFFF") {
		t.Fatalf("unknown aquifer left a selection stroke:\n%s", body)
	}
	if got := env.sessions.Get("s1").State().SelectedAquifer; got != "" {
		t.Fatalf("selected=%q, want empty", got)
	}
}

func TestPanel(t *testing.T) {
	env := newTestEnv(t, testdata, true)

	_, body := env.post(t, "/api/v1/geovisor/panel", `{"sessionid":"s1","panelcollapsed":false}`)
	mustContain(t, body, `"panelcollapsed":true`)
	if strings.Contains(body, `"styles"`) {
		t.Fatalf("panel toggle should not re-render:\n%s", body)
	}

	// Without the signal the session's own state is toggled.
	_, body = env.post(t, "/api/v1/geovisor/panel", `{"sessionid":"s1"}`)
	mustContain(t, body, `"panelcollapsed":false`)
}

func TestRenderBeforeLoad(t *testing.T) {
	env := newTestEnv(t, testdata, false)
	code, body := env.post(t, "/api/v1/geovisor/render", `{"sessionid":"s1"}`)
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	mustContain(t, body, `"styles":[]`, `"opacitylabel":"80%"`)
}

func TestNewSessionIDIsReturned(t *testing.T) {
	env := newTestEnv(t, testdata, true)
	_, body := env.post(t, "/api/v1/geovisor/render", `{}`)
	mustContain(t, body, `"sessionid":"`)
	if env.sessions.Len() != 1 {
		t.Fatalf("sessions=%d, want 1", env.sessions.Len())
	}
}

func TestPage(t *testing.T) {
	env := newTestEnv(t, testdata, true)

	resp, err := http.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	body := string(b)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type=%q", ct)
	}
	mustContain(t, body, "data-signals=", "sessionid", "/api/v1/geovisor/events",
		"GEOVISOR_CONFIG", "Muy Alta (Nivel 5)", service.DefaultMapConfig.Title)
	if env.sessions.Len() != 1 {
		t.Fatalf("sessions=%d, want 1", env.sessions.Len())
	}
}

// readUntil reads SSE lines until every want has been seen.
func readUntil(t *testing.T, r *bufio.Reader, wants ...string) {
	t.Helper()
	pending := map[string]bool{}
	for _, w := range wants {
		pending[w] = true
	}
	for len(pending) > 0 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended before %v: %v", pending, err)
		}
		for w := range pending {
			if strings.Contains(line, w) {
				delete(pending, w)
			}
		}
	}
}

func openEvents(t *testing.T, env *testEnv, sessionID string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	q := url.Values{"datastar": {`{"sessionid":"` + sessionID + `"}`}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/api/v1/geovisor/events?"+q.Encode(), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	return bufio.NewReader(resp.Body)
}

func TestEventsStreamsLoad(t *testing.T) {
	env := newTestEnv(t, testdata, false)
	r := openEvents(t, env, "s1")

	readUntil(t, r, `"layerstatus":"pending"`)

	if err := env.data.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	readUntil(t, r, "#acuifero-select", "Costa de Hermosillo", `"layerstatus":"loaded"`, "layer-changed")
}

func TestEventsReportsLoadError(t *testing.T) {
	env := newTestEnv(t, "testdata/missing.geojson", false)
	if err := env.data.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	r := openEvents(t, env, "s1")
	readUntil(t, r, "#notice", "No se pudo cargar", `"layerstatus":"failed"`, `"loaderror":"loading testdata/missing.geojson`)
}

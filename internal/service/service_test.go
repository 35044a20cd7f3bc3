package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// twoFeatures has aquifer "Uno" at level 3 and "Dos" at level 5.
const twoFeatures = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"NOM_ACUIF":"Uno","CLAVE_ACUI":"0101","VULNERABIL":"3"},
	 "geometry":{"type":"Polygon","coordinates":[[[-100,20],[-98,20],[-98,22],[-100,22],[-100,20]]]}},
	{"type":"Feature","properties":{"NOM_ACUIF":"Dos","CLAVE_ACUI":"0202","VULNERABIL":5},
	 "geometry":{"type":"Polygon","coordinates":[[[-110,25],[-109,25],[-109,26],[-110,26],[-110,25]]]}}
]}`

type staticSource struct{ layer *aquifer.Layer }

func (s staticSource) Layer() *aquifer.Layer { return s.layer }

func testLayer(t *testing.T) *aquifer.Layer {
	t.Helper()
	layer, err := aquifer.LoadLayer([]byte(twoFeatures))
	if err != nil {
		t.Fatal(err)
	}
	return layer
}

func testSession(t *testing.T) *Session {
	t.Helper()
	return NewSessionStore(staticSource{testLayer(t)}, DefaultMapConfig).Create()
}

func TestViewStateApply(t *testing.T) {
	s := NewViewState()
	if s.Opacity != 0.8 || s.Filter != vulnerability.FilterAll || s.SelectedAquifer != "" || s.PanelCollapsed {
		t.Fatalf("defaults=%+v", s)
	}

	tests := []struct {
		action Action
		check  func(ViewState) bool
	}{
		{SetOpacity{0.35}, func(s ViewState) bool { return s.Opacity == 0.35 }},
		{SetOpacity{1.7}, func(s ViewState) bool { return s.Opacity == 1 }},
		{SetOpacity{-2}, func(s ViewState) bool { return s.Opacity == 0 }},
		{SetOpacity{math.NaN()}, func(s ViewState) bool { return s.Opacity == 0 }},
		{SetFilter{3}, func(s ViewState) bool { return s.Filter == 3 }},
		{SetFilter{9}, func(s ViewState) bool { return s.Filter == vulnerability.FilterAll }},
		{SelectAquifer{"Uno"}, func(s ViewState) bool { return s.SelectedAquifer == "Uno" }},
		{SetPanelCollapsed{true}, func(s ViewState) bool { return s.PanelCollapsed }},
		{TogglePanel{}, func(s ViewState) bool { return !s.PanelCollapsed }},
	}
	for _, tt := range tests {
		s.Apply(tt.action)
		if !tt.check(s) {
			t.Fatalf("after %T%+v state=%+v", tt.action, tt.action, s)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := map[string]vulnerability.Filter{
		"all": vulnerability.FilterAll, "ALL": vulnerability.FilterAll, "": vulnerability.FilterAll,
		"1": 1, "5": 5, " 3 ": 3, "0": vulnerability.FilterAll, "6": vulnerability.FilterAll, "x": vulnerability.FilterAll,
	}
	for in, want := range tests {
		if got := ParseFilter(in); got != want {
			t.Errorf("ParseFilter(%q)=%d, want %d", in, got, want)
		}
	}
	if FilterValue(vulnerability.FilterAll) != "all" || FilterValue(4) != "4" {
		t.Fatal("FilterValue mismatch")
	}
}

func TestScenarioA(t *testing.T) {
	f := Render(testLayer(t), NewViewState())
	if len(f.Styles) != 2 {
		t.Fatalf("styles=%d", len(f.Styles))
	}
	if s := f.Styles[0]; s.FillColor != "#F2B705" || s.FillOpacity != 0.8 || s.Color != "white" {
		t.Fatalf("feature 1 style=%+v", s)
	}
	if s := f.Styles[1]; s.FillColor != "#D90404" || s.FillOpacity != 0.8 || s.Color != "white" {
		t.Fatalf("feature 2 style=%+v", s)
	}
	if f.OpacityLabel != "80%" || f.Filter != "all" {
		t.Fatalf("readouts=%+v", f)
	}
}

func TestScenarioB(t *testing.T) {
	sess := testSession(t)
	before := sess.Render()

	res := sess.Dispatch(SetFilter{3})
	if res.Frame == nil {
		t.Fatal("filter change did not render")
	}
	if res.Frame.Styles[1] != vulnerability.Muted || res.Frame.Styles[1].FillOpacity != 0.2 {
		t.Fatalf("feature 2 not muted: %+v", res.Frame.Styles[1])
	}
	if res.Frame.Styles[0] != before.Styles[0] {
		t.Fatalf("feature 1 changed: %+v vs %+v", res.Frame.Styles[0], before.Styles[0])
	}
}

func TestScenarioC(t *testing.T) {
	sess := testSession(t)
	sess.Dispatch(SetFilter{3})

	res := sess.Dispatch(SelectAquifer{"Uno"})
	s := res.Frame.Styles[0]
	if s.Color != "#00FFFF" || s.Weight != 4 || s.FillColor != "#F2B705" || s.FillOpacity != 0.8 {
		t.Fatalf("feature 1 style=%+v", s)
	}
	if res.View == nil || res.View.Kind != "fit" || res.View.Bounds == nil {
		t.Fatalf("view=%+v", res.View)
	}
	// Uno spans lon -100..-98, lat 20..22; 10% padding adds 0.2 on each side.
	want := [2][2]float64{{19.8, -100.2}, {22.2, -97.8}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(res.View.Bounds[i][j]-want[i][j]) > 1e-9 {
				t.Fatalf("bounds=%v, want %v", *res.View.Bounds, want)
			}
		}
	}
}

func TestSelectionNeverOverridesMuting(t *testing.T) {
	sess := testSession(t)
	sess.Dispatch(SetFilter{3})
	res := sess.Dispatch(SelectAquifer{"Dos"})
	if res.Frame.Styles[1] != vulnerability.Muted {
		t.Fatalf("muted feature shown as selected: %+v", res.Frame.Styles[1])
	}
}

func TestUnknownSelectionEqualsNull(t *testing.T) {
	a := testSession(t)
	b := testSession(t)
	a.Dispatch(SelectAquifer{"Uno"})
	b.Dispatch(SelectAquifer{"Uno"})

	ra := a.Dispatch(SelectAquifer{"No existe"})
	rb := b.Dispatch(SelectAquifer{""})

	if ra.State != rb.State {
		t.Fatalf("states differ: %+v vs %+v", ra.State, rb.State)
	}
	if !reflect.DeepEqual(ra.Frame, rb.Frame) {
		t.Fatal("frames differ")
	}
	if ra.View.Kind != "reset" || rb.View.Kind != "reset" {
		t.Fatalf("views=%+v %+v", ra.View, rb.View)
	}
	if *ra.View.Center != DefaultMapConfig.Center || ra.View.Zoom != DefaultMapConfig.Zoom {
		t.Fatalf("reset view=%+v", ra.View)
	}
}

func TestRenderIdempotent(t *testing.T) {
	sess := testSession(t)
	sess.Dispatch(SetOpacity{0.45})
	sess.Dispatch(SelectAquifer{"Dos"})
	if !reflect.DeepEqual(sess.Render(), sess.Render()) {
		t.Fatal("render not idempotent")
	}
}

func TestRenderWithoutLayer(t *testing.T) {
	sess := NewSessionStore(staticSource{}, DefaultMapConfig).Create()
	res := sess.Dispatch(SetOpacity{0.5})
	if res.Frame == nil || res.Frame.Styles != nil || res.Frame.OpacityLabel != "50%" {
		t.Fatalf("frame=%+v", res.Frame)
	}
	if res := sess.Dispatch(SelectAquifer{"Uno"}); res.View.Kind != "reset" || res.State.SelectedAquifer != "" {
		t.Fatalf("select before load=%+v", res)
	}
}

func TestPanelSkipsRender(t *testing.T) {
	sess := testSession(t)
	res := sess.Dispatch(TogglePanel{})
	if res.Frame != nil || !res.State.PanelCollapsed {
		t.Fatalf("res=%+v", res)
	}
	if res := sess.Dispatch(SetPanelCollapsed{false}); res.State.PanelCollapsed {
		t.Fatal("panel still collapsed")
	}
}

func TestViewRequestSeqIncreases(t *testing.T) {
	sess := testSession(t)
	a := sess.Dispatch(SelectAquifer{"Uno"}).View.Seq
	b := sess.Dispatch(SelectAquifer{"Uno"}).View.Seq
	if b <= a {
		t.Fatalf("seq %d then %d", a, b)
	}
}

func TestSessionStore(t *testing.T) {
	st := NewSessionStore(staticSource{testLayer(t)}, DefaultMapConfig)
	a := st.Create()
	b := st.Get("fixed-id")
	if st.Get(a.ID) != a || st.Get("fixed-id") != b || st.Len() != 2 {
		t.Fatal("store did not return existing sessions")
	}

	a.Dispatch(SetOpacity{0.1})
	if b.State().Opacity != DefaultOpacity {
		t.Fatal("sessions share state")
	}

	if st.Get("").ID == "" {
		t.Fatal("empty id not replaced")
	}

	if n := st.Prune(time.Hour); n != 0 {
		t.Fatalf("pruned %d fresh sessions", n)
	}
	if n := st.Prune(-time.Second); n != 3 || st.Len() != 0 {
		t.Fatalf("pruned %d, left %d", n, st.Len())
	}
}

func TestOpacityLabel(t *testing.T) {
	for op, want := range map[float64]string{0: "0%", 0.05: "5%", 0.8: "80%", 1: "100%", 0.555: "56%"} {
		if got := OpacityLabel(op); got != want {
			t.Errorf("OpacityLabel(%v)=%q, want %q", op, got, want)
		}
	}
}

func TestDataServiceLoadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "v.geojson"), []byte(twoFeatures), 0644); err != nil {
		t.Fatal(err)
	}

	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	ds := NewDataService(dir, "v.geojson", bus)
	if ds.Status() != LoadPending || ds.Layer() != nil {
		t.Fatal("expected pending before load")
	}
	if err := ds.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ds.Status() != LoadDone || ds.Layer().Len() != 2 {
		t.Fatalf("status=%s", ds.Status())
	}

	ev := <-ch
	if ev.Resource != "layer" || ev.Action != "loaded" {
		t.Fatalf("event=%+v", ev)
	}

	// Second load is a no-op.
	if err := ds.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}

func TestDataServiceHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	ds := NewDataService("ignored", srv.URL+"/data/Vulnerabilidad.geojson", bus)
	err := ds.Load(context.Background())

	var le *LoadError
	if !errors.As(err, &le) || le.StatusCode != http.StatusNotFound {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("err %v does not wrap ErrHTTPStatus", err)
	}
	if ds.Layer() != nil || ds.Status() != LoadFailed {
		t.Fatal("layer added after failed load")
	}
	if ev := <-ch; ev.Action != "failed" {
		t.Fatalf("event=%+v", ev)
	}
}

func TestDataServiceHTTPMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"FeatureCollection","features":[`))
	}))
	defer srv.Close()

	ds := NewDataService("", srv.URL, nil)
	var le *LoadError
	if err := ds.Load(context.Background()); !errors.As(err, &le) || le.StatusCode != 0 {
		t.Fatalf("err=%v", err)
	}
}

func TestDataServiceHTTPOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(twoFeatures))
	}))
	defer srv.Close()

	ds := NewDataService("", srv.URL, NewEventBus())
	if err := ds.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := ds.Layer().Index().NamesSorted(); !reflect.DeepEqual(got, []string{"Dos", "Uno"}) {
		t.Fatalf("names=%v", got)
	}
}

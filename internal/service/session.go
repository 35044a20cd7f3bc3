package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/metrics"
)

// LayerSource provides the loaded layer, or nil while pending or failed.
type LayerSource interface {
	Layer() *aquifer.Layer
}

// Session owns one browser's ViewState. Dispatch runs to completion under
// the session lock, so a render always sees the state its action produced.
type Session struct {
	ID string

	mu       sync.Mutex
	state    ViewState
	seq      uint64
	lastSeen time.Time
	source   LayerSource
	config   MapConfig
}

// Result is what a dispatch hands back to the transport.
type Result struct {
	State ViewState
	Frame *Frame       // nil for actions that do not re-render
	View  *ViewRequest // set by SelectAquifer
}

// State returns a copy of the current state.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a to the state and re-renders. Panel actions only
// touch presentation and skip the render pass.
func (s *Session) Dispatch(a Action) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	layer := s.source.Layer()

	var view *ViewRequest
	if sel, ok := a.(SelectAquifer); ok {
		a, view = s.focus(layer, sel)
	}

	s.state.Apply(a)
	metrics.ActionsTotal.WithLabelValues(a.Kind()).Inc()

	res := Result{State: s.state, View: view}
	switch a.(type) {
	case SetPanelCollapsed, TogglePanel:
	default:
		frame := observe(Render(layer, s.state))
		res.Frame = &frame
	}
	return res
}

// Render re-renders the current state without changing it.
func (s *Session) Render() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return observe(Render(s.source.Layer(), s.state))
}

func observe(f Frame) Frame {
	metrics.RenderPassesTotal.Inc()
	metrics.RenderedFeatures.Observe(float64(len(f.Styles)))
	return f
}

// focus resolves the selection against the index. Unknown names behave
// like an empty selection and reset the view.
func (s *Session) focus(layer *aquifer.Layer, sel SelectAquifer) (Action, *ViewRequest) {
	s.seq++
	if sel.Name != "" {
		if b, ok := layer.Index().BoundsOf(sel.Name); ok {
			bounds := aquifer.LatLngBounds(aquifer.Pad(b, s.config.FitPad))
			return sel, &ViewRequest{Kind: "fit", Bounds: &bounds, Seq: s.seq}
		}
	}
	center := s.config.Center
	return SelectAquifer{}, &ViewRequest{Kind: "reset", Center: &center, Zoom: s.config.Zoom, Seq: s.seq}
}

// SessionStore keeps one Session per browser.
type SessionStore struct {
	source LayerSource
	config MapConfig

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionStore creates an empty store whose sessions read from source.
func NewSessionStore(source LayerSource, config MapConfig) *SessionStore {
	return &SessionStore{
		source:   source,
		config:   config,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with default state.
func (st *SessionStore) Create() *Session {
	return st.Get(uuid.NewString())
}

// Get returns the session for id, creating it with defaults if it does not
// exist (for example after a server restart). An empty id gets a fresh one.
func (st *SessionStore) Get(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	metrics.Sessions.Inc()
	s = &Session{
		ID:       id,
		state:    NewViewState(),
		lastSeen: time.Now(),
		source:   st.source,
		config:   st.config,
	}
	st.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many.
func (st *SessionStore) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			metrics.Sessions.Dec()
			n++
		}
	}
	return n
}

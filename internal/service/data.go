package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/logger"
	"github.com/joeblew999/geovisor/internal/metrics"
)

// LoadStatus is the state of the one-time data load.
type LoadStatus string

const (
	LoadPending LoadStatus = "pending"
	LoadDone    LoadStatus = "loaded"
	LoadFailed  LoadStatus = "failed"
)

// LoadError reports why the vulnerability layer could not be loaded:
// a network error, a non-2xx status or malformed GeoJSON.
type LoadError struct {
	Source     string
	StatusCode int // 0 unless the server answered with a non-2xx status
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("loading %s: HTTP %d %s", e.Source, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrHTTPStatus is wrapped by LoadError for non-2xx responses.
var ErrHTTPStatus = errors.New("unexpected http status")

// DataService fetches the GeoJSON source once and publishes the layer.
type DataService struct {
	source string
	client *http.Client
	bus    *EventBus

	layer  atomic.Pointer[aquifer.Layer]
	mu     sync.RWMutex
	status LoadStatus
	err    error
	once   sync.Once
	done   chan struct{}
}

// NewDataService creates a loader for source, which is an http(s) URL or a
// file path. Relative paths are resolved against dataDir.
func NewDataService(dataDir, source string, bus *EventBus) *DataService {
	if !isURL(source) && !filepath.IsAbs(source) && dataDir != "" {
		source = filepath.Join(dataDir, source)
	}
	if bus == nil {
		bus = DefaultBus
	}
	return &DataService{
		source: source,
		client: http.DefaultClient,
		bus:    bus,
		status: LoadPending,
		done:   make(chan struct{}),
	}
}

// WithClient overrides the HTTP client used for URL sources.
func (s *DataService) WithClient(c *http.Client) *DataService {
	s.client = c
	return s
}

// Source returns the resolved source location.
func (s *DataService) Source() string {
	return s.source
}

// Load fetches and parses the source. Only the first call does any work;
// later calls wait for it and return the same result. There is no retry.
func (s *DataService) Load(ctx context.Context) error {
	s.once.Do(func() {
		layer, err := s.fetch(ctx)

		s.mu.Lock()
		if err != nil {
			s.status, s.err = LoadFailed, err
		} else {
			s.layer.Store(layer)
			s.status = LoadDone
		}
		s.mu.Unlock()
		close(s.done)

		action := "loaded"
		if err != nil {
			action = "failed"
			logger.L().Error("data_load_failed", "source", s.source, "err", err)
		} else {
			metrics.LayerFeatures.Set(float64(layer.Len()))
			logger.L().Info("data_loaded", "source", s.source,
				"features", layer.Len(), "aquifers", layer.Index().Len())
		}
		metrics.DataLoadsTotal.WithLabelValues(action).Inc()
		s.bus.Publish(Event{Resource: "layer", Action: action, ID: s.source})
	})
	<-s.done
	return s.Err()
}

// Layer returns the loaded layer, or nil while pending or after a failure.
func (s *DataService) Layer() *aquifer.Layer {
	return s.layer.Load()
}

// Status returns the current load status.
func (s *DataService) Status() LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the load error, if any.
func (s *DataService) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done is closed when the load has finished either way.
func (s *DataService) Done() <-chan struct{} {
	return s.done
}

func (s *DataService) fetch(ctx context.Context) (*aquifer.Layer, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	layer, err := aquifer.LoadLayer(data)
	if err != nil {
		return nil, &LoadError{Source: s.source, Err: err}
	}
	return layer, nil
}

func (s *DataService) read(ctx context.Context) ([]byte, error) {
	if !isURL(s.source) {
		data, err := os.ReadFile(s.source)
		if err != nil {
			return nil, &LoadError{Source: s.source, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, &LoadError{Source: s.source, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: s.source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{
			Source:     s.source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Source: s.source, Err: fmt.Errorf("reading body: %w", err)}
	}
	return data, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

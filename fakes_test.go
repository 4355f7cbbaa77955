package main

import (
	"context"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"vehicle-tracker/config"
)

type fakeWidget struct {
	mu           sync.Mutex
	locationReqs int
	inits        []MapInit
	markers      map[string]Marker
	markerAdds   int
	markerMoves  int
	routes       map[string]*RouteOverlay
	routeAdds    int
	routeRemoves int
	states       []ViewState
	initErr      error
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{
		markers: make(map[string]Marker),
		routes:  make(map[string]*RouteOverlay),
	}
}

func (w *fakeWidget) RequestLocation() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locationReqs++
	return nil
}

func (w *fakeWidget) InitMap(m MapInit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.initErr != nil {
		return w.initErr
	}
	w.inits = append(w.inits, m)
	return nil
}

func (w *fakeWidget) AddMarker(m Marker) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markerAdds++
	w.markers[m.ID] = m
	return nil
}

func (w *fakeWidget) MoveMarker(id string, pos LatLng, popup string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markerMoves++
	m := w.markers[id]
	m.Position = pos
	m.Popup = popup
	w.markers[id] = m
	return nil
}

func (w *fakeWidget) AddRoute(r *RouteOverlay) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routeAdds++
	w.routes[r.ID] = r
	return nil
}

func (w *fakeWidget) RemoveRoute(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routeRemoves++
	delete(w.routes, id)
	return nil
}

func (w *fakeWidget) ShowState(v ViewState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states = append(w.states, v)
	return nil
}

func (w *fakeWidget) routeCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.routeAdds + w.routeRemoves
}

func (w *fakeWidget) activeRoutes() []*RouteOverlay {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*RouteOverlay, 0, len(w.routes))
	for _, r := range w.routes {
		out = append(out, r)
	}
	return out
}

type fakeAlarmWriter struct {
	mu      sync.Mutex
	writes  []bool
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAlarmWriter) WriteAlarm(ctx context.Context, on bool) error {
	f.mu.Lock()
	f.writes = append(f.writes, on)
	err := f.err
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAlarmWriter) recorded() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

type fakeRouter struct {
	mu    sync.Mutex
	calls [][]LatLng
	opts  []RouteOptions
	// hook, when set, replaces the default straight-line result.
	hook func(call int, waypoints []LatLng) (*RouteOverlay, error)
}

func (f *fakeRouter) Route(ctx context.Context, waypoints []LatLng, opts RouteOptions) (*RouteOverlay, error) {
	f.mu.Lock()
	f.calls = append(f.calls, waypoints)
	f.opts = append(f.opts, opts)
	call := len(f.calls)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		return hook(call, waypoints)
	}
	return straightRoute(waypoints, opts), nil
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func straightRoute(waypoints []LatLng, opts RouteOptions) *RouteOverlay {
	path := make(orb.LineString, 0, len(waypoints))
	for _, w := range waypoints {
		path = append(path, orb.Point{w.Lng, w.Lat})
	}
	return &RouteOverlay{Waypoints: waypoints, Path: path, Options: opts}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []AlarmEvent
}

func (f *fakeNotifier) NotifyAlarm(ctx context.Context, e AlarmEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type fakeSource struct {
	mu    sync.Mutex
	reads int
	next  func(call int) (LatLng, bool, error)
}

func (f *fakeSource) Locate(ctx context.Context) (LatLng, bool, error) {
	f.mu.Lock()
	f.reads++
	call := f.reads
	next := f.next
	f.mu.Unlock()
	if next == nil {
		return LatLng{}, false, nil
	}
	return next(call)
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type testEnv struct {
	widget   *fakeWidget
	alarm    *fakeAlarmWriter
	router   *fakeRouter
	notifier *fakeNotifier
	source   *fakeSource
	session  *Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	defaults := config.Default()
	env := &testEnv{
		widget:   newFakeWidget(),
		alarm:    &fakeAlarmWriter{},
		router:   &fakeRouter{},
		notifier: &fakeNotifier{},
		source:   &fakeSource{},
	}
	env.session = NewSession("test-view", SessionDeps{
		Widget:     env.widget,
		Source:     env.source,
		Alarm:      env.alarm,
		Router:     env.router,
		Notifier:   env.notifier,
		Map:        defaults.Map,
		Vehicle:    defaults.Vehicle,
		VehicleRef: "quanlyxe/vehicle1",
	})
	return env
}

// newLocatedEnv returns an env whose viewer position is set and map initialized.
func newLocatedEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.session.Mount()
	if err := env.session.SetViewerLocation(LatLng{Lat: 21.0285, Lng: 105.8542}); err != nil {
		t.Fatalf("SetViewerLocation: %v", err)
	}
	return env
}

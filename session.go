package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"vehicle-tracker/config"
)

const (
	statusReadFailed  = "Could not read the vehicle location."
	statusRouteWait   = "Please wait for the vehicle and your location to be updated."
	statusRouteFailed = "Could not find a route to the vehicle."
	statusAlarmOn     = "Alarm turned on!"
	statusAlarmOff    = "Alarm turned off!"
	statusAlarmFailed = "Could not update the alarm, please try again."
)

// SessionDeps are the collaborators a view's session drives.
type SessionDeps struct {
	// Widget is called with the session lock held, so its calls must be
	// bounded (the websocket view uses a write deadline).
	Widget   MapWidget
	Source   LocationSource
	Alarm    AlarmWriter
	Router   Router
	Notifier AlarmNotifier
	Map      config.MapConfig
	Vehicle  config.VehicleConfig
	// VehicleRef identifies the vehicle in published alarm events.
	VehicleRef string
}

// Session is the state container for one view. Every mutation goes through
// its methods under mu; remote calls are made with mu released and their
// results are dropped if a newer request has superseded them.
type Session struct {
	id   string
	deps SessionDeps

	mu                sync.Mutex
	locationRequested bool
	viewer            *LatLng
	mapReady          bool
	vehicle           *LatLng
	vehicleMarker     bool
	vehicleSeq        uint64
	alarm             AlarmStatus
	alarmSeq          uint64
	alarmStored       bool // last value the store accepted
	alarmTurn         uint64
	alarmTurnCond     *sync.Cond
	route             *RouteOverlay
	routeSeq          uint64
	status            string

	poller *poller
}

func NewSession(id string, deps SessionDeps) *Session {
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	s := &Session{
		id:    id,
		deps:  deps,
		alarm: AlarmStatus{State: AlarmIdle},
	}
	s.alarmTurnCond = sync.NewCond(&s.mu)
	s.poller = newPoller(deps.Source, deps.Vehicle.PollInterval, deps.Vehicle.ReadTimeout, s.ApplyVehicleRead)
	return s
}

func (s *Session) ID() string { return s.id }

// Run polls the vehicle location until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	s.poller.run(ctx)
}

// Mount asks the device for the viewer's position. Only the first call has
// any effect.
func (s *Session) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locationRequested {
		return
	}
	s.locationRequested = true
	if err := s.deps.Widget.RequestLocation(); err != nil {
		s.logf("request location: %v", err)
	}
	s.renderLocked()
}

// SetViewerLocation records the viewer's position once and initializes the map.
func (s *Session) SetViewerLocation(loc LatLng) error {
	if err := loc.validate(); err != nil {
		return fmt.Errorf("viewer location: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewer != nil {
		s.logf("viewer location already set, ignoring %v,%v", loc.Lat, loc.Lng)
		return nil
	}
	s.viewer = &loc
	s.initMapLocked()
	s.renderLocked()
	return nil
}

// ViewerLocationFailed leaves the viewer unset; the map stays pending.
func (s *Session) ViewerLocationFailed(reason string) {
	s.logf("location error: %s", reason)
}

func (s *Session) initMapLocked() {
	if s.viewer == nil || s.mapReady {
		return
	}
	err := s.deps.Widget.InitMap(MapInit{
		Center:  *s.viewer,
		Zoom:    s.deps.Map.Zoom,
		TileURL: s.deps.Map.TileURL,
	})
	if err != nil {
		s.logf("init map: %v", err)
		return
	}
	s.mapReady = true
	err = s.deps.Widget.AddMarker(Marker{
		ID:       viewerMarkerID,
		Position: *s.viewer,
		Icon:     s.deps.Map.ViewerIcon,
	})
	if err != nil {
		s.logf("add viewer marker: %v", err)
	}
}

// ApplyVehicleRead folds one poll result into the view. Results older than
// the last applied one are discarded. It reports whether r was applied.
func (s *Session) ApplyVehicleRead(seq uint64, r vehicleRead) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.vehicleSeq {
		s.logf("dropping stale vehicle read #%d (latest #%d)", seq, s.vehicleSeq)
		return false
	}
	s.vehicleSeq = seq

	if r.Err != nil {
		s.logf("vehicle read #%d: %v", seq, r.Err)
		s.status = statusReadFailed
		s.renderLocked()
		return true
	}
	if s.status == statusReadFailed {
		s.status = ""
	}
	if !r.Found {
		s.renderLocked()
		return true
	}

	loc := r.Loc
	s.vehicle = &loc
	popup := vehiclePopup(loc)
	switch {
	case s.vehicleMarker:
		if err := s.deps.Widget.MoveMarker(vehicleMarkerID, loc, popup); err != nil {
			s.logf("move vehicle marker: %v", err)
		}
	case s.mapReady:
		err := s.deps.Widget.AddMarker(Marker{
			ID:       vehicleMarkerID,
			Position: loc,
			Icon:     s.deps.Map.VehicleIcon,
			Popup:    popup,
		})
		if err != nil {
			s.logf("add vehicle marker: %v", err)
		} else {
			s.vehicleMarker = true
		}
	}
	s.renderLocked()
	return true
}

func vehiclePopup(loc LatLng) string {
	return fmt.Sprintf("Vehicle location: Lat: %v, Lng: %v", loc.Lat, loc.Lng)
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewStateLocked()
}

func (s *Session) viewStateLocked() ViewState {
	v := ViewState{
		Alarm:    s.alarm,
		Status:   s.status,
		HasRoute: s.route != nil,
	}
	switch {
	case s.viewer == nil:
		v.Phase = PhaseNoLocation
	case !s.mapReady:
		v.Phase = PhaseLocationAcquired
	case s.vehicle == nil:
		v.Phase = PhaseVehicleUnknown
	default:
		v.Phase = PhaseVehicleKnown
	}
	if s.viewer != nil {
		viewer := *s.viewer
		v.Viewer = &viewer
	}
	if s.vehicle != nil {
		vehicle := *s.vehicle
		v.Vehicle = &vehicle
	}
	if v.Viewer != nil && v.Vehicle != nil {
		d := geo.DistanceHaversine(
			orb.Point{v.Viewer.Lng, v.Viewer.Lat},
			orb.Point{v.Vehicle.Lng, v.Vehicle.Lat},
		)
		v.DistanceMeters = &d
	}
	return v
}

func (s *Session) renderLocked() {
	if err := s.deps.Widget.ShowState(s.viewStateLocked()); err != nil {
		s.logf("show state: %v", err)
	}
}

func (s *Session) setStatusLocked(msg string) {
	s.status = msg
	s.renderLocked()
}

func (s *Session) logf(format string, args ...any) {
	log.Printf("view %s: "+format, append([]any{s.id}, args...)...)
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var errNoDraggableRoute = errors.New("no draggable route to recompute")

// RouteOptions mirror the routing control settings the page applies.
type RouteOptions struct {
	RouteWhileDragging    bool `json:"routeWhileDragging"`
	CreateWaypointMarkers bool `json:"createWaypointMarkers"`
}

// Instruction is one turn-by-turn step for the routing panel.
type Instruction struct {
	Text            string  `json:"text"`
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// RouteOverlay is a computed path between the route's waypoints.
type RouteOverlay struct {
	ID              string
	Waypoints       []LatLng
	Path            orb.LineString
	DistanceMeters  float64
	DurationSeconds float64
	Instructions    []Instruction
	Options         RouteOptions
}

// Feature renders the overlay as a GeoJSON LineString feature.
func (r *RouteOverlay) Feature() *geojson.Feature {
	f := geojson.NewFeature(r.Path)
	f.ID = r.ID
	f.Properties["distance"] = r.DistanceMeters
	f.Properties["duration"] = r.DurationSeconds
	return f
}

// Router computes a route through the given waypoints, in order.
type Router interface {
	Route(ctx context.Context, waypoints []LatLng, opts RouteOptions) (*RouteOverlay, error)
}

// FindRoute draws a route from the viewer to the vehicle, replacing any
// previous one. Without both locations it only asks the user to wait.
func (s *Session) FindRoute(ctx context.Context) error {
	s.mu.Lock()
	if s.viewer == nil || s.vehicle == nil || !s.mapReady {
		s.setStatusLocked(statusRouteWait)
		s.mu.Unlock()
		return nil
	}
	s.routeSeq++
	seq := s.routeSeq
	s.removeRouteLocked()
	waypoints := []LatLng{*s.viewer, *s.vehicle}
	s.renderLocked()
	s.mu.Unlock()

	opts := RouteOptions{RouteWhileDragging: true, CreateWaypointMarkers: false}
	overlay, err := s.deps.Router.Route(ctx, waypoints, opts)
	return s.installRoute(seq, overlay, err)
}

// Reroute recomputes the active route after its start waypoint was dragged.
func (s *Session) Reroute(ctx context.Context, from LatLng) error {
	if err := from.validate(); err != nil {
		return fmt.Errorf("drag waypoint: %w", err)
	}
	s.mu.Lock()
	if s.route == nil || !s.route.Options.RouteWhileDragging || len(s.route.Waypoints) < 2 {
		s.mu.Unlock()
		return errNoDraggableRoute
	}
	s.routeSeq++
	seq := s.routeSeq
	waypoints := []LatLng{from, s.route.Waypoints[len(s.route.Waypoints)-1]}
	opts := s.route.Options
	s.mu.Unlock()

	overlay, err := s.deps.Router.Route(ctx, waypoints, opts)
	return s.installRoute(seq, overlay, err)
}

func (s *Session) installRoute(seq uint64, overlay *RouteOverlay, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.routeSeq {
		s.logf("dropping superseded route #%d", seq)
		return nil
	}
	if err == nil && overlay == nil {
		err = ErrNoRoute
	}
	if err != nil {
		s.logf("route #%d: %v", seq, err)
		s.setStatusLocked(statusRouteFailed)
		return fmt.Errorf("route: %w", err)
	}
	s.removeRouteLocked()
	overlay.ID = uuid.NewString()
	if err := s.deps.Widget.AddRoute(overlay); err != nil {
		s.logf("add route: %v", err)
		s.renderLocked()
		return nil
	}
	s.route = overlay
	if s.status == statusRouteWait || s.status == statusRouteFailed {
		s.status = ""
	}
	s.renderLocked()
	return nil
}

func (s *Session) removeRouteLocked() {
	if s.route == nil {
		return
	}
	if err := s.deps.Widget.RemoveRoute(s.route.ID); err != nil {
		s.logf("remove route: %v", err)
	}
	s.route = nil
}

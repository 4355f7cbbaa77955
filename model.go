package main

import (
	"errors"
	"fmt"
	"math"
)

// LatLng is a latitude/longitude pair as exchanged with the map page.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("coordinates must be finite: %v,%v", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude out of range: %v", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude out of range: %v", p.Lng)
	}
	return nil
}

// VehicleDocument mirrors the remote document for the tracked vehicle.
type VehicleDocument struct {
	Lat   *float64 `firestore:"lat" bson:"lat" json:"lat"`
	Lng   *float64 `firestore:"lng" bson:"lng" json:"lng"`
	Alert bool     `firestore:"alert" bson:"alert" json:"alert"`
}

var (
	ErrIncompleteDocument = errors.New("vehicle document has no coordinates")
	ErrVehicleNotInFeed   = errors.New("vehicle not present in feed")
	ErrNoRoute            = errors.New("no route found")
	ErrUnknownDriver      = errors.New("unknown store driver")
)

// Location extracts the vehicle coordinates from the document.
func (d VehicleDocument) Location() (LatLng, error) {
	if d.Lat == nil || d.Lng == nil {
		return LatLng{}, ErrIncompleteDocument
	}
	p := LatLng{Lat: *d.Lat, Lng: *d.Lng}
	if err := p.validate(); err != nil {
		return LatLng{}, err
	}
	return p, nil
}

// Phase is the view's position in the location lifecycle.
type Phase string

const (
	PhaseNoLocation       Phase = "no_location"
	PhaseLocationAcquired Phase = "location_acquired"
	PhaseVehicleUnknown   Phase = "vehicle_unknown"
	PhaseVehicleKnown     Phase = "vehicle_known"
)

type AlarmState string

const (
	AlarmIdle      AlarmState = "idle"
	AlarmPending   AlarmState = "pending"
	AlarmConfirmed AlarmState = "confirmed"
	AlarmFailed    AlarmState = "failed"
)

type AlarmStatus struct {
	On    bool       `json:"on"`
	State AlarmState `json:"state"`
}

// Marker is a point drawn on the map page.
type Marker struct {
	ID       string `json:"id"`
	Position LatLng `json:"position"`
	Icon     string `json:"icon,omitempty"`
	Popup    string `json:"popup,omitempty"`
}

// ViewState is the snapshot rendered into the page's status and control areas.
type ViewState struct {
	Phase          Phase       `json:"phase"`
	Viewer         *LatLng     `json:"viewer,omitempty"`
	Vehicle        *LatLng     `json:"vehicle,omitempty"`
	DistanceMeters *float64    `json:"distanceMeters,omitempty"`
	Alarm          AlarmStatus `json:"alarm"`
	Status         string      `json:"status,omitempty"`
	HasRoute       bool        `json:"hasRoute"`
}

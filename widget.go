package main

// MapWidget is the page-side map: it renders what the session tells it to and
// asks the device for the viewer's position.
type MapWidget interface {
	RequestLocation() error
	InitMap(m MapInit) error
	AddMarker(m Marker) error
	MoveMarker(id string, pos LatLng, popup string) error
	AddRoute(r *RouteOverlay) error
	RemoveRoute(id string) error
	ShowState(v ViewState) error
}

// MapInit centers a fresh map and names its base tile layer.
type MapInit struct {
	Center  LatLng `json:"center"`
	Zoom    int    `json:"zoom"`
	TileURL string `json:"tileUrl"`
}

const (
	viewerMarkerID  = "viewer"
	vehicleMarkerID = "vehicle"
)

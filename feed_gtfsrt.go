package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// GtfsRtVehicleSource locates one vehicle in a GTFS-RT VehiclePositions feed.
type GtfsRtVehicleSource struct {
	url        string
	vehicleID  string
	httpClient *http.Client
}

func NewGtfsRtVehicleSource(url, vehicleID string, timeout time.Duration) *GtfsRtVehicleSource {
	return &GtfsRtVehicleSource{
		url:        url,
		vehicleID:  vehicleID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *GtfsRtVehicleSource) Locate(ctx context.Context) (LatLng, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return LatLng{}, false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return LatLng{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return LatLng{}, false, fmt.Errorf("gtfs-rt http status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LatLng{}, false, err
	}
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return LatLng{}, false, fmt.Errorf("decode gtfs-rt feed: %w", err)
	}
	loc, err := findVehiclePosition(&feed, s.vehicleID)
	if errors.Is(err, ErrVehicleNotInFeed) {
		return LatLng{}, false, nil
	}
	if err != nil {
		return LatLng{}, false, err
	}
	return loc, true, nil
}

// findVehiclePosition matches on the vehicle descriptor id, falling back to
// its label since some agencies only fill the latter.
func findVehiclePosition(feed *gtfs.FeedMessage, vehicleID string) (LatLng, error) {
	for _, ent := range feed.GetEntity() {
		vp := ent.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}
		desc := vp.GetVehicle()
		if desc == nil || (desc.GetId() != vehicleID && desc.GetLabel() != vehicleID) {
			continue
		}
		loc := LatLng{
			Lat: float64(vp.GetPosition().GetLatitude()),
			Lng: float64(vp.GetPosition().GetLongitude()),
		}
		if err := loc.validate(); err != nil {
			return LatLng{}, fmt.Errorf("vehicle %s: %w", vehicleID, err)
		}
		return loc, nil
	}
	return LatLng{}, ErrVehicleNotInFeed
}

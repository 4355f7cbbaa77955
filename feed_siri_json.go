package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SiriJsonVehicleSource locates one vehicle in a SIRI VehicleMonitoring JSON
// delivery.
type SiriJsonVehicleSource struct {
	url        string
	vehicleID  string
	httpClient *http.Client
}

func NewSiriJsonVehicleSource(url, vehicleID string, timeout time.Duration) *SiriJsonVehicleSource {
	return &SiriJsonVehicleSource{
		url:        url,
		vehicleID:  vehicleID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *SiriJsonVehicleSource) Locate(ctx context.Context) (LatLng, bool, error) {
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
		return LatLng{}, false, fmt.Errorf("siri json http status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return LatLng{}, false, err
	}

	// Siri?.ServiceDelivery.VehicleMonitoringDelivery[].VehicleActivity[]
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return LatLng{}, false, fmt.Errorf("decode siri json: %w", err)
	}
	if siri, ok := root["Siri"].(map[string]any); ok && siri != nil {
		root = siri
	}
	sd, _ := root["ServiceDelivery"].(map[string]any)
	vmdArr, _ := sd["VehicleMonitoringDelivery"].([]any)
	for _, vmdAny := range vmdArr {
		vmd, _ := vmdAny.(map[string]any)
		vaArr, _ := vmd["VehicleActivity"].([]any)
		for _, vaAny := range vaArr {
			va, _ := vaAny.(map[string]any)
			mvj, _ := va["MonitoredVehicleJourney"].(map[string]any)
			if mvj == nil || stringFrom(mvj["VehicleRef"]) != s.vehicleID {
				continue
			}
			lat, okLat := floatFromNested(mvj, "VehicleLocation", "Latitude")
			lng, okLng := floatFromNested(mvj, "VehicleLocation", "Longitude")
			if !okLat || !okLng {
				continue
			}
			loc := LatLng{Lat: lat, Lng: lng}
			if err := loc.validate(); err != nil {
				return LatLng{}, false, fmt.Errorf("vehicle %s: %w", s.vehicleID, err)
			}
			return loc, true, nil
		}
	}
	return LatLng{}, false, nil
}

// VehicleRef is either a plain string or {"value": "..."} depending on the producer.
func stringFrom(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["value"].(string)
		return s
	}
	return ""
}

func floatFromNested(m map[string]any, k1, k2 string) (float64, bool) {
	m1, _ := m[k1].(map[string]any)
	switch v := m1[k2].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// OSRMRouter asks an OSRM-compatible server for driving routes.
type OSRMRouter struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewOSRMRouter(baseURL, profile string, timeout time.Duration) *OSRMRouter {
	return &OSRMRouter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64          `json:"distance"`
	Duration float64          `json:"duration"`
	Geometry geojson.Geometry `json:"geometry"`
	Legs     []struct {
		Steps []osrmStep `json:"steps"`
	} `json:"legs"`
}

type osrmStep struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
		Exit     int    `json:"exit"`
	} `json:"maneuver"`
}

func (r *OSRMRouter) Route(ctx context.Context, waypoints []LatLng, opts RouteOptions) (*RouteOverlay, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("route needs at least two waypoints, got %d", len(waypoints))
	}
	coords := make([]string, len(waypoints))
	for i, w := range waypoints {
		coords[i] = strconv.FormatFloat(w.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(w.Lat, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	q.Set("steps", "true")
	u := fmt.Sprintf("%s/route/v1/%s/%s?%s", r.baseURL, r.profile, strings.Join(coords, ";"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osrm http status %d: decode: %w", resp.StatusCode, err)
	}
	if body.Code == "NoRoute" || (body.Code == "Ok" && len(body.Routes) == 0) {
		return nil, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK || body.Code != "Ok" {
		return nil, fmt.Errorf("osrm http status %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}

	best := body.Routes[0]
	path, ok := best.Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("osrm geometry is %s, want LineString", best.Geometry.Type)
	}
	overlay := &RouteOverlay{
		Waypoints:       append([]LatLng(nil), waypoints...),
		Path:            path,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Options:         opts,
	}
	for _, leg := range best.Legs {
		for _, st := range leg.Steps {
			overlay.Instructions = append(overlay.Instructions, Instruction{
				Text:            formatInstruction(st),
				DistanceMeters:  st.Distance,
				DurationSeconds: st.Duration,
			})
		}
	}
	return overlay, nil
}

func formatInstruction(st osrmStep) string {
	onto := ""
	if st.Name != "" {
		onto = " onto " + st.Name
	}
	mod := st.Maneuver.Modifier
	switch st.Maneuver.Type {
	case "depart":
		if st.Name != "" {
			return "Head out on " + st.Name
		}
		return "Head out"
	case "arrive":
		return "You have arrived at your destination"
	case "roundabout", "rotary":
		if st.Maneuver.Exit > 0 {
			return fmt.Sprintf("Enter the roundabout and take the %s exit%s", ordinal(st.Maneuver.Exit), onto)
		}
		return "Enter the roundabout" + onto
	case "merge":
		return strings.TrimSpace("Merge "+mod) + onto
	case "on ramp":
		return "Take the ramp" + onto
	case "off ramp":
		return "Take the exit" + onto
	case "fork":
		return strings.TrimSpace("Keep "+mod) + " at the fork" + onto
	case "continue", "new name":
		return "Continue" + onto
	}
	switch mod {
	case "", "straight":
		return "Continue straight" + onto
	case "uturn":
		return "Make a U-turn" + onto
	default:
		return "Turn " + mod + onto
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// outMessage is a command for the map page.
type outMessage struct {
	Type     string        `json:"type"`
	Map      *MapInit      `json:"map,omitempty"`
	Marker   *Marker       `json:"marker,omitempty"`
	ID       string        `json:"id,omitempty"`
	Position *LatLng       `json:"position,omitempty"`
	Popup    string        `json:"popup,omitempty"`
	Route    *routeMessage `json:"route,omitempty"`
	State    *ViewState    `json:"state,omitempty"`
}

type routeMessage struct {
	ID           string           `json:"id"`
	Feature      *geojson.Feature `json:"feature"`
	Waypoints    []LatLng         `json:"waypoints"`
	Instructions []Instruction    `json:"instructions"`
	Options      RouteOptions     `json:"options"`
}

// inMessage is an event reported by the map page.
type inMessage struct {
	Type    string   `json:"type"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Message string   `json:"message,omitempty"`
}

// wsView is one connected page. It is the session's MapWidget.
type wsView struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (v *wsView) send(m outMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return v.conn.WriteMessage(websocket.TextMessage, data)
}

func (v *wsView) RequestLocation() error {
	return v.send(outMessage{Type: "request_location"})
}

func (v *wsView) InitMap(m MapInit) error {
	return v.send(outMessage{Type: "map_init", Map: &m})
}

func (v *wsView) AddMarker(m Marker) error {
	return v.send(outMessage{Type: "marker_add", Marker: &m})
}

func (v *wsView) MoveMarker(id string, pos LatLng, popup string) error {
	return v.send(outMessage{Type: "marker_move", ID: id, Position: &pos, Popup: popup})
}

func (v *wsView) AddRoute(r *RouteOverlay) error {
	return v.send(outMessage{Type: "route_add", Route: &routeMessage{
		ID:           r.ID,
		Feature:      r.Feature(),
		Waypoints:    r.Waypoints,
		Instructions: r.Instructions,
		Options:      r.Options,
	}})
}

func (v *wsView) RemoveRoute(id string) error {
	return v.send(outMessage{Type: "route_remove", ID: id})
}

func (v *wsView) ShowState(s ViewState) error {
	return v.send(outMessage{Type: "state", State: &s})
}

type wsHub struct {
	mu    sync.Mutex
	views map[string]*wsView
}

func newHub() *wsHub {
	return &wsHub{views: make(map[string]*wsView)}
}

func (h *wsHub) add(v *wsView) {
	h.mu.Lock()
	h.views[v.id] = v
	h.mu.Unlock()
}

func (h *wsHub) remove(v *wsView) {
	h.mu.Lock()
	delete(h.views, v.id)
	h.mu.Unlock()
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

// closeAll drops every connection; each read loop then tears its view down.
func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.views {
		v.writeMu.Lock()
		_ = v.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		v.writeMu.Unlock()
		_ = v.conn.Close()
	}
}

func (a *app) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	view := &wsView{id: uuid.NewString(), conn: conn}
	sess := NewSession(view.id, a.sessionDeps(view))

	a.hub.add(view)
	log.Printf("view %s: opened from %s", view.id, r.RemoteAddr)
	go a.serveView(view, sess)
}

// serveView owns the view's lifetime: polling runs until the page goes away,
// then all in-flight work is awaited before the connection is released.
func (a *app) serveView(view *wsView, sess *Session) {
	ctx, cancel := context.WithCancel(a.ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		a.hub.remove(view)
		_ = view.conn.Close()
		log.Printf("view %s: closed", view.id)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sess.Run(ctx)
	}()
	sess.Mount()

	action := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Printf("view %s: %s: %v", view.id, name, err)
			}
		}()
	}

	for {
		_, data, err := view.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("view %s: malformed message: %v", view.id, err)
			continue
		}
		switch msg.Type {
		case "location":
			loc, err := msg.latLng()
			if err == nil {
				err = sess.SetViewerLocation(loc)
			}
			if err != nil {
				log.Printf("view %s: location: %v", view.id, err)
			}
		case "location_error":
			sess.ViewerLocationFailed(msg.Message)
		case "toggle_alarm":
			action("toggle alarm", sess.ToggleAlarm)
		case "find_route":
			action("find route", sess.FindRoute)
		case "route_drag":
			loc, err := msg.latLng()
			if err != nil {
				log.Printf("view %s: route drag: %v", view.id, err)
				continue
			}
			action("reroute", func(ctx context.Context) error { return sess.Reroute(ctx, loc) })
		default:
			log.Printf("view %s: unknown message type %q", view.id, msg.Type)
		}
	}
}

func (m inMessage) latLng() (LatLng, error) {
	if m.Lat == nil || m.Lng == nil {
		return LatLng{}, errors.New("message has no coordinates")
	}
	return LatLng{Lat: *m.Lat, Lng: *m.Lng}, nil
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"vehicle-tracker/config"
)

// app holds what every view shares: the remote collaborators and the hub of
// open views.
type app struct {
	ctx      context.Context
	cfg      config.AppConfig
	hub      *wsHub
	store    VehicleStore
	source   LocationSource
	router   Router
	notifier AlarmNotifier
}

func (a *app) sessionDeps(w MapWidget) SessionDeps {
	return SessionDeps{
		Widget:     w,
		Source:     a.source,
		Alarm:      a.store,
		Router:     a.router,
		Notifier:   a.notifier,
		Map:        a.cfg.Map,
		Vehicle:    a.cfg.Vehicle,
		VehicleRef: a.cfg.Store.Collection + "/" + a.cfg.Store.DocumentID,
	}
}

func (a *app) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("/ws", a.handleWebSocket)
	mux.HandleFunc("GET /api/vehicle", a.handleGetVehicle)
	mux.HandleFunc("POST /api/vehicle/location", a.handleReportLocation)

	fs := http.FileServer(http.Dir(a.cfg.Server.StaticDir))
	mux.Handle("/", withLogging(fs))
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"views":  a.hub.count(),
	})
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

func (a *app) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	doc, exists, err := a.store.Get(r.Context())
	if err != nil {
		log.Printf("get vehicle: %v", err)
		writeJSONError(w, http.StatusBadGateway, "vehicle document unavailable")
		return
	}
	if !exists {
		writeJSONError(w, http.StatusNotFound, "vehicle document not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// handleReportLocation is the vehicle agent's write path: it merges lat/lng
// and leaves alert untouched.
func (a *app) handleReportLocation(w http.ResponseWriter, r *http.Request) {
	var loc LatLng
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&loc); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := loc.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.store.WriteLocation(r.Context(), loc); err != nil {
		log.Printf("report location: %v", err)
		writeJSONError(w, http.StatusBadGateway, "could not store location")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

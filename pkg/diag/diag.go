// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package diag exposes the state of registrations and their sessions over
// HTTP, plus a WebSocket stream of log events. Everything here is read-only
// diagnostics, except for the explicit shutdown endpoint.
package diag

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/mux"

	"github.com/sessq/sessq-go/pkg/session"
)

// Agent serves diagnostic endpoints for a set of observed Registrations.
type Agent struct {
	router *mux.Router
	hub    *EventHub

	mu            sync.Mutex
	registrations []*session.Registration

	// ids maps every observed session to a stable identifier. Ids are never
	// reused, so a shutdown request cannot slip onto a different session
	// when sessions come or go between two requests.
	ids    map[*session.Session]int
	nextId int
}

// SessionInfo is the JSON shape of one session in a /sessions response.
type SessionInfo struct {
	Id           int    `json:"id"`
	Registration string `json:"registration"`
	Connections  int    `json:"connections"`
	CacheEntries int    `json:"cacheEntries"`
	Draining     bool   `json:"draining"`
}

// ShutdownRequest is the JSON body of a /sessions/{id}/shutdown request.
type ShutdownRequest struct {
	Silent    bool   `json:"silent"`
	ErrorCode uint64 `json:"errorCode"`
}

// ShutdownResponse answers a ShutdownRequest.
type ShutdownResponse struct {
	Error string `json:"error,omitempty"`
}

// NewAgent creates an Agent; its ServeHTTP must be bound to an HTTP server.
func NewAgent() (a *Agent) {
	a = &Agent{
		router: mux.NewRouter(),
		hub:    NewEventHub(),
		ids:    make(map[*session.Session]int),
	}

	a.router.HandleFunc("/sessions", a.handleSessions).Methods(http.MethodGet)
	a.router.HandleFunc("/sessions/{id:[0-9]+}/shutdown", a.handleShutdown).Methods(http.MethodPost)
	a.router.HandleFunc("/events", a.hub.ServeHTTP).Methods(http.MethodGet)

	return a
}

// ServeHTTP is a http.Handler serving the diagnostic endpoints.
func (a *Agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Events returns the hub streaming log entries to WebSocket clients; it is
// registered as a logrus hook by the caller.
func (a *Agent) Events() *EventHub {
	return a.hub
}

// Observe adds reg to the Agent's watch list.
func (a *Agent) Observe(reg *session.Registration) {
	a.mu.Lock()
	a.registrations = append(a.registrations, reg)
	a.mu.Unlock()
}

// sessions snapshots all sessions of all observed registrations, assigning
// each one a stable id on first sight. Ids of vanished sessions are pruned
// but never handed out again.
func (a *Agent) sessions() (sessions []*session.Session, ids []int, names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[*session.Session]struct{})
	for _, reg := range a.registrations {
		for _, s := range reg.Sessions() {
			id, ok := a.ids[s]
			if !ok {
				id = a.nextId
				a.nextId++
				a.ids[s] = id
			}
			seen[s] = struct{}{}

			sessions = append(sessions, s)
			ids = append(ids, id)
			names = append(names, reg.Name())
		}
	}

	for s := range a.ids {
		if _, ok := seen[s]; !ok {
			delete(a.ids, s)
		}
	}
	return
}

// findSession resolves a previously handed-out session id, or nil when that
// session is gone.
func (a *Agent) findSession(id int) *session.Session {
	sessions, ids, _ := a.sessions()
	for i, s := range sessions {
		if ids[i] == id {
			return s
		}
	}
	return nil
}

func (a *Agent) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, ids, names := a.sessions()

	infos := make([]SessionInfo, 0, len(sessions))
	for i, s := range sessions {
		s.TraceRundown()

		infos = append(infos, SessionInfo{
			Id:           ids[i],
			Registration: names[i],
			Connections:  s.ConnCount(),
			CacheEntries: s.CacheLen(),
			Draining:     s.Draining(),
		})
	}

	if err := json.NewEncoder(w).Encode(infos); err != nil {
		log.WithError(err).Warn("Failed to write sessions response")
	}
}

func (a *Agent) handleShutdown(w http.ResponseWriter, r *http.Request) {
	var (
		request  ShutdownRequest
		response ShutdownResponse
	)

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if jsonErr := json.NewDecoder(r.Body).Decode(&request); jsonErr != nil {
		response.Error = jsonErr.Error()
	} else if target := a.findSession(id); target == nil {
		response.Error = "no such session"
		w.WriteHeader(http.StatusNotFound)
	} else {
		flags := session.ShutdownFlagNone
		if request.Silent {
			flags |= session.ShutdownFlagSilent
		}

		log.WithFields(log.Fields{
			"session":   id,
			"errorCode": request.ErrorCode,
		}).Info("Shutdown requested through the diagnostic agent")

		target.Shutdown(flags, request.ErrorCode)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Warn("Failed to write shutdown response")
	}
}

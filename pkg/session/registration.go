// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/sessq/sessq-go/pkg/handle"
	"github.com/sessq/sessq-go/pkg/rundown"
)

// Registration is an application-visible execution context owning zero or
// more Sessions. It tracks the connections below all of its Sessions with a
// rundown of its own, so an application can wait for every connection it
// ever started.
type Registration struct {
	name string

	// sessionMu guards sessions. Unlike the per-Session registry lock it may
	// be held across sleeps, but only Open and Close ever take it.
	sessionMu sync.Mutex
	sessions  []*Session

	connRundown *rundown.Rundown

	settings Settings

	// verifying is toggled from arbitrary goroutines and read during every
	// registration, hence atomic.
	verifying atomic.Bool
}

// NewRegistration creates a Registration. The settings become the defaults
// of every Session opened under it.
func NewRegistration(name string, settings Settings) *Registration {
	r := &Registration{
		name:        name,
		connRundown: rundown.New(),
		settings:    settings,
	}

	log.WithField("registration", r.name).Debug("Registration created")

	return r
}

func (r *Registration) HandleType() handle.Type {
	return handle.Registration
}

// Name returns the diagnostic name the Registration was created with.
func (r *Registration) Name() string {
	return r.name
}

// SetVerifying toggles the debug verification flag propagated to every Conn
// registered under this Registration's Sessions.
func (r *Registration) SetVerifying(v bool) {
	r.verifying.Store(v)
}

// Verifying reports whether debug verification is currently enabled.
func (r *Registration) Verifying() bool {
	return r.verifying.Load()
}

// Sessions returns a snapshot of the currently open Sessions.
func (r *Registration) Sessions() []*Session {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	return append([]*Session(nil), r.sessions...)
}

func (r *Registration) addSession(s *Session) {
	r.sessionMu.Lock()
	r.sessions = append(r.sessions, s)
	r.sessionMu.Unlock()
}

func (r *Registration) removeSession(s *Session) {
	r.sessionMu.Lock()
	for i, other := range r.sessions {
		if other == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			break
		}
	}
	r.sessionMu.Unlock()
}

// Close shuts down and closes every remaining Session and blocks until all
// connections below this Registration have detached. The Registration must
// not be used afterwards.
func (r *Registration) Close() error {
	log.WithField("registration", r.name).Debug("Registration closing")

	for _, s := range r.Sessions() {
		s.Shutdown(ShutdownFlagSilent, 0)
		s.Close()
	}

	r.connRundown.ReleaseAndWait()

	log.WithField("registration", r.name).Debug("Registration closed")

	return nil
}

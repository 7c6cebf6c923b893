// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sessq/sessq-go/pkg/handle"
	"github.com/sessq/sessq-go/pkg/operation"
	"github.com/sessq/sessq-go/pkg/rundown"
)

// ShutdownFlags modify how registered connections are asked to shut down.
type ShutdownFlags uint32

const (
	ShutdownFlagNone ShutdownFlags = 0

	// ShutdownFlagSilent closes connections immediately, without informing
	// the peer.
	ShutdownFlagSilent ShutdownFlags = 1 << 0
)

// Session groups connections sharing TLS resumption and transport-parameter
// history for a set of remote servers. It outlives any single connection and
// is owned by at most one Registration; a Session without a Registration is
// the process-global fallback.
//
// A Session is freed only after Close has drained its rundown, i.e. after
// every registered Conn has detached.
type Session struct {
	registration *Registration // nil for the global fallback
	context      interface{}

	rdown *rundown.Rundown

	// connsMu guards conns. It is held only for list mutation, fan-out and
	// trace enumeration, never across anything that blocks.
	connsMu sync.Mutex
	conns   []*Conn

	// cacheMu guards cache: shared for lookups, exclusive for updates.
	cacheMu sync.RWMutex
	cache   map[uint64][]*cacheEntry

	// hashName buckets cache entries. Replaced in tests to force collisions.
	hashName func(string) uint64

	// settingsMu guards settings: any goroutine may replace them while
	// others copy them into registering connections.
	settingsMu sync.Mutex
	settings   Settings

	execCtx ExecutionContext
}

func newSession(reg *Registration, context interface{}) *Session {
	s := &Session{
		registration: reg,
		context:      context,
		rdown:        rundown.New(),
		cache:        make(map[uint64][]*cacheEntry),
		hashName:     xxhash.Sum64String,
	}

	if reg != nil {
		s.settings = reg.settings
		s.execCtx = CaptureExecutionContext()
	}

	log.WithFields(log.Fields{
		"session":      fmt.Sprintf("%p", s),
		"registration": registrationName(reg),
	}).Debug("Session created")

	return s
}

// Open creates a Session owned by reg and inserts it into reg's session
// list. It fails without side effects when reg is nil.
func Open(reg *Registration, context interface{}) (*Session, error) {
	if reg == nil {
		return nil, ErrInvalidParameter
	}

	s := newSession(reg, context)
	reg.addSession(s)
	return s, nil
}

// OpenFallback creates the process-global fallback Session, owned by no
// Registration. Closing it silently shuts down every registered connection
// first, since no Registration exists to have done so.
func OpenFallback(context interface{}) *Session {
	return newSession(nil, context)
}

func (s *Session) HandleType() handle.Type {
	return handle.Session
}

// Registration returns the owning Registration, or nil for the fallback.
func (s *Session) Registration() *Registration {
	return s.registration
}

// Context returns the opaque application context passed at open time.
func (s *Session) Context() interface{} {
	return s.context
}

// Settings returns the Session's current connection defaults.
func (s *Session) Settings() Settings {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	return s.settings
}

// SetSettings replaces the Session's connection defaults. Only future
// registrations observe the change.
func (s *Session) SetSettings(settings Settings) {
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
}

// Draining reports whether Close has started tearing the Session down.
func (s *Session) Draining() bool {
	return s.rdown.Draining()
}

// ConnCount reports the number of currently registered Conns.
func (s *Session) ConnCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	return len(s.conns)
}

// Close removes the Session from its Registration, blocks until every
// registered Conn has detached and then frees the Session together with its
// resumption cache.
//
// For the fallback Session there is no Registration whose teardown could
// have shut the connections down already, so Close fans out a silent
// shutdown itself before draining. Close must not be called twice, nor
// concurrently with itself.
func (s *Session) Close() {
	log.WithField("session", fmt.Sprintf("%p", s)).Debug("Session cleaning up")

	if s.registration != nil {
		s.registration.removeSession(s)
	} else {
		s.Shutdown(ShutdownFlagSilent, 0)
	}

	s.rdown.ReleaseAndWait()
	s.free()
}

// free releases the resumption cache. The registry must be empty by now;
// a populated registry here means a Conn outlived the rundown it holds,
// which cannot be recovered from.
func (s *Session) free() {
	s.connsMu.Lock()
	remaining := len(s.conns)
	s.connsMu.Unlock()
	if remaining != 0 {
		panic(fmt.Sprintf("session: freed with %d registered connections", remaining))
	}

	s.cacheMu.Lock()
	for _, bucket := range s.cache {
		for _, e := range bucket {
			if e.sec != nil {
				e.sec.Release()
			}
		}
	}
	s.cache = nil
	s.cacheMu.Unlock()

	log.WithField("session", fmt.Sprintf("%p", s)).Debug("Session destroyed")
}

// Shutdown asks every currently registered Conn to shut down, asynchronously
// and with highest priority. Delivery uses each Conn's preallocated backup
// operation, so it cannot fail under allocation pressure; a Conn whose
// backup operation is still in flight is skipped, one outstanding shutdown
// signal per connection being all a connection ever needs.
//
// errorCode beyond the 62-bit QUIC range makes Shutdown a silent no-op;
// a shutdown signal is best effort by contract.
func (s *Session) Shutdown(flags ShutdownFlags, errorCode uint64) {
	if errorCode > MaxErrorCode {
		return
	}

	log.WithFields(log.Fields{
		"session":   fmt.Sprintf("%p", s),
		"flags":     uint32(flags),
		"errorCode": errorCode,
	}).Debug("Session shutting down connections")

	s.connsMu.Lock()
	for _, c := range s.conns {
		op, ok := c.backup.TryClaim()
		if !ok {
			continue
		}

		op.Type = operation.APICall
		op.APICall.Type = operation.ConnShutdown
		op.APICall.ConnShutdown = operation.ConnShutdownArgs{
			Flags:     uint32(flags),
			ErrorCode: errorCode,
		}
		c.proc.EnqueueHighestPriority(op)
	}
	s.connsMu.Unlock()
}

// Register attaches c to the Session: c leaves any previous Session, takes
// over the Session's settings, acquires rundown units and joins the
// registry. Registering on a Session whose Close has already begun is a
// caller ordering bug and panics.
func (s *Session) Register(c *Conn) {
	Unregister(c)

	// The draining check comes before any other side effect, so a caller
	// racing Register against Close trips the panic with nothing half done.
	if !s.rdown.Acquire() {
		panic("session: Register on a draining Session")
	}

	settings := s.Settings()

	c.mu.Lock()
	c.session = s
	if s.registration != nil {
		c.registration = s.registration
		if !s.registration.connRundown.Acquire() {
			c.mu.Unlock()
			panic("session: Register on a closing Registration")
		}
		c.verifying = s.registration.Verifying()
		c.settings = settings
	}
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"connection": fmt.Sprintf("%p", c),
		"session":    fmt.Sprintf("%p", s),
	}).Debug("Connection registered with session")

	s.connsMu.Lock()
	s.conns = append(s.conns, c)
	s.connsMu.Unlock()
}

// Unregister detaches c from its current Session. A Conn without a Session
// is left alone; calling Unregister twice is a no-op the second time.
func Unregister(c *Conn) {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return
	}
	c.session = nil
	reg := c.registration
	c.registration = nil
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"connection": fmt.Sprintf("%p", c),
		"session":    fmt.Sprintf("%p", s),
	}).Debug("Connection unregistered from session")

	s.connsMu.Lock()
	for i, other := range s.conns {
		if other == c {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
	s.connsMu.Unlock()

	if reg != nil {
		reg.connRundown.Release()
	}
	s.rdown.Release()
}

// TraceRundown logs the Session's state and asks every registered Conn to
// emit its own rundown diagnostic. Read-only.
func (s *Session) TraceRundown() {
	log.WithFields(log.Fields{
		"session":      fmt.Sprintf("%p", s),
		"registration": registrationName(s.registration),
		"rundown":      s.rdown.Count(),
	}).Debug("Session rundown")

	s.connsMu.Lock()
	for _, c := range s.conns {
		c.proc.TraceRundown()
	}
	s.connsMu.Unlock()
}

func registrationName(r *Registration) string {
	if r == nil {
		return "<global>"
	}
	return r.name
}

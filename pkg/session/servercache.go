// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	log "github.com/sirupsen/logrus"

	"github.com/sessq/sessq-go/pkg/security"
)

// maxServerNameLength bounds cache keys. Server names come from SNI, whose
// length field is 16 bits wide.
const maxServerNameLength = 1<<16 - 1

// cacheEntry is one remembered server: the QUIC version and transport
// parameters of the last contact, plus an optional shared security
// configuration. The cache owns exactly one reference to sec for as long as
// the entry points at it.
type cacheEntry struct {
	name    string
	version uint32
	params  TransportParameters
	sec     *security.Handle
}

// lookup finds the entry for name within the bucket addressed by hash,
// disambiguating colliding names by exact comparison. It must be called with
// cacheMu held, shared or exclusive; it takes no lock itself so SetState can
// chain a lookup and an insert under one exclusive section.
func (s *Session) lookup(name string, hash uint64) *cacheEntry {
	for _, e := range s.cache[hash] {
		if e.name == name {
			return e
		}
	}
	return nil
}

// GetState returns the cached resumption state for serverName. A returned
// non-nil security handle is a fresh reference owned by the caller, to be
// released when done. A miss is an ok=false result, not an error.
func (s *Session) GetState(serverName string) (version uint32, params TransportParameters, sec *security.Handle, ok bool) {
	hash := s.hashName(serverName)

	s.cacheMu.RLock()
	if e := s.lookup(serverName, hash); e != nil {
		version = e.version
		params = e.params
		if e.sec != nil {
			sec = e.sec.Clone()
		}
		ok = true
	}
	s.cacheMu.RUnlock()

	return
}

// SetState remembers resumption state for serverName, updating an existing
// entry in place or inserting a new one. Version and parameters are always
// overwritten; the security configuration is only replaced when sec is
// non-nil, releasing the reference to the previous one first. The cache
// takes its own reference to sec; the caller keeps ownership of its own.
//
// The cache is an optimization, so an unusable serverName only costs a
// future full handshake and is dropped with a diagnostic.
func (s *Session) SetState(serverName string, version uint32, params TransportParameters, sec *security.Handle) {
	if len(serverName) == 0 || len(serverName) > maxServerNameLength {
		log.WithField("length", len(serverName)).
			Warn("Server cache rejects unusable server name")
		return
	}

	hash := s.hashName(serverName)

	s.cacheMu.Lock()
	if e := s.lookup(serverName, hash); e != nil {
		e.version = version
		e.params = params
		if sec != nil {
			if e.sec != nil {
				e.sec.Release()
			}
			e.sec = sec.Clone()
		}
	} else {
		e := &cacheEntry{
			name:    serverName,
			version: version,
			params:  params,
		}
		if sec != nil {
			e.sec = sec.Clone()
		}
		s.cache[hash] = append(s.cache[hash], e)
	}
	s.cacheMu.Unlock()

	log.WithFields(log.Fields{
		"server":  serverName,
		"version": version,
	}).Debug("Server cache state set")
}

// CacheLen reports the number of cached servers.
func (s *Session) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	n := 0
	for _, bucket := range s.cache {
		n += len(bucket)
	}
	return n
}

// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store persists resumption cache records, so a restarted process
// can skip full handshakes against servers it already knows.
package store

import (
	"os"
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/hashicorp/go-multierror"
	"github.com/timshannon/badgerhold"

	"github.com/sessq/sessq-go/pkg/session"
)

const dirBadger string = "db"

// Store is an on-disk keyed store of CacheRecords.
type Store struct {
	bh *badgerhold.Store

	badgerDir string
}

// NewStore creates a new Store or opens an existing one from the given path.
func NewStore(dir string) (s *Store, err error) {
	badgerDir := path.Join(dir, dirBadger)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{
			bh: bh,

			badgerDir: badgerDir,
		}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Put stores or replaces the record for its server name.
func (s *Store) Put(record session.CacheRecord) error {
	return s.bh.Upsert(record.ServerName, record)
}

// Query fetches the record for the requested server name.
func (s *Store) Query(serverName string) (record session.CacheRecord, err error) {
	err = s.bh.Get(serverName, &record)
	return
}

// Knows checks if a record for this server name exists.
func (s *Store) Knows(serverName string) bool {
	_, err := s.Query(serverName)
	return err != badgerhold.ErrNotFound
}

// Capture persists every entry of sess's resumption cache. Failing records
// are collected and reported together; the remaining records are written
// regardless.
func (s *Store) Capture(sess *session.Session) error {
	var errs *multierror.Error

	for _, record := range sess.CacheRecords() {
		if err := s.Put(record); err != nil {
			log.WithFields(log.Fields{
				"server": record.ServerName,
				"error":  err,
			}).Warn("Store failed to persist a cache record")

			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// Seed loads every stored record into sess's resumption cache.
func (s *Store) Seed(sess *session.Session) error {
	var records []session.CacheRecord
	if err := s.bh.Find(&records, nil); err != nil {
		return err
	}

	for _, record := range records {
		sess.SetState(record.ServerName, record.Version, record.Parameters, nil)
	}

	log.WithField("records", len(records)).Debug("Store seeded a session cache")

	return nil
}

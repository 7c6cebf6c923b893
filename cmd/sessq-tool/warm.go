// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"github.com/fsnotify/fsnotify"

	"github.com/sessq/sessq-go/pkg/session"
	"github.com/sessq/sessq-go/pkg/store"
)

// warmer feeds dropped snapshot files into a store.
type warmer struct {
	store   *store.Store
	watcher *fsnotify.Watcher

	closeChan chan os.Signal
}

// runWarm for the "warm" CLI option.
func runWarm(args []string) {
	if len(args) != 2 {
		printUsage()
	}

	var (
		configName = args[0]
		directory  = args[1]

		err error
	)

	conf, err := parseConfig(configName)
	if err != nil {
		printFatal(err, "Parsing configuration errored")
	}
	if conf.Store.Path == "" {
		log.Fatal("Warming needs a store.path in the configuration")
	}

	w := &warmer{
		closeChan: make(chan os.Signal),
	}

	signal.Notify(w.closeChan, os.Interrupt)

	if w.store, err = store.NewStore(conf.Store.Path); err != nil {
		printFatal(err, "Opening store errored")
	}

	if w.watcher, err = fsnotify.NewWatcher(); err != nil {
		printFatal(err, "Starting file watcher errored")
	}
	if err = w.watcher.Add(directory); err != nil {
		printFatal(err, "Adding directory to file watcher errored")
	}

	log.WithFields(log.Fields{
		"directory": directory,
		"store":     conf.Store.Path,
	}).Info("Watching for snapshots")

	w.handler()
}

func (w *warmer) handler() {
	defer func() {
		_ = w.watcher.Close()
		if err := w.store.Close(); err != nil {
			log.WithError(err).Warn("Closing the store errored")
		}
	}()

	for {
		select {
		case <-w.closeChan:
			log.Info("Received interrupt signal")
			return

		case e, ok := <-w.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if e.Op&fsnotify.Create == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			w.importSnapshot(e.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Error("fsnotify errored")
			return
		}
	}
}

// importSnapshot loads one snapshot file and captures its records into the
// store. A scratch session carries the records between both formats.
func (w *warmer) importSnapshot(filename string) {
	logger := log.WithField("file", filename)

	s := session.OpenFallback(nil)
	defer s.Close()

	if f, err := os.Open(filename); err != nil {
		logger.WithError(err).Warn("Opening snapshot errored")
	} else if err := s.ImportCache(f); err != nil {
		_ = f.Close()
		logger.WithError(err).Warn("Unmarshaling snapshot errored")
	} else if err := f.Close(); err != nil {
		logger.WithError(err).Warn("Closing snapshot errored")
	} else if err := w.store.Capture(s); err != nil {
		logger.WithError(err).Warn("Storing snapshot records errored")
	} else {
		logger.WithField("records", s.CacheLen()).Info("Snapshot stored")
	}
}

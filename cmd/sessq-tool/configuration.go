// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"

	"github.com/sessq/sessq-go/pkg/session"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Logging      logConf
	Registration registrationConf
	Session      session.Settings
	Store        storeConf
	Agent        agentConf
	Sim          simConf
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// registrationConf describes the Registration-configuration block.
type registrationConf struct {
	Name string
}

// storeConf describes the Store-configuration block.
type storeConf struct {
	Path string
}

// agentConf describes the diagnostic Agent-configuration block.
type agentConf struct {
	Listen string
}

// simConf describes the Sim-configuration block.
type simConf struct {
	Sessions    int
	Connections int
	ChurnMs     int `toml:"churn-ms"`
}

// parseConfig reads the TOML configuration and applies the logging block.
func parseConfig(filename string) (conf tomlConfig, err error) {
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	// Logging
	if conf.Logging.Level != "" {
		if lvl, lvlErr := log.ParseLevel(conf.Logging.Level); lvlErr != nil {
			log.WithFields(log.Fields{
				"level":    conf.Logging.Level,
				"error":    lvlErr,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.Logging.ReportCaller)

	switch conf.Logging.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}

	// Sim defaults
	if conf.Sim.Sessions == 0 {
		conf.Sim.Sessions = 1
	}
	if conf.Sim.Connections == 0 {
		conf.Sim.Connections = 4
	}
	if conf.Sim.ChurnMs == 0 {
		conf.Sim.ChurnMs = 500
	}

	return
}

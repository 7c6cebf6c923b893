// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/tls"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quic-go/quic-go"

	"github.com/sessq/sessq-go/pkg/session"
)

// runProbe for the "probe" CLI option.
func runProbe(args []string) {
	if len(args) != 3 {
		printUsage()
	}

	var (
		address    = args[0]
		serverName = args[1]
		outName    = args[2]

		err  error
		conn quic.Connection
		f    io.WriteCloser
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tlsConf := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true,
		NextProtos:         []string{"h3"},
	}
	quicConf := &quic.Config{
		HandshakeIdleTimeout: 10 * time.Second,
		MaxIdleTimeout:       30 * time.Second,
	}

	if conn, err = quic.DialAddr(ctx, address, tlsConf, quicConf); err != nil {
		printFatal(err, "Dialing errored")
	}

	state := conn.ConnectionState()
	_ = conn.CloseWithError(0, "probe finished")

	log.WithFields(log.Fields{
		"server":    serverName,
		"version":   uint32(state.Version),
		"datagrams": state.SupportsDatagrams,
		"used0RTT":  state.Used0RTT,
	}).Info("Handshake succeeded")

	s := session.OpenFallback(nil)
	defer s.Close()

	// quic-go keeps the peer's raw transport parameters to itself; record
	// the negotiated facts the API does expose.
	params := session.TransportParameters{
		MaxIdleTimeoutMs:        uint64(quicConf.MaxIdleTimeout / time.Millisecond),
		ActiveConnectionIDLimit: 2,
	}
	s.SetState(serverName, uint32(state.Version), params, nil)

	if outName == "-" {
		f = os.Stdout
	} else if f, err = os.Create(outName); err != nil {
		printFatal(err, "Creating snapshot file errored")
	}

	if err = s.ExportCache(f); err != nil {
		printFatal(err, "Writing snapshot errored")
	}
	if err = f.Close(); err != nil {
		printFatal(err, "Closing snapshot file errored")
	}
}

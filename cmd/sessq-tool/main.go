// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// printFatal logs the error together with a message and exits afterwards.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

// printUsage of sessq-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s sim|probe|show|warm:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s sim configuration.toml\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Runs a registration with simulated sessions and connections, serves the\n")
	_, _ = fmt.Fprintf(os.Stderr, "  diagnostic agent and persists the resumption caches on SIGINT.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s probe address server-name snapshot-name\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Performs a QUIC handshake against the address, records the negotiated\n")
	_, _ = fmt.Fprintf(os.Stderr, "  state under the server name and saves it as a snapshot.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s show -|snapshot-name\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Prints a human-readable version of the given snapshot.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s warm configuration.toml directory\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Watches the directory and feeds every dropped snapshot into the store,\n")
	_, _ = fmt.Fprintf(os.Stderr, "  so a later sim starts with a warm resumption cache.\n\n")

	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
	}

	switch os.Args[1] {
	case "sim":
		runSim(os.Args[2:])

	case "probe":
		runProbe(os.Args[2:])

	case "show":
		showSnapshot(os.Args[2:])

	case "warm":
		runWarm(os.Args[2:])

	default:
		printUsage()
	}
}

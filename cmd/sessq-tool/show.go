// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sessq/sessq-go/pkg/session"
)

// showSnapshot for the "show" CLI option.
func showSnapshot(args []string) {
	if len(args) != 1 {
		printUsage()
	}

	var (
		input = args[0]

		err error
		f   io.ReadCloser
	)

	if input == "-" {
		f = os.Stdin
	} else if f, err = os.Open(input); err != nil {
		printFatal(err, "Opening file for reading errored")
	}

	s := session.OpenFallback(nil)
	defer s.Close()

	if err = s.ImportCache(f); err != nil {
		printFatal(err, "Unmarshaling snapshot errored")
	}
	if err = f.Close(); err != nil {
		printFatal(err, "Closing file errored")
	}

	for _, record := range s.CacheRecords() {
		fmt.Printf("%s\n", record.ServerName)
		fmt.Printf("  version:      0x%08x\n", record.Version)
		fmt.Printf("  max data:     %d\n", record.Parameters.InitialMaxData)
		fmt.Printf("  idle timeout: %d ms\n", record.Parameters.MaxIdleTimeoutMs)
		fmt.Printf("  migration:    %t\n", !record.Parameters.DisableActiveMigration)
	}
}

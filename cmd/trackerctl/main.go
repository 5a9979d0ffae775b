// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Command trackerctl is the operator CLI for offline work on progress
// documents and tarkov.dev payloads: merging two exports of a user's
// progress, running the consistency repairs against saved reference data,
// applying an overlay to a payload and minting development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

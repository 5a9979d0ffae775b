// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package supervisor runs the long-lived background workers of the tracker under
a suture v4 tree.

The tree is split into three layers so that a crash in one group restarts only
that group:

	RootSupervisor ("tarkovtracker")
	├── StorageSupervisor ("storage-layer")
	│   ├── store-gc
	│   ├── edgecache-write-behind
	│   ├── edgecache-memory-cleanup (in-memory backend only)
	│   └── debounce-flusher
	├── SyncSupervisor ("sync-layer")
	│   ├── overlay-refresher
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Every worker implements suture.Service directly (Serve(ctx) error plus a
String method for event logs). Supervisor events are routed through
sutureslog into the zerolog stream via logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddStorageService(db)
	tree.AddSyncService(hub)
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor

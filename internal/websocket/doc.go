// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package websocket pushes live team updates to connected browsers.

Each connection belongs to an authenticated user. When a user's progress is
persisted, the Hub delivers a progress_updated message to every connection
of that user's teammates and to the user's own other sessions. Membership
changes are delivered as team_changed messages to the team's members.

The Hub runs as a suture service:

	hub := websocket.NewHub(teamService)
	supervisor.Add(hub)

Connections are upgraded by the API layer and handed over with:

	hub.Attach(websocket.NewClient(hub, conn, userID))

Slow clients whose send buffer fills are dropped rather than blocking the
hub.
*/
package websocket

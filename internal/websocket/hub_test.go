// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tarkovtracker/internal/progress"
)

type staticTeams map[string][]string

func (s staticTeams) Teammates(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

// startHub runs a hub and an upgrade endpoint taking the user id from the
// query string.
func startHub(t *testing.T, teams TeamLookup) (*Hub, string, context.CancelFunc) {
	t.Helper()
	hub := NewHub(teams)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if !hub.Attach(NewClient(hub, conn, r.URL.Query().Get("user"))) {
			_ = conn.Close()
		}
	}))

	stop := func() {
		cancel()
		<-done
		srv.Close()
	}
	t.Cleanup(stop)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, hub *Hub, base, user string) *websocket.Conn {
	t.Helper()
	before := hub.UserConnections(user)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?user="+user, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	waitFor(t, func() bool { return hub.UserConnections(user) > before })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) (map[string]any, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg map[string]any
	err := conn.ReadJSON(&msg)
	return msg, err
}

func TestHub_ProgressUpdatedReachesTeammates(t *testing.T) {
	teams := staticTeams{"alice": {"bob"}, "bob": {"alice"}}
	hub, base, _ := startHub(t, teams)

	bob := dial(t, hub, base, "bob")
	carol := dial(t, hub, base, "carol")

	state := progress.NewUserState()
	state.PvP.Level = 42
	hub.ProgressUpdated(context.Background(), "alice", state)

	msg, err := readMessage(t, bob)
	if err != nil {
		t.Fatalf("bob read: %v", err)
	}
	if msg["type"] != MessageTypeProgressUpdated {
		t.Errorf("type = %v", msg["type"])
	}
	data, _ := msg["data"].(map[string]any)
	if data["userId"] != "alice" {
		t.Errorf("data = %v", data)
	}

	if _, err := readMessage(t, carol); err == nil {
		t.Error("non-teammate received an update")
	}
}

func TestHub_TeamChangedAndPing(t *testing.T) {
	hub, base, _ := startHub(t, nil)
	alice := dial(t, hub, base, "alice")

	hub.TeamChanged(context.Background(), "team-1", []string{"bob"}, []string{"alice", "bob"})
	msg, err := readMessage(t, alice)
	if err != nil || msg["type"] != MessageTypeTeamChanged {
		t.Fatalf("team_changed = %v, %v", msg, err)
	}

	if err := alice.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	msg, err = readMessage(t, alice)
	if err != nil || msg["type"] != MessageTypePong {
		t.Fatalf("pong = %v, %v", msg, err)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, base, _ := startHub(t, nil)
	conn := dial(t, hub, base, "alice")
	if hub.GetClientCount() != 1 {
		t.Fatalf("clients = %d", hub.GetClientCount())
	}
	_ = conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, base, cancel := startHub(t, nil)
	conn := dial(t, hub, base, "alice")

	cancel()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestHub_String(t *testing.T) {
	if NewHub(nil).String() != "websocket-hub" {
		t.Error("unexpected service name")
	}
}

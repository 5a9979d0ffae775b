// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
	"github.com/tomtom215/tarkovtracker/internal/progress"
)

// Message types for WebSocket communication
const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeProgressUpdated = "progress_updated"
	MessageTypeTeamChanged     = "team_changed"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProgressUpdatedData is the payload of a progress_updated message.
type ProgressUpdatedData struct {
	UserID    string             `json:"userId"`
	State     progress.UserState `json:"state"`
	Timestamp string             `json:"timestamp"`
}

// TeamChangedData is the payload of a team_changed message.
type TeamChangedData struct {
	TeamID  string   `json:"teamId"`
	Members []string `json:"members"`
}

// TeamLookup resolves a user's teammates.
type TeamLookup interface {
	Teammates(ctx context.Context, userID string) ([]string, error)
}

type delivery struct {
	recipients []string
	message    Message
}

// Hub maintains the set of active clients and routes messages to users.
type Hub struct {
	teams TeamLookup

	clients    map[*Client]bool
	byUser     map[string]map[*Client]struct{}
	deliveries chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	done     chan struct{}
	doneOnce sync.Once

	log zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(teams TeamLookup) *Hub {
	return &Hub{
		teams:      teams,
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]struct{}),
		deliveries: make(chan delivery, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.WithComponent("websocket-hub"),
	}
}

// Attach registers c and starts its pumps. It returns false once the hub
// has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		c.Start()
		return true
	case <-h.done:
		return false
	}
}

// Serve runs the hub until ctx is canceled, then closes every client.
// Lifecycle events are handled before deliveries so a delivery never
// targets a client the hub has not seen yet.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	set := h.byUser[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.byUser[c.userID] = set
	}
	set[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.log.Debug().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.log.Debug().Int("total_clients", total).Msg("websocket client disconnected")
}

// removeLocked closes c's send channel once. Callers hold mu.
func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if set := h.byUser[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	close(c.send)
}

// deliver sends to every connection of every recipient in client id order.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	seen := make(map[string]struct{}, len(d.recipients))
	for _, userID := range d.recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		for c := range h.byUser[userID] {
			targets = append(targets, c)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	for _, c := range targets {
		select {
		case c.send <- d.message:
			metrics.WSMessagesSent.Inc()
		default:
			h.removeLocked(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	h.log.Info().Int("clients_closed", n).Msg("websocket hub stopped")
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliveries <- d:
	default:
		h.log.Warn().Str("message_type", d.message.Type).Msg("delivery channel full, dropping message")
	}
}

// ProgressUpdated implements progress.Notifier.
func (h *Hub) ProgressUpdated(ctx context.Context, userID string, state progress.UserState) {
	recipients := []string{userID}
	if h.teams != nil {
		mates, err := h.teams.Teammates(ctx, userID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Teammate lookup failed, notifying own sessions only")
		}
		recipients = append(recipients, mates...)
	}
	h.enqueue(delivery{
		recipients: recipients,
		message: Message{
			Type: MessageTypeProgressUpdated,
			Data: ProgressUpdatedData{
				UserID:    userID,
				State:     state,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}

// TeamChanged implements team.Listener.
func (h *Hub) TeamChanged(_ context.Context, teamID string, members, affected []string) {
	h.enqueue(delivery{
		recipients: affected,
		message:    Message{Type: MessageTypeTeamChanged, Data: TeamChangedData{TeamID: teamID, Members: members}},
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserConnections returns the number of connections userID holds.
func (h *Hub) UserConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

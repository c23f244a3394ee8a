// Package realtime fans out live updates to WebSocket subscribers grouped in rooms.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/nhsf/dharmic-games/metrics"
)

const (
	RoomMatches     = "matches"
	RoomLeaderboard = "leaderboard"
	RoomCheckIns    = "checkins"
)

const (
	TypeMatchCreated       = "MATCH_CREATED"
	TypeMatchUpdated       = "MATCH_UPDATED"
	TypeMatchDeleted       = "MATCH_DELETED"
	TypeLeaderboardUpdated = "LEADERBOARD_UPDATED"
	TypePlayerCheckedIn    = "PLAYER_CHECKED_IN"
	TypeBracketGenerated   = "BRACKET_GENERATED"
	TypeTournamentDeleted  = "TOURNAMENT_DELETED"
)

var tournamentRoomPattern = regexp.MustCompile(`^tournament_[1-9][0-9]*$`)

func TournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// ValidRoom reports whether clients may subscribe to the room.
func ValidRoom(room string) bool {
	switch room {
	case RoomMatches, RoomLeaderboard, RoomCheckIns:
		return true
	}
	return tournamentRoomPattern.MatchString(room)
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Publisher is what the services need to announce changes.
type Publisher interface {
	Publish(msgType string, payload interface{}, rooms ...string)
}

type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}, ...string) {}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms    map[string]map[*Client]bool
	clients  int
	done     chan struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func NewHub(logger *slog.Logger, recorder *metrics.Recorder) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
		recorder:   recorder,
	}
}

// Run owns room membership until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.clients++
			total := len(h.rooms[client.Room])
			h.mu.Unlock()
			h.recorder.SetWebSocketClients(h.ClientCount(""))
			h.logger.Debug("client registered", slog.String("room", client.Room), slog.Int("room_clients", total))

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok && roomClients[client] {
				close(client.Send)
				delete(roomClients, client)
				h.clients--
				if len(roomClients) == 0 {
					delete(h.rooms, client.Room)
				}
			}
			h.mu.Unlock()
			h.recorder.SetWebSocketClients(h.ClientCount(""))
			h.logger.Debug("client unregistered", slog.String("room", client.Room))
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, roomClients := range h.rooms {
		for client := range roomClients {
			close(client.Send)
		}
		delete(h.rooms, room)
	}
	h.clients = 0
	h.recorder.SetWebSocketClients(0)
}

// ClientCount returns the clients in room, or in all rooms when room is empty.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room == "" {
		return h.clients
	}
	return len(h.rooms[room])
}

// BroadcastToRoom sends message to every client in the room. Slow clients whose
// buffer is full miss the message rather than block the caller.
func (h *Hub) BroadcastToRoom(roomID string, message Message) {
	message.RoomID = roomID
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal realtime message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("client send buffer full, dropping message", slog.String("room", roomID), slog.String("type", message.Type))
		}
	}
}

func (h *Hub) Publish(msgType string, payload interface{}, rooms ...string) {
	h.recorder.RecordBroadcast(msgType)
	for _, room := range rooms {
		h.BroadcastToRoom(room, Message{Type: msgType, Payload: payload})
	}
}

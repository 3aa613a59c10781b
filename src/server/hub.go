package server

import (
	"encoding/json"
	"net/http"

	"crypto-tracker/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int32(len(s.clients)))

			// Send full initial state on connect
			client.send <- s.initialState()

		case client := <-s.resend:
			if _, ok := s.clients[client]; ok {
				select {
				case client.send <- s.initialState():
				default:
				}
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connections.Store(int32(len(s.clients)))
			}

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumers are dropped so the hub never blocks
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.connections.Store(int32(len(s.clients)))

		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(0)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues state for every connected client
func (s *DashboardServer) Broadcast(state *models.MTrackerState) {
	if state == nil {
		return
	}
	state.Type = "UPDATE"

	select {
	case s.broadcast <- state:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------

// LatestState is the last state pushed to clients, nil before the first push
func (s *DashboardServer) LatestState() *models.MTrackerState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestState
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) initialState() *models.MTrackerState {
	state := s.Tracker.Snapshot()
	state.Type = "INITIAL"
	return state
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MTrackerState, 256),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MAssetCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Warning("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "add":
		s.Tracker.AddAsset(cmd.Symbol)
	case "remove":
		s.Tracker.RemoveAsset(cmd.Symbol)
	case "subscribe":
		// The hub owns client.send, so the reply goes through it
		select {
		case s.resend <- client:
		case <-s.quit:
		}
	default:
		s.Logger.Debug("Ignoring unknown command %q", cmd.Command)
	}
}

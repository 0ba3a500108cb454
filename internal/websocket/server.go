package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/meetscribe/server/pkg/logger"
)

// Message types for the speech streaming channel
const (
	MessageTypeSessionUpdate    = "session_update"    // Client sets room/participant/format
	MessageTypeSessionAck       = "session_ack"       // Server confirms the session state
	MessageTypeAudioAck         = "audio_ack"         // Server acknowledges an audio chunk
	MessageTypeTranscriptStored = "transcript_stored" // Server announces stored segments
	MessageTypeError            = "error"             // Server reports a per-frame problem
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Session is the streaming state one client has negotiated. Each
// connection carries its own session; it is never shared between
// clients.
type Session struct {
	RoomID      string `json:"room_id"`
	Participant string `json:"participant"`
	Format      string `json:"format"`
}

// Client represents a WebSocket client
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	session   *Session // Streaming state for this client
}

// Server represents a WebSocket server
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: logger.Named("web-socket"),
	}
}

// Run starts the WebSocket server
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				// Mark client as closed first to prevent new messages
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				// Then close the channel
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				// Check if client is still valid before sending
				client.mu.Lock()
				if client.closed {
					clientsToRemove = append(clientsToRemove, client)
					client.mu.Unlock()
					continue
				}
				client.mu.Unlock()

				// Room-scoped messages only go to clients in that room
				if !s.shouldSendToClient(client, message) {
					continue
				}

				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Channel is full, mark for removal
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			// Clean up failed clients
			if len(clientsToRemove) > 0 {
				s.mu.Lock()
				for _, client := range clientsToRemove {
					if _, ok := s.clients[client]; ok {
						delete(s.clients, client)
						client.mu.Lock()
						if !client.closed {
							client.closed = true
							close(client.send)
						}
						client.mu.Unlock()
					}
				}
				s.mu.Unlock()
			}
		}
	}
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Handling new WebSocket connection request",
		String("remote_addr", r.RemoteAddr),
		String("user_agent", r.UserAgent()))

	// Upgrade HTTP connection to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	// Create client
	client := &Client{
		conn:      conn,
		send:      make(chan *Message, 256),
		server:    s,
		closeChan: make(chan struct{}),
	}

	// Register client
	s.register <- client

	// Start client goroutines
	go client.readPump()
	go client.writePump()
}

// Broadcast sends a message to all connected clients whose session
// matches the message's room scope
func (s *Server) Broadcast(message *Message) {
	s.logger.Debug("Broadcasting message", String("message_type", message.Type))
	s.broadcast <- message
}

// BroadcastTranscriptStored announces newly stored segments to the
// clients streaming in the same room
func (s *Server) BroadcastTranscriptStored(roomID, participant string, segmentCount int) {
	s.Broadcast(&Message{
		Type: MessageTypeTranscriptStored,
		Data: map[string]any{
			"room_id":     roomID,
			"participant": participant,
			"segments":    segmentCount,
		},
	})
}

// readPump pumps frames from the WebSocket connection: JSON text
// frames update the client's session, binary frames are audio chunks
// governed by the last session state
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()

		c.server.unregister <- c
		c.conn.Close()
	}()

	for {
		// Check if client is closed
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		frameType, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", Error(err))
			}
			break
		}

		switch frameType {
		case websocket.TextMessage:
			c.handleSessionFrame(frameBytes)
		case websocket.BinaryMessage:
			c.handleAudioFrame(frameBytes)
		}
	}
}

// handleSessionFrame applies a JSON metadata frame to this client's session
func (c *Client) handleSessionFrame(frameBytes []byte) {
	var message struct {
		Type string  `json:"type"`
		Data Session `json:"data"`
	}
	if err := json.Unmarshal(frameBytes, &message); err != nil {
		c.server.logger.Error("Failed to parse WebSocket message", Error(err))
		c.SendMessage(&Message{
			Type: MessageTypeError,
			Data: map[string]any{"error": "invalid session frame"},
		})
		return
	}

	if message.Type != MessageTypeSessionUpdate {
		c.SendMessage(&Message{
			Type: MessageTypeError,
			Data: map[string]any{"error": "unknown message type: " + message.Type},
		})
		return
	}

	c.UpdateSession(&message.Data)

	c.server.logger.Debug("Session updated",
		String("room_id", message.Data.RoomID),
		String("participant", message.Data.Participant))

	c.SendMessage(&Message{
		Type: MessageTypeSessionAck,
		Data: map[string]any{
			"room_id":     message.Data.RoomID,
			"participant": message.Data.Participant,
			"format":      message.Data.Format,
		},
	})
}

// handleAudioFrame acknowledges a binary audio chunk under the
// client's current session
func (c *Client) handleAudioFrame(chunk []byte) {
	session := c.GetSession()
	if session == nil {
		c.SendMessage(&Message{
			Type: MessageTypeError,
			Data: map[string]any{"error": "no session established; send a session_update frame first"},
		})
		return
	}

	c.SendMessage(&Message{
		Type: MessageTypeAudioAck,
		Data: map[string]any{
			"room_id": session.RoomID,
			"bytes":   len(chunk),
		},
	})
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.mu.Unlock()
				return
			}

			// Marshal message to JSON
			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", Error(err))
				c.mu.Unlock()
				continue
			}

			w.Write(data)

			// Close writer
			if err := w.Close(); err != nil {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if client is closed
	if c.closed {
		return false
	}

	// Try to send message with non-blocking select
	select {
	case c.send <- message:
		return true
	default:
		// Channel is full, drop message
		return false
	}
}

// UpdateSession replaces the client's streaming session state
func (c *Client) UpdateSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// GetSession returns a copy of the client's current session
func (c *Client) GetSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	sessionCopy := *c.session
	return &sessionCopy
}

// shouldSendToClient determines if a message should reach a specific
// client. Messages carrying a room_id only go to clients whose session
// is in that room; everything else goes to everyone.
func (s *Server) shouldSendToClient(client *Client, message *Message) bool {
	roomID, ok := message.Data["room_id"].(string)
	if !ok || roomID == "" {
		return true
	}

	session := client.GetSession()
	if session == nil {
		return false
	}
	return session.RoomID == roomID
}

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

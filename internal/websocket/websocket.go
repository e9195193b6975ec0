package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
)

// Transport is the label this package reports to a Tracker
const Transport = "websocket"

// Message types sent to clients
const (
	TypeSnapshot = "snapshot"
	TypeDeleted  = "deleted"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256

	// latestRetention bounds how long the last change of an event with no
	// connected clients is remembered for clients still registering
	latestRetention = time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is wildcard for the whole API
	},
}

// Snapshotter reads the current push state of an event
type Snapshotter interface {
	Snapshot(ctx context.Context, id string) (models.Snapshot, error)
}

// Tracker is told when a push connection opens and closes
type Tracker interface {
	StreamOpened(transport string)
	StreamClosed(transport string)
}

// Hub keeps one room of clients per event and delivers each event's changes to its room
type Hub struct {
	log        logger.Logger
	source     Snapshotter
	tracker    Tracker
	rooms      map[string]map[*Client]bool
	latest     map[string]latestChange
	retain     time.Duration
	broadcast  chan models.Change
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

// latestChange is the last change delivered for an event
type latestChange struct {
	change models.Change
	at     time.Time
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	eventID string
	initial models.Snapshot
	send    chan models.WSMessage
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, source Snapshotter) *Hub {
	return &Hub{
		log:        log,
		source:     source,
		rooms:      make(map[string]map[*Client]bool),
		latest:     make(map[string]latestChange),
		retain:     latestRetention,
		broadcast:  make(chan models.Change),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetTracker sets the tracker notified about open connections
func (h *Hub) SetTracker(t Tracker) {
	h.tracker = t
}

// Start begins the hub's main loop in a goroutine. The loop ends with ctx,
// disconnecting every client.
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

// run handles client registration/unregistration and change delivery
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	prune := time.NewTicker(h.retain)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Debug("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case change := <-h.broadcast:
			h.deliver(change)

		case now := <-prune.C:
			h.pruneLatest(now)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	snap := c.initial
	if entry, ok := h.latest[c.eventID]; ok {
		last := entry.change
		if last.Deleted {
			c.send <- deletedMessage(last)
			close(c.send)
			return
		}
		if last.Version > snap.Version {
			snap = last.Snapshot()
		}
	}
	c.send <- models.WSMessage{Type: TypeSnapshot, Payload: snap}

	h.mutex.Lock()
	room := h.rooms[c.eventID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[c.eventID] = room
	}
	room[c] = true
	h.mutex.Unlock()

	if h.tracker != nil {
		h.tracker.StreamOpened(Transport)
	}
	h.log.Debug("Client connected", "event_id", c.eventID, "room_clients", len(room))
}

func (h *Hub) removeClient(c *Client) {
	h.mutex.Lock()
	room := h.rooms[c.eventID]
	_, ok := room[c]
	if ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.eventID)
		}
		close(c.send)
	}
	h.mutex.Unlock()

	if ok {
		if h.tracker != nil {
			h.tracker.StreamClosed(Transport)
		}
		h.log.Debug("Client disconnected", "event_id", c.eventID)
	}
}

func (h *Hub) deliver(change models.Change) {
	h.latest[change.EventID] = latestChange{change: change, at: time.Now()}

	h.mutex.RLock()
	var members []*Client
	for c := range h.rooms[change.EventID] {
		members = append(members, c)
	}
	h.mutex.RUnlock()

	msg := models.WSMessage{Type: TypeSnapshot, Payload: change.Snapshot()}
	if change.Deleted {
		msg = deletedMessage(change)
	}

	for _, c := range members {
		select {
		case c.send <- msg:
			if change.Deleted {
				h.removeClient(c)
			}
		default:
			// Client's send buffer is full, drop it
			h.log.Warn("Dropping slow websocket client", "event_id", c.eventID)
			h.removeClient(c)
		}
	}
}

// pruneLatest forgets changes older than the retention window for events
// with no connected clients
func (h *Hub) pruneLatest(now time.Time) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for id, entry := range h.latest {
		if now.Sub(entry.at) < h.retain || len(h.rooms[id]) > 0 {
			continue
		}
		delete(h.latest, id)
	}
}

func (h *Hub) closeAll() {
	h.mutex.RLock()
	var all []*Client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range all {
		h.removeClient(c)
	}
}

func deletedMessage(change models.Change) models.WSMessage {
	return models.WSMessage{Type: TypeDeleted, Payload: change}
}

// BroadcastChange implements services.Broadcaster
func (h *Hub) BroadcastChange(change models.Change) {
	select {
	case h.broadcast <- change:
	case <-h.done:
	}
}

// RoomSize returns the number of clients connected for eventID
func (h *Hub) RoomSize(eventID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[eventID])
}

// readPump keeps the connection's read deadline alive and notices disconnects.
// Clients have nothing to say; inbound messages are logged and dropped.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Ignoring client message", "event_id", c.eventID, "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
// Snapshots older than one already written are skipped.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	sent := -1
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if snap, isSnap := message.Payload.(models.Snapshot); isSnap {
				if snap.Version <= sent {
					continue
				}
				sent = snap.Version
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode websocket message", "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and joins the client to eventID's room.
// If the event cannot be read the request is left untouched and the error returned.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, eventID string) error {
	snap, err := h.source.Snapshot(r.Context(), eventID)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.log.Error("WebSocket upgrade error", "error", err)
		return nil
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		eventID: eventID,
		initial: snap,
		send:    make(chan models.WSMessage, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

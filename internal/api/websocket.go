package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

// Message types on the panel socket.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	wsSendBufferSize = 256
)

// Channels a panel can subscribe to.
const (
	ChannelAlarmRaised       = string(alarm.EventRaised)
	ChannelAlarmCleared      = string(alarm.EventCleared)
	ChannelPointChanged      = "point.changed"
	ChannelStatisticsUpdated = "statistics.updated"
)

var knownChannels = map[string]bool{
	ChannelAlarmRaised:       true,
	ChannelAlarmCleared:      true,
	ChannelPointChanged:      true,
	ChannelStatisticsUpdated: true,
}

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload carries the channel list of subscribe/unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// inbound is WSMessage as read from a panel, with the payload left raw.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans machine events out to connected panels. Slow panels drop
// frames instead of stalling the dispatcher.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected panel.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}
	closed        bool

	username string
	role     auth.Role
}

var _ alarm.Handler = (*Hub)(nil)

// Origin checks are done by the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every panel.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Register adds a panel.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("panel connected", "username", c.username, "clients", n)
}

// Unregister removes a panel and closes its send queue. Repeated calls
// are harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.shutdown()
	h.logger.Debug("panel disconnected", "username", c.username, "clients", n)
}

// ClientCount returns the number of connected panels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload to every panel subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding broadcast", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.isSubscribed(channel) {
			continue
		}
		if !c.enqueue(data) {
			h.logger.Warn("panel too slow, frame dropped", "username", c.username, "channel", channel)
		}
	}
}

// HandleEvent broadcasts an alarm edge on the channel named after it.
func (h *Hub) HandleEvent(_ context.Context, ev alarm.Event) error {
	h.Broadcast(string(ev.Type), ev)
	return nil
}

// PublishChanges broadcasts a batch of point changes.
func (h *Hub) PublishChanges(changes []points.Change) {
	if len(changes) == 0 {
		return
	}
	h.Broadcast(ChannelPointChanged, map[string]any{"changes": changes})
}

// PublishStatistics broadcasts the latest counters with derived ratios.
func (h *Hub) PublishStatistics(st points.Statistics) {
	h.Broadcast(ChannelStatisticsUpdated, map[string]any{
		"statistics":   st,
		"availability": st.Availability(),
		"yield":        st.Yield(),
	})
}

func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}

// handleWebSocket upgrades a request that carries a one-shot ticket from
// POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		username:      entry.username,
		role:          entry.role,
	}
	s.hub.Register(c)

	t := newPumpTimings(s.wsCfg)
	go c.writePump(t)
	go c.readPump(t, int64(s.wsCfg.MaxMessageSize))
}

type pumpTimings struct {
	ping     time.Duration
	deadline time.Duration // read deadline after any frame
	write    time.Duration
}

func newPumpTimings(cfg config.WebSocketConfig) pumpTimings {
	ping := time.Duration(cfg.PingInterval) * time.Second
	pong := time.Duration(cfg.PongTimeout) * time.Second
	return pumpTimings{ping: ping, deadline: ping + pong, write: pong}
}

func (c *WSClient) readPump(t pumpTimings, limit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(limit)
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(t.deadline)) }
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("panel read error", "username", c.username, "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any frame counts.
		_ = extend()
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump(t pumpTimings) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline shows up as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.write))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, errorBody("invalid JSON message"))
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.subscribe(msg)
	case WSTypeUnsubscribe:
		c.unsubscribe(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, errorBody("unknown message type: "+msg.Type))
	}
}

func decodeChannels(raw json.RawMessage) ([]string, bool) {
	var p WSSubscribePayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return nil, false
	}
	return p.Channels, true
}

// subscribe is all or nothing: one unknown channel rejects the request.
func (c *WSClient) subscribe(msg inbound) {
	channels, ok := decodeChannels(msg.Payload)
	if !ok {
		c.reply(msg.ID, WSTypeError, errorBody("invalid subscribe payload"))
		return
	}
	for _, ch := range channels {
		if !knownChannels[ch] {
			c.reply(msg.ID, WSTypeError, errorBody("unknown channel: "+ch))
			return
		}
	}

	c.mu.Lock()
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Info("panel subscribed", "username", c.username, "role", c.role, "channels", channels)
	c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": channels})
}

func (c *WSClient) unsubscribe(msg inbound) {
	channels, ok := decodeChannels(msg.Payload)
	if !ok {
		c.reply(msg.ID, WSTypeError, errorBody("invalid unsubscribe payload"))
		return
	}

	c.mu.Lock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})
}

func errorBody(message string) map[string]string {
	return map[string]string{"message": message}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := encodeFrame(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue never blocks. It reports false when the frame was dropped
// because the queue is full; frames for a closed client are discarded.
func (c *WSClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// Package ws bridges the redis signal bus to WebSocket clients. The hub
// subscribes to the opportunity and prediction channels once and fans every
// payload out to the sessions subscribed to that channel.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sessionBacklog = 256
)

// bridgedChannels are the bus channels the hub forwards. New sessions start
// subscribed to all of them.
var bridgedChannels = []string{
	service.OpportunityChannel,
	service.PredictionChannel,
}

// Hub owns the WebSocket sessions and the bus subscriptions feeding them.
type Hub struct {
	bus       domain.SignalBus
	mode      string
	startedAt time.Time
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// NewHub creates a hub bridging the signal bus. mode is echoed in the
// connect-time status frame so dashboards can show what the backend runs as.
// By default any Origin may connect; narrow it with WithAllowedOrigins.
func NewHub(bus domain.SignalBus, mode string, logger *slog.Logger) *Hub {
	if mode == "" {
		mode = "unknown"
	}
	return &Hub{
		bus:       bus,
		mode:      mode,
		startedAt: time.Now().UTC(),
		logger:    logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
}

// WithAllowedOrigins restricts the upgrade handshake to the given origins.
// A "*" entry keeps the hub open to all.
func (h *Hub) WithAllowedOrigins(origins []string) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return h
		}
		allowed[strings.ToLower(o)] = true
	}
	if len(allowed) == 0 {
		return h
	}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[strings.ToLower(origin)]
	}
	return h
}

// Run subscribes to each bridged channel and forwards payloads until the
// context is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, channel := range bridgedChannels {
		wg.Add(1)
		go func(channel string) {
			defer wg.Done()
			h.bridge(ctx, channel)
		}(channel)
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	for s := range h.sessions {
		close(s.send)
		delete(h.sessions, s)
	}
	h.mu.Unlock()
	return ctx.Err()
}

// bridge pipes one bus channel into the subscribed sessions.
func (h *Hub) bridge(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("bus subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("bridging channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				h.logger.Warn("bus subscription closed", slog.String("channel", channel))
				return
			}
			h.fanOut(channel, payload)
		}
	}
}

// fanOut wraps the payload in a typed frame and queues it on every session
// subscribed to the channel. Sessions with a full backlog lose the frame
// rather than stalling the bridge.
func (h *Hub) fanOut(channel string, payload []byte) {
	frame, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: channel, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if !s.subscribed(channel) {
			continue
		}
		select {
		case s.send <- frame:
		default:
			h.logger.Warn("dropping frame for slow client", slog.String("channel", channel))
		}
	}
}

// HandleWS upgrades the request and runs the session until the peer goes
// away.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sessionBacklog),
		subs: make(map[string]bool, len(bridgedChannels)),
	}
	for _, channel := range bridgedChannels {
		s.subs[channel] = true
	}

	h.attach(s)
	s.queueStatus()

	go s.writeLoop()
	go s.readLoop()
}

func (h *Hub) attach(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	total := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("client connected", slog.Int("total_clients", total))
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.send)
	}
	total := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("client disconnected", slog.Int("total_clients", total))
}

// session is one connected WebSocket peer and its channel subscriptions.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// controlFrame is the JSON a peer sends to manage its subscriptions:
// {"action":"subscribe","channels":["opportunities"]}.
type controlFrame struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

func (s *session) subscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subs[channel]
}

// applyControl updates the subscription set from a peer control frame.
// Actions other than subscribe/unsubscribe are ignored.
func (s *session) applyControl(frame controlFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch frame.Action {
	case "subscribe":
		for _, channel := range frame.Channels {
			s.subs[channel] = true
		}
	case "unsubscribe":
		for _, channel := range frame.Channels {
			delete(s.subs, channel)
		}
	}
}

// queueStatus pushes a status frame so the peer can mark the connection
// healthy before any event flows.
func (s *session) queueStatus() {
	uptime := max(int64(time.Since(s.hub.startedAt).Seconds()), 0)
	frame, err := json.Marshal(map[string]any{
		"type": "status",
		"payload": map[string]any{
			"mode":           s.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}
	select {
	case s.send <- frame:
	default:
	}
}

// readLoop consumes peer frames, treating well-formed JSON as subscription
// control. It also services the pong deadline that keeps the session alive.
func (s *session) readLoop() {
	defer func() {
		s.hub.detach(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err == nil && frame.Action != "" {
			s.applyControl(frame)
		}
	}
}

// writeLoop drains the send queue onto the wire and pings on an interval.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

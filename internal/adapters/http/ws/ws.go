// Package ws pushes move requests to bots over a websocket and accepts their
// replies on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/codenames/internal/adapters/http/api"
	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

// Message types sent to clients.
const (
	TypeMoveRequest = "move_request"
	TypeResult      = "result"
	TypeError       = "error"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	maxMessageBytes   = 16 << 10
	outboundBuffer    = 16
	pingPeriodDivisor = 10
)

// Dependencies is what a connection needs from the arena.
type Dependencies interface {
	Authenticate(playerID, key string) error
	Touch(playerID string)
	Subscribe(playerID string) (<-chan turn.Request, func())
	Connections(playerID string) int
	Submit(ctx context.Context, gameID, playerID string, mv turn.Move) (game.Outcome, error)
	Disconnect(ctx context.Context, playerID string) error
}

// Inbound is a move sent by a client.
type Inbound struct {
	GameID string `json:"game_id"`
	turn.Move
}

// Outbound is a message sent to a client.
type Outbound struct {
	Type      string        `json:"type"`
	Request   *turn.Request `json:"request,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Outcome   *game.Outcome `json:"outcome,omitempty"`
	Code      string        `json:"code,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	deps      Dependencies
	log       logger.Logger
	upgrader  websocket.Upgrader
	writeWait time.Duration
	pongWait  time.Duration
}

// NewHandler creates a websocket handler.
func NewHandler(deps Dependencies, opts ...Option) *Handler {
	h := &Handler{
		deps:      deps,
		writeWait: defaultWriteWait,
		pongWait:  defaultPongWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("ws")
	}
	return h
}

// ServeHTTP authenticates the player and serves the connection until either
// side closes it. When the player's last connection closes it is
// disconnected.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, key := credentials(r)
	err := service.ErrUnauthorized
	if id != "" && key != "" {
		err = h.deps.Authenticate(id, key)
	}
	if err != nil {
		status, code := api.Classify(err)
		metrics.RecordHTTPRequest("ws", r.Method, strconv.Itoa(status), time.Since(start).Seconds())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(Outbound{Type: TypeError, Code: code, Message: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.String("player_id", id), logger.Error(err))
		return
	}
	metrics.RecordHTTPRequest("ws", r.Method, strconv.Itoa(http.StatusSwitchingProtocols), time.Since(start).Seconds())
	h.log.Info(r.Context(), "websocket connected", logger.String("player_id", id))

	h.serve(r.Context(), conn, id)
}

func (h *Handler) serve(parent context.Context, conn *websocket.Conn, playerID string) {
	ctx, cancel := context.WithCancel(parent)
	requests, unsubscribe := h.deps.Subscribe(playerID)
	out := make(chan Outbound, outboundBuffer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(ctx, conn, requests, out)
		// Unblocks the reader when the writer fails first.
		cancel()
		_ = conn.Close()
	}()

	h.readPump(ctx, conn, playerID, out, &wg)

	cancel()
	unsubscribe()
	wg.Wait()

	if h.deps.Connections(playerID) == 0 {
		if err := h.deps.Disconnect(context.WithoutCancel(parent), playerID); err != nil {
			h.log.Warn(parent, "disconnect failed", logger.String("player_id", playerID), logger.Error(err))
		}
	}
	h.log.Info(parent, "websocket closed", logger.String("player_id", playerID))
}

// readPump decodes client moves until the connection fails. Each move is
// submitted on its own goroutine so pongs keep flowing while it is applied.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, playerID string, out chan<- Outbound, wg *sync.WaitGroup) {
	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		h.deps.Touch(playerID)
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug(ctx, "websocket read failed", logger.String("player_id", playerID), logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			send(ctx, out, Outbound{Type: TypeError, Code: "bad_request", Message: err.Error()})
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := h.deps.Submit(ctx, in.GameID, playerID, in.Move)
			send(ctx, out, result(in.RequestID, o, err))
		}()
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, requests <-chan turn.Request, out <-chan Outbound) {
	ticker := time.NewTicker(h.pongWait * (pingPeriodDivisor - 1) / pingPeriodDivisor)
	defer ticker.Stop()

	for {
		var msg Outbound
		select {
		case <-ctx.Done():
			h.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			msg = Outbound{Type: TypeMoveRequest, Request: &req}
		case msg = <-out:
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}
		data, err := json.Marshal(msg)
		if err != nil {
			h.log.Error(ctx, "encode message", logger.Error(err))
			continue
		}
		if err := h.write(conn, websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	return conn.WriteMessage(messageType, data)
}

func send(ctx context.Context, out chan<- Outbound, msg Outbound) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

// result reports how a submitted move was applied. Illegal moves carry the
// outcome of the forfeit they caused.
func result(requestID string, o game.Outcome, err error) Outbound {
	if err == nil {
		return Outbound{Type: TypeResult, RequestID: requestID, Outcome: &o}
	}
	_, code := api.Classify(err)
	msg := Outbound{Type: TypeError, RequestID: requestID, Code: code, Message: err.Error()}
	if errors.Is(err, game.ErrValidation) {
		msg.Outcome = &o
	}
	return msg
}

func credentials(r *http.Request) (id, key string) {
	id = r.Header.Get(api.HeaderPlayerID)
	key = r.Header.Get(api.HeaderPlayerKey)
	q := r.URL.Query()
	if id == "" {
		id = q.Get("player_id")
	}
	if key == "" {
		key = q.Get("player_key")
	}
	return id, key
}

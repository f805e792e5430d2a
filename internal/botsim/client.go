package botsim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/codenames/internal/adapters/http/api"
	"github.com/okian/codenames/internal/adapters/http/ws"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/internal/domain/types"
)

// APIError is a non-2xx reply of the arena.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arena: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to the arena HTTP API as one player.
type Client struct {
	base string
	http *http.Client
	id   string
	key  string
}

// NewClient creates a client for playerID at baseURL.
func NewClient(baseURL, playerID, key string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		id:   playerID,
		key:  key,
	}
}

// PlayerID returns the player the client acts as.
func (c *Client) PlayerID() string { return c.id }

// Health checks that the arena answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

// Join enters the matchmaking pool, registering the player on first use.
func (c *Client) Join(ctx context.Context) (types.PlayerStatus, error) {
	var st types.PlayerStatus
	_, err := c.do(ctx, http.MethodPost, "/players/"+url.PathEscape(c.id)+"/join", nil, &st)
	return st, err
}

// Leave asks to leave the pool after the current game.
func (c *Client) Leave(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/players/"+url.PathEscape(c.id)+"/leave", nil, nil)
	return err
}

// Status returns the player's status.
func (c *Client) Status(ctx context.Context) (types.PlayerStatus, error) {
	var st types.PlayerStatus
	_, err := c.do(ctx, http.MethodGet, "/players/"+url.PathEscape(c.id)+"/status", nil, &st)
	return st, err
}

// PendingMove returns the request the player owes, if any.
func (c *Client) PendingMove(ctx context.Context) (turn.Request, bool, error) {
	var req turn.Request
	status, err := c.do(ctx, http.MethodGet, "/players/"+url.PathEscape(c.id)+"/move", nil, &req)
	if err != nil || status == http.StatusNoContent {
		return turn.Request{}, false, err
	}
	return req, true, nil
}

// Submit answers a move request.
func (c *Client) Submit(ctx context.Context, gameID string, mv turn.Move) error {
	path := "/games/" + url.PathEscape(gameID)
	var body any
	if mv.Kind == turn.KindClue {
		path += "/clue"
		body = map[string]any{"request_id": mv.RequestID, "word": mv.Word, "count": mv.Count}
	} else {
		path += "/guesses"
		words := mv.Words
		if words == nil {
			words = []string{}
		}
		body = map[string]any{"request_id": mv.RequestID, "words": words}
	}
	_, err := c.do(ctx, http.MethodPost, path, body, nil)
	return err
}

// Dial opens the push connection of the player.
func (c *Client) Dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.base + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := http.Header{}
	header.Set(api.HeaderPlayerID, c.id)
	header.Set(api.HeaderPlayerKey, c.key)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}

// SendMove writes mv for gameID on a push connection.
func SendMove(conn *websocket.Conn, gameID string, mv turn.Move) error {
	return conn.WriteJSON(ws.Inbound{GameID: gameID, Move: mv})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.HeaderPlayerID, c.id)
	req.Header.Set(api.HeaderPlayerKey, c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return resp.StatusCode, apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

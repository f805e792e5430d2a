// Package mailbox connects the turn coordinator to players that reach the
// arena over HTTP or websockets. The coordinator posts a request into the
// player's slot; the player either polls for it or has it pushed, and its
// reply is delivered back into the slot.
package mailbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/codenames/internal/domain/dedupe"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

type result struct {
	out game.Outcome
	err error
}

type slot struct {
	req    turn.Request
	reply  chan turn.Move
	result chan result
}

type subscriber struct {
	id int
	ch chan turn.Request
}

// Mailbox is a turn.Mover and turn.Settler backed by one slot per player.
type Mailbox struct {
	mu       sync.Mutex
	pending  map[string]*slot // by player id, awaiting a reply
	inflight map[string]*slot // by request id, awaiting settlement
	subs     map[string][]subscriber
	nextSub  int

	seen dedupe.Deduper
	log  logger.Logger
}

// New creates an empty Mailbox.
func New(opts ...Option) *Mailbox {
	m := &Mailbox{
		pending:  make(map[string]*slot),
		inflight: make(map[string]*slot),
		subs:     make(map[string][]subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.seen == nil {
		m.seen = dedupe.NewInMemoryDeduper()
	}
	if m.log == nil {
		m.log = logger.Get().Named("mailbox")
	}
	return m
}

// RequestMove posts req and waits for the player's reply or ctx.
func (m *Mailbox) RequestMove(ctx context.Context, req turn.Request) (turn.Move, error) {
	s := &slot{
		req:    req,
		reply:  make(chan turn.Move, 1),
		result: make(chan result, 1),
	}

	m.mu.Lock()
	m.pending[req.PlayerID] = s
	m.inflight[req.ID] = s
	m.notifyLocked(req)
	m.mu.Unlock()

	select {
	case mv := <-s.reply:
		return mv, nil
	case <-ctx.Done():
		m.mu.Lock()
		if m.pending[req.PlayerID] == s {
			delete(m.pending, req.PlayerID)
		}
		m.mu.Unlock()
		m.seen.SeenAndRecord(ctx, req.ID)
		return turn.Move{}, ctx.Err()
	}
}

// Settle hands the result of req to the Deliver call that answered it. After
// Settle no reply to req is accepted.
func (m *Mailbox) Settle(req turn.Request, out game.Outcome, err error) {
	m.mu.Lock()
	s, ok := m.inflight[req.ID]
	delete(m.inflight, req.ID)
	if m.pending[req.PlayerID] == s {
		delete(m.pending, req.PlayerID)
	}
	m.mu.Unlock()
	m.seen.SeenAndRecord(context.Background(), req.ID)
	if !ok {
		return
	}
	s.result <- result{out: out, err: err}
}

// Deliver answers the pending request of playerID in gameID with mv and waits
// until the move has been applied. The returned error is the game's verdict on
// the move, such as an illegal clue, or a reason the reply was not accepted.
func (m *Mailbox) Deliver(ctx context.Context, gameID, playerID string, mv turn.Move) (game.Outcome, error) {
	if mv.RequestID != "" && m.seen.Seen(ctx, mv.RequestID) {
		metrics.RecordLateReply()
		return game.Outcome{}, fmt.Errorf("%w: %s", ErrStaleRequest, mv.RequestID)
	}

	m.mu.Lock()
	s, ok := m.pending[playerID]
	if !ok || s.req.GameID != gameID {
		m.mu.Unlock()
		return game.Outcome{}, ErrNoPendingMove
	}
	if mv.RequestID != "" && mv.RequestID != s.req.ID {
		m.mu.Unlock()
		metrics.RecordLateReply()
		return game.Outcome{}, fmt.Errorf("%w: %s", ErrStaleRequest, mv.RequestID)
	}
	if mv.Kind != s.req.Kind {
		m.mu.Unlock()
		return game.Outcome{}, fmt.Errorf("%w: expected %s", ErrWrongKind, s.req.Kind)
	}
	delete(m.pending, playerID)
	m.seen.SeenAndRecord(ctx, s.req.ID)
	mv.RequestID = s.req.ID
	s.reply <- mv
	m.mu.Unlock()

	select {
	case r := <-s.result:
		return r.out, r.err
	case <-ctx.Done():
		return game.Outcome{}, ctx.Err()
	}
}

// Pending returns the request playerID is expected to answer, if any.
func (m *Mailbox) Pending(playerID string) (turn.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.pending[playerID]
	if !ok {
		return turn.Request{}, false
	}
	return s.req, true
}

// Subscribe pushes every new request for playerID to the returned channel,
// starting with the one pending now. A subscriber that falls behind misses
// requests; it can still poll Pending.
func (m *Mailbox) Subscribe(playerID string) (<-chan turn.Request, func()) {
	ch := make(chan turn.Request, subscriberBuffer)

	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[playerID] = append(m.subs[playerID], subscriber{id: id, ch: ch})
	if s, ok := m.pending[playerID]; ok {
		ch <- s.req
	}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subs := m.subs[playerID]
			for i, sub := range subs {
				if sub.id == id {
					m.subs[playerID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(m.subs[playerID]) == 0 {
				delete(m.subs, playerID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns how many push connections playerID has.
func (m *Mailbox) Subscribers(playerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[playerID])
}

func (m *Mailbox) notifyLocked(req turn.Request) {
	for _, sub := range m.subs[req.PlayerID] {
		select {
		case sub.ch <- req:
		default:
			m.log.Warn(context.Background(), "subscriber behind, request not pushed",
				logger.String("player_id", req.PlayerID),
				logger.String("request_id", req.ID),
			)
		}
	}
}

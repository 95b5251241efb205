// Package ws attaches websocket clients to rooms. The reader goroutine is the
// only place external collaborators are called: it validates with the room,
// calls out with a bounded context, then commits, so the room actor never
// waits on a network dependency.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/conndir"
	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/internal/registry"
	"github.com/classified-intel/backend/internal/room"
	"github.com/classified-intel/backend/pkg/types"
)

const (
	writeTimeout   = 3 * time.Second
	outboxSize     = 32
	messagesPerSec = 5
	messageBurst   = 10
)

type Handler struct {
	Registry *registry.Registry
	Dir      *conndir.Directory
	Search   collab.Searcher
	Redact   collab.Redactor
	Verify   collab.Verifier
	Log      *zap.Logger

	SearchLimit   int
	TopicChoices  int
	CollabTimeout time.Duration
}

// session is one live websocket. Writes are serialized with a mutex because
// both the outbox drainer and the reader's direct replies use it.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, payload)
}

// Kick closes a superseded connection; the reconnecting channel has already
// taken over in the directory.
func (s *session) Kick(reason string) {
	_ = s.conn.Close(websocket.StatusPolicyViolation, reason)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	// An empty name is fine; the room hands out a handle.
	name := r.URL.Query().Get("name")
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		playerID = uuid.NewString()
	}

	rm, err := h.Registry.GetByCode(r.Context(), code)
	if err != nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	sess := &session{conn: conn}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx := r.Context()

	// Join is idempotent by player id, so this is also the reconnect path.
	if _, err := rm.Join(ctx, playerID, name, false); err != nil {
		_ = sess.write(ctx, errorMessage(err))
		return
	}

	out := make(chan types.ServerMessage, outboxSize)
	if err := rm.Attach(ctx, playerID, out); err != nil {
		_ = sess.write(ctx, errorMessage(err))
		return
	}
	if prev := h.Dir.Bind(playerID, sess); prev != nil {
		prev.Kick("superseded by reconnect")
	}
	defer func() {
		h.Dir.Unbind(sess)
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rm.Detach(dctx, playerID, out)
	}()

	// Drain the room's outbox onto the socket until the room closes it.
	go func() {
		for msg := range out {
			if err := sess.write(context.Background(), msg); err != nil {
				// Keep draining so the room never sees backpressure
				// from a dead socket; the reader exiting handles
				// the detach.
				continue
			}
		}
		conn.Close(websocket.StatusGoingAway, "room closed")
	}()

	h.readLoop(ctx, rm, sess, playerID)
}

func (h *Handler) readLoop(ctx context.Context, rm *room.Room, sess *session, playerID string) {
	limiter := rate.NewLimiter(rate.Limit(messagesPerSec), messageBurst)

	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			return
		}
		if !limiter.Allow() {
			_ = sess.write(ctx, types.ServerMessage{Type: types.ServerError, Error: "slow down"})
			continue
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			_ = sess.write(ctx, types.ServerMessage{Type: types.ServerError, Error: "bad json"})
			continue
		}

		leave, err := h.dispatch(ctx, rm, sess, playerID, cm)
		if err != nil {
			_ = sess.write(ctx, errorMessage(err))
		}
		if leave {
			return
		}
	}
}

// dispatch routes one client message. It returns leave=true when the client
// asked to go and the connection should close.
func (h *Handler) dispatch(ctx context.Context, rm *room.Room, sess *session, playerID string, cm types.ClientMessage) (leave bool, err error) {
	switch cm.Type {
	case types.ClientStartGame:
		return false, rm.Start(ctx, playerID, engine.GameConfig{
			Difficulty:   cm.Difficulty,
			RoundCount:   cm.RoundCount,
			RoundSeconds: cm.RoundSeconds,
		})

	case types.ClientTopicOptions:
		count := cm.Count
		if count <= 0 {
			count = h.TopicChoices
		}
		options, err := rm.TopicOptions(ctx, playerID, count)
		if err != nil {
			return false, err
		}
		return false, sess.write(ctx, types.ServerMessage{
			Type:         types.ServerTopicOptions,
			TopicOptions: options,
		})

	case types.ClientSelectTopic:
		return false, h.selectTopic(ctx, rm, playerID, cm.TopicIndex)

	case types.ClientSearch:
		return false, h.search(ctx, rm, playerID, cm.Query)

	case types.ClientSendResult:
		return false, rm.SendResult(ctx, playerID, cm.QueryIndex)

	case types.ClientGuess:
		return false, h.guess(ctx, rm, playerID, cm.Guess)

	case types.ClientChat:
		return false, rm.Chat(ctx, playerID, cm.Text)

	case types.ClientNextRound:
		return false, rm.NextRound(ctx, playerID)

	case types.ClientEndGame:
		return false, rm.EndGame(ctx, playerID)

	case types.ClientLeave:
		lctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return true, rm.Leave(lctx, playerID)

	default:
		return false, sess.write(ctx, types.ServerMessage{Type: types.ServerError, Error: "unknown type"})
	}
}

// selectTopic reserves the round, runs the opening search-and-redact pass out
// of lock, then commits. The opening clue queries the topic itself and does
// not consume the result cooldown.
func (h *Handler) selectTopic(ctx context.Context, rm *room.Room, playerID string, index int) error {
	res, err := rm.BeginTopic(ctx, playerID, index)
	if err != nil {
		return err
	}

	results, redacted := h.searchAndRedact(ctx, res.Topic, res.Forbidden, res.Topic)
	return rm.CommitRound(ctx, res.Number, res.Topic, results, redacted)
}

func (h *Handler) search(ctx context.Context, rm *room.Room, playerID, query string) error {
	ticket, err := rm.BeginSearch(ctx, playerID, query)
	if err != nil {
		return err
	}

	results, redacted := h.searchAndRedact(ctx, query, ticket.Forbidden, ticket.Topic)
	_, err = rm.CommitSearch(ctx, ticket.Number, query, results, redacted)
	return err
}

func (h *Handler) guess(ctx context.Context, rm *room.Room, playerID, guess string) error {
	ticket, err := rm.BeginGuess(ctx, playerID, guess)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, h.CollabTimeout)
	defer cancel()
	verdict, err := h.Verify.Verify(cctx, guess, ticket.Topic)
	if err != nil {
		return engine.ErrCollaboratorUnavailable
	}

	_, err = rm.CommitGuess(ctx, playerID, guess, ticket.Number, verdict)
	if errors.Is(err, engine.ErrStaleCommit) {
		// The round ended while the verifier was thinking; the guess
		// simply no longer counts.
		return nil
	}
	return err
}

// searchAndRedact performs the bounded collaborator calls. Search
// unavailability degrades to an empty result list rather than failing the
// round action; redaction cannot fail by contract.
func (h *Handler) searchAndRedact(ctx context.Context, query string, forbidden []string, topic string) (results, redacted []types.SearchResult) {
	cctx, cancel := context.WithTimeout(ctx, h.CollabTimeout)
	defer cancel()

	results, err := h.Search.Search(cctx, query, h.SearchLimit)
	if err != nil {
		h.Log.Warn("search collaborator unavailable", zap.Error(err))
		results = nil
	}
	redacted = h.Redact.Redact(cctx, results, forbidden, query, topic)
	return results, redacted
}

func errorMessage(err error) types.ServerMessage {
	msg := types.ServerMessage{Type: types.ServerError, Error: err.Error()}

	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		msg.Violations = vErr.Violations
	}
	var cErr *engine.CooldownError
	if errors.As(err, &cErr) {
		msg.CooldownRemaining = int(cErr.Remaining.Seconds())
	}
	return msg
}

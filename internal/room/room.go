// Package room hosts the per-lobby actor. A single goroutine owns every piece
// of mutable room state (players, the active round, outboxes); all access goes
// through the inbox, so state transitions within one room are totally ordered.
// External collaborator calls never run inside the actor: handlers validate,
// call out, then commit, and a commit re-validates before applying effects.
package room

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/pkg/types"
)

// Description is the registry's read-only view of a room, pushed by the room
// whenever membership or status changes so quick-match never has to ask.
type Description struct {
	ID         string
	Code       string
	Visibility engine.Visibility
	Status     engine.Status
	Players    int
	Connected  int
}

type Options struct {
	Log    *zap.Logger
	Topics collab.TopicProvider
	Rand   *rand.Rand

	RoundSeconds    int
	CooldownSeconds int
	// ReapAfter bounds how long an in-game room may sit with every player
	// disconnected before the round is ended and the room removed. Zero
	// disables reaping.
	ReapAfter time.Duration

	// OnUpdate and OnRemove report to the registry. Both must be
	// non-blocking; the room actor calls them while holding its state.
	OnUpdate func(Description)
	OnRemove func(lobbyID string)
}

type Room struct {
	id         string
	code       string
	visibility engine.Visibility
	createdAt  time.Time

	inbox  chan message
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	opts   Options
	rnd    *rand.Rand

	// Everything below is owned by the actor goroutine.
	status       engine.Status
	players      map[string]*engine.Player
	order        []string
	hostID       string
	game         engine.GameConfig
	round        *roundState
	roundSeq     int
	pendingRound int
	pendingTopic types.TopicOption
	topicOptions []types.TopicOption
	outboxes     map[string]chan types.ServerMessage
	reapTimer    *time.Timer
}

type roundState struct {
	engine.Round
	searches    []searchEntry
	selected    int
	cancelTimer context.CancelFunc
}

type searchEntry struct {
	Query    string
	Results  []types.SearchResult
	Redacted []types.SearchResult
}

func New(parent context.Context, id, code string, visibility engine.Visibility, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.RoundSeconds <= 0 {
		opts.RoundSeconds = 120
	}
	if opts.CooldownSeconds <= 0 {
		opts.CooldownSeconds = 30
	}

	r := &Room{
		id:         id,
		code:       code,
		visibility: visibility,
		createdAt:  time.Now(),
		inbox:      make(chan message, 64),
		ctx:        ctx,
		cancel:     cancel,
		log:        opts.Log.With(zap.String("lobby", code)),
		opts:       opts,
		rnd:        opts.Rand,
		status:     engine.StatusWaiting,
		players:    make(map[string]*engine.Player),
		outboxes:   make(map[string]chan types.ServerMessage),
	}
	go r.loop()
	return r
}

func (r *Room) ID() string                    { return r.id }
func (r *Room) Code() string                  { return r.code }
func (r *Room) Visibility() engine.Visibility { return r.visibility }
func (r *Room) CreatedAt() time.Time          { return r.createdAt }

// Done is closed once the actor has shut down.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

package room

import (
	"context"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/pkg/types"
)

type message interface{ isRoomMsg() }

// request delivers m to the actor and waits for its reply. A closed room
// reports ErrNotFound: from the caller's perspective the lobby is gone.
func request[R any](ctx context.Context, r *Room, m message, reply <-chan R) (R, error) {
	var zero R
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
		return zero, engine.ErrNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return zero, engine.ErrNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type joinMsg struct {
	playerID  string
	name      string
	connected bool
	reply     chan joinReply
}

type joinReply struct {
	state types.LobbyState
	err   error
}

type attachMsg struct {
	playerID string
	outbox   chan types.ServerMessage
	reply    chan error
}

type detachMsg struct {
	playerID string
	outbox   chan types.ServerMessage
	reply    chan error
}

type leaveMsg struct {
	playerID string
	reply    chan error
}

type startMsg struct {
	playerID string
	cfg      engine.GameConfig
	reply    chan error
}

type topicOptionsMsg struct {
	playerID string
	count    int
	reply    chan topicOptionsReply
}

type topicOptionsReply struct {
	options []types.TopicOption
	err     error
}

type beginTopicMsg struct {
	playerID string
	index    int
	reply    chan beginTopicReply
}

type beginTopicReply struct {
	res TopicReservation
	err error
}

// TopicReservation is handed to the transport layer so it can run the opening
// search-and-redact pass outside the actor, then commit.
type TopicReservation struct {
	Number    int
	Topic     string
	Forbidden []string
}

type commitRoundMsg struct {
	number int
	clue   searchEntry
	reply  chan error
}

type beginSearchMsg struct {
	playerID string
	query    string
	reply    chan beginSearchReply
}

type beginSearchReply struct {
	res SearchTicket
	err error
}

// SearchTicket carries what the transport needs to perform the search and
// redaction out of lock, plus the round number for the stale-commit check.
type SearchTicket struct {
	Number    int
	Topic     string
	Forbidden []string
}

type commitSearchMsg struct {
	number int
	entry  searchEntry
	reply  chan commitSearchReply
}

type commitSearchReply struct {
	index int
	err   error
}

type sendResultMsg struct {
	playerID string
	index    int
	reply    chan error
}

type beginGuessMsg struct {
	playerID string
	guess    string
	reply    chan beginGuessReply
}

type beginGuessReply struct {
	res GuessTicket
	err error
}

// GuessTicket snapshots what the verifier call needs; GuessCount is already
// incremented, so a wrong verdict still counts against efficiency.
type GuessTicket struct {
	Number     int
	Topic      string
	GuessCount int
}

type commitGuessMsg struct {
	playerID string
	guess    string
	number   int
	verdict  collab.Verdict
	reply    chan commitGuessReply
}

type commitGuessReply struct {
	outcome GuessOutcome
	err     error
}

type GuessOutcome struct {
	Correct    bool
	Breakdown  engine.ScoreBreakdown
	TotalScore int
}

type nextRoundMsg struct {
	playerID string
	reply    chan error
}

type endGameMsg struct {
	playerID string
	reply    chan error
}

type chatMsg struct {
	playerID string
	text     string
	reply    chan error
}

type stateMsg struct {
	playerID string
	reply    chan joinReply
}

type descMsg struct {
	reply chan Description
}

type tickMsg struct{ number int }

type reapMsg struct{}

type shutdownMsg struct{}

func (joinMsg) isRoomMsg()         {}
func (attachMsg) isRoomMsg()       {}
func (detachMsg) isRoomMsg()       {}
func (leaveMsg) isRoomMsg()        {}
func (startMsg) isRoomMsg()        {}
func (topicOptionsMsg) isRoomMsg() {}
func (beginTopicMsg) isRoomMsg()   {}
func (commitRoundMsg) isRoomMsg()  {}
func (beginSearchMsg) isRoomMsg()  {}
func (commitSearchMsg) isRoomMsg() {}
func (sendResultMsg) isRoomMsg()   {}
func (beginGuessMsg) isRoomMsg()   {}
func (commitGuessMsg) isRoomMsg()  {}
func (nextRoundMsg) isRoomMsg()    {}
func (endGameMsg) isRoomMsg()      {}
func (chatMsg) isRoomMsg()         {}
func (stateMsg) isRoomMsg()        {}
func (descMsg) isRoomMsg()         {}
func (tickMsg) isRoomMsg()         {}
func (reapMsg) isRoomMsg()         {}
func (shutdownMsg) isRoomMsg()     {}

// Join adds a player to the room. Joining with a known id is an idempotent
// no-op that returns current state, which is also the reconnect path.
func (r *Room) Join(ctx context.Context, playerID, name string, connected bool) (types.LobbyState, error) {
	reply := make(chan joinReply, 1)
	rep, err := request(ctx, r, joinMsg{playerID: playerID, name: name, connected: connected, reply: reply}, reply)
	if err != nil {
		return types.LobbyState{}, err
	}
	return rep.state, rep.err
}

// Attach registers the player's outbox and marks them connected. The current
// state snapshot is the first message delivered on the outbox.
func (r *Room) Attach(ctx context.Context, playerID string, outbox chan types.ServerMessage) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, attachMsg{playerID: playerID, outbox: outbox, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Detach records a lost channel: removal while waiting, connected=false while
// in game. The outbox identifies which channel died; a stale detach arriving
// after a reconnect has superseded the channel is ignored.
func (r *Room) Detach(ctx context.Context, playerID string, outbox chan types.ServerMessage) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, detachMsg{playerID: playerID, outbox: outbox, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Leave is the explicit variant of Detach, triggered by player intent.
func (r *Room) Leave(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, leaveMsg{playerID: playerID, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Start moves the room from waiting to in-game and assigns roles.
func (r *Room) Start(ctx context.Context, playerID string, cfg engine.GameConfig) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, startMsg{playerID: playerID, cfg: cfg, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

func (r *Room) TopicOptions(ctx context.Context, playerID string, count int) ([]types.TopicOption, error) {
	reply := make(chan topicOptionsReply, 1)
	rep, err := request(ctx, r, topicOptionsMsg{playerID: playerID, count: count, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return rep.options, rep.err
}

func (r *Room) BeginTopic(ctx context.Context, playerID string, index int) (TopicReservation, error) {
	reply := make(chan beginTopicReply, 1)
	rep, err := request(ctx, r, beginTopicMsg{playerID: playerID, index: index, reply: reply}, reply)
	if err != nil {
		return TopicReservation{}, err
	}
	return rep.res, rep.err
}

// CommitRound activates the reserved round with its opening clue. Stale
// commits (round reservation superseded, game ended) are discarded.
func (r *Room) CommitRound(ctx context.Context, number int, query string, results, redacted []types.SearchResult) error {
	reply := make(chan error, 1)
	entry := searchEntry{Query: query, Results: results, Redacted: redacted}
	err, reqErr := request(ctx, r, commitRoundMsg{number: number, clue: entry, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

func (r *Room) BeginSearch(ctx context.Context, playerID, query string) (SearchTicket, error) {
	reply := make(chan beginSearchReply, 1)
	rep, err := request(ctx, r, beginSearchMsg{playerID: playerID, query: query, reply: reply}, reply)
	if err != nil {
		return SearchTicket{}, err
	}
	return rep.res, rep.err
}

func (r *Room) CommitSearch(ctx context.Context, number int, query string, results, redacted []types.SearchResult) (int, error) {
	reply := make(chan commitSearchReply, 1)
	entry := searchEntry{Query: query, Results: results, Redacted: redacted}
	rep, err := request(ctx, r, commitSearchMsg{number: number, entry: entry, reply: reply}, reply)
	if err != nil {
		return 0, err
	}
	return rep.index, rep.err
}

// SendResult publishes a stored result set to the guessers, subject to the
// result cooldown. This is the only operation that advances the cooldown
// clock.
func (r *Room) SendResult(ctx context.Context, playerID string, index int) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, sendResultMsg{playerID: playerID, index: index, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

func (r *Room) BeginGuess(ctx context.Context, playerID, guess string) (GuessTicket, error) {
	reply := make(chan beginGuessReply, 1)
	rep, err := request(ctx, r, beginGuessMsg{playerID: playerID, guess: guess, reply: reply}, reply)
	if err != nil {
		return GuessTicket{}, err
	}
	return rep.res, rep.err
}

func (r *Room) CommitGuess(ctx context.Context, playerID, guess string, number int, verdict collab.Verdict) (GuessOutcome, error) {
	reply := make(chan commitGuessReply, 1)
	rep, err := request(ctx, r, commitGuessMsg{playerID: playerID, guess: guess, number: number, verdict: verdict, reply: reply}, reply)
	if err != nil {
		return GuessOutcome{}, err
	}
	return rep.outcome, rep.err
}

// NextRound clears round state so the searcher can commit a new topic.
func (r *Room) NextRound(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, nextRoundMsg{playerID: playerID, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// EndGame terminates the game for everyone. Host only.
func (r *Room) EndGame(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, endGameMsg{playerID: playerID, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Chat relays a message to everyone in the room. No state machine involved.
func (r *Room) Chat(ctx context.Context, playerID, text string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, chatMsg{playerID: playerID, text: text, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// State returns the player's current view of the room.
func (r *Room) State(ctx context.Context, playerID string) (types.LobbyState, error) {
	reply := make(chan joinReply, 1)
	rep, err := request(ctx, r, stateMsg{playerID: playerID, reply: reply}, reply)
	if err != nil {
		return types.LobbyState{}, err
	}
	return rep.state, rep.err
}

// Describe returns the registry-facing summary.
func (r *Room) Describe(ctx context.Context) (Description, error) {
	reply := make(chan Description, 1)
	return request(ctx, r, descMsg{reply: reply}, reply)
}

// Shutdown stops the actor. Pending callers see ErrNotFound.
func (r *Room) Shutdown() {
	select {
	case r.inbox <- shutdownMsg{}:
	case <-r.ctx.Done():
	}
}

package room

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/pkg/types"
)

func testOptions() Options {
	return Options{
		Topics:          collab.NewStaticTopics(rand.New(rand.NewSource(42))),
		Rand:            rand.New(rand.NewSource(42)),
		RoundSeconds:    120,
		CooldownSeconds: 30,
	}
}

func newTestRoom(t *testing.T, opts Options) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := New(ctx, "room-1", "ABC123", engine.VisibilityPrivate, opts)
	t.Cleanup(r.Shutdown)
	return r
}

// recvType drains ch until a message of the wanted type arrives; tests never
// hang on a quiet channel.
func recvType(t *testing.T, ch <-chan types.ServerMessage, msgType string) types.ServerMessage {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %q", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", msgType)
		}
	}
}

func mustJoin(t *testing.T, r *Room, id, name string) {
	t.Helper()
	_, err := r.Join(context.Background(), id, name, true)
	require.NoError(t, err)
}

// startedRoom joins two players, starts the game, and reports who ended up in
// which seat.
func startedRoom(t *testing.T, r *Room, roundSeconds int) (searcher, guesser string) {
	t.Helper()
	ctx := context.Background()
	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")
	require.NoError(t, r.Start(ctx, "p1", engine.GameConfig{RoundSeconds: roundSeconds}))

	for _, id := range []string{"p1", "p2"} {
		state, err := r.State(ctx, id)
		require.NoError(t, err)
		if state.YourRole == string(engine.RoleSearcher) {
			searcher = id
		} else {
			guesser = id
		}
	}
	require.NotEmpty(t, searcher)
	require.NotEmpty(t, guesser)
	return searcher, guesser
}

// beginRound reserves a topic and commits the opening clue.
func beginRound(t *testing.T, r *Room, searcher string) TopicReservation {
	t.Helper()
	ctx := context.Background()
	_, err := r.TopicOptions(ctx, searcher, 3)
	require.NoError(t, err)
	res, err := r.BeginTopic(ctx, searcher, 0)
	require.NoError(t, err)

	clue := []types.SearchResult{{Title: "opening clue", Snippet: "something to start from"}}
	require.NoError(t, r.CommitRound(ctx, res.Number, res.Topic, clue, clue))
	return res
}

func TestJoin_Idempotent(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	state, err := r.Join(ctx, "p1", "Ana", true)
	require.NoError(t, err)
	assert.Len(t, state.Players, 1)

	d, err := r.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Players)
}

func TestJoin_EmptyNameGetsHandle(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	state, err := r.Join(ctx, "p1", "", true)
	require.NoError(t, err)
	require.Len(t, state.Players, 1)
	assert.Len(t, state.Players[0].Name, 8)
}

func TestJoin_RejectedOnceInGame(t *testing.T) {
	r := newTestRoom(t, testOptions())
	startedRoom(t, r, 120)

	_, err := r.Join(context.Background(), "p3", "Cy", true)
	assert.ErrorIs(t, err, engine.ErrGameInProgress)
}

func TestJoin_FirstPlayerBecomesHost(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")

	state, err := r.State(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, state.IsHost)
	assert.Equal(t, "p1", state.HostID)

	state, err = r.State(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, state.IsHost)
}

func TestStart_Validations(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	assert.ErrorIs(t, r.Start(ctx, "p1", engine.GameConfig{}), engine.ErrNotEnoughPlayers)

	mustJoin(t, r, "p2", "Bo")
	assert.ErrorIs(t, r.Start(ctx, "p2", engine.GameConfig{}), engine.ErrForbidden)

	require.NoError(t, r.Start(ctx, "p1", engine.GameConfig{}))
	assert.ErrorIs(t, r.Start(ctx, "p1", engine.GameConfig{}), engine.ErrInvalidState)
}

func TestStart_AssignsExactlyOneSearcher(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")
	mustJoin(t, r, "p3", "Cy")
	require.NoError(t, r.Start(ctx, "p1", engine.GameConfig{}))

	searchers := 0
	for _, id := range []string{"p1", "p2", "p3"} {
		state, err := r.State(ctx, id)
		require.NoError(t, err)
		switch state.YourRole {
		case string(engine.RoleSearcher):
			searchers++
		case string(engine.RoleGuesser):
		default:
			t.Fatalf("player %s has no role after start", id)
		}
	}
	assert.Equal(t, 1, searchers)
}

func TestRound_OpeningClueDelivered(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)

	searcherOut := make(chan types.ServerMessage, 64)
	guesserOut := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, searcher, searcherOut))
	require.NoError(t, r.Attach(ctx, guesser, guesserOut))

	res := beginRound(t, r, searcher)

	started := recvType(t, guesserOut, types.ServerRoundStarted)
	assert.Equal(t, res.Number, started.Round)

	clear := recvType(t, searcherOut, types.ServerSearchResult)
	require.NotNil(t, clear.QueryIndex)
	assert.Equal(t, 0, *clear.QueryIndex)
	assert.Equal(t, res.Topic, clear.Query)

	redacted := recvType(t, guesserOut, types.ServerResultsForGuessers)
	assert.NotEmpty(t, redacted.Redacted)
}

func TestRound_SnapshotIsRoleFiltered(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	sState, err := r.State(ctx, searcher)
	require.NoError(t, err)
	assert.Equal(t, res.Topic, sState.Topic)
	assert.NotEmpty(t, sState.Forbidden)
	assert.Len(t, sState.Searches, 1)

	gState, err := r.State(ctx, guesser)
	require.NoError(t, err)
	assert.Empty(t, gState.Topic, "guessers must never see the topic")
	assert.Empty(t, gState.Forbidden)
	assert.Empty(t, gState.Searches)
	assert.NotEmpty(t, gState.RedactedResults)
}

func TestSearch_ForbiddenTermRejected(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, _ := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	_, err := r.BeginSearch(ctx, searcher, "tell me about "+res.Forbidden[0])
	require.ErrorIs(t, err, engine.ErrValidationFailed)

	var vErr *engine.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Violations, res.Forbidden[0])
}

func TestSearch_UsedTermsAccumulate(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, _ := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	ticket, err := r.BeginSearch(ctx, searcher, "peculiar wording")
	require.NoError(t, err)
	results := []types.SearchResult{{Title: "r"}}
	_, err = r.CommitSearch(ctx, ticket.Number, "peculiar wording", results, results)
	require.NoError(t, err)

	_, err = r.BeginSearch(ctx, searcher, "more peculiar angles")
	assert.ErrorIs(t, err, engine.ErrValidationFailed, "terms from an accepted query are burned")
}

func TestSearch_GuesserForbidden(t *testing.T) {
	r := newTestRoom(t, testOptions())
	searcher, guesser := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	_, err := r.BeginSearch(context.Background(), guesser, "anything")
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestSendResult_FirstSendFreeThenCooldown(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, _ := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	// The opening clue does not consume the cooldown, so the first explicit
	// send goes through.
	require.NoError(t, r.SendResult(ctx, searcher, 0))

	err := r.SendResult(ctx, searcher, 0)
	require.ErrorIs(t, err, engine.ErrRateLimited)

	var cErr *engine.CooldownError
	require.ErrorAs(t, err, &cErr)
	assert.Greater(t, cErr.Remaining, time.Duration(0))
}

func TestSendResult_IndexOutOfRange(t *testing.T) {
	r := newTestRoom(t, testOptions())
	searcher, _ := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	assert.ErrorIs(t, r.SendResult(context.Background(), searcher, 5), engine.ErrInvalidState)
}

func TestGuess_WrongThenCorrect(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	ticket, err := r.BeginGuess(ctx, guesser, "wrong answer")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.GuessCount)

	outcome, err := r.CommitGuess(ctx, guesser, "wrong answer", ticket.Number, collab.Verdict{})
	require.NoError(t, err)
	assert.False(t, outcome.Correct)

	ticket, err = r.BeginGuess(ctx, guesser, res.Topic)
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.GuessCount)

	outcome, err = r.CommitGuess(ctx, guesser, res.Topic, ticket.Number, collab.Verdict{Correct: true, Similarity: 1.0})
	require.NoError(t, err)
	require.True(t, outcome.Correct)
	assert.Equal(t, 0, outcome.Breakdown.FirstTryBonus)
	assert.Equal(t, 10, outcome.Breakdown.EfficiencyPenalty)
	assert.Equal(t, outcome.Breakdown.Total, outcome.TotalScore)

	// The only guesser got it, so the round is over and the searcher earned
	// the collaboration bonus.
	state, err := r.State(ctx, searcher)
	require.NoError(t, err)
	assert.False(t, state.RoundActive)
	assert.Equal(t, string(engine.StatusInGame), state.Status)
	for _, p := range state.Players {
		if p.ID == searcher {
			assert.Greater(t, p.Score, 0)
		}
	}
}

func TestGuess_FirstTryBonus(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	ticket, err := r.BeginGuess(ctx, guesser, res.Topic)
	require.NoError(t, err)

	outcome, err := r.CommitGuess(ctx, guesser, res.Topic, ticket.Number, collab.Verdict{Correct: true, Similarity: 1.0})
	require.NoError(t, err)
	assert.Equal(t, 100, outcome.Breakdown.FirstTryBonus)
	assert.Equal(t, 0, outcome.Breakdown.EfficiencyPenalty)
}

func TestGuess_RepeatAfterCorrectRejected(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	ticket, _ := r.BeginGuess(ctx, guesser, res.Topic)
	_, err := r.CommitGuess(ctx, guesser, res.Topic, ticket.Number, collab.Verdict{Correct: true, Similarity: 1.0})
	require.NoError(t, err)

	_, err = r.BeginGuess(ctx, guesser, res.Topic)
	// Either the round already ended (single guesser) or the player is done.
	assert.Error(t, err)
}

func TestGuess_SearcherForbidden(t *testing.T) {
	r := newTestRoom(t, testOptions())
	searcher, _ := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	_, err := r.BeginGuess(context.Background(), searcher, "self guess")
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestGuess_StaleCommitDiscarded(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)
	res := beginRound(t, r, searcher)

	ticket, err := r.BeginGuess(ctx, guesser, res.Topic)
	require.NoError(t, err)

	// Host cuts the round short while the verifier is still out.
	require.NoError(t, r.NextRound(ctx, "p1"))

	_, err = r.CommitGuess(ctx, guesser, res.Topic, ticket.Number, collab.Verdict{Correct: true, Similarity: 1.0})
	require.ErrorIs(t, err, engine.ErrStaleCommit)

	state, err := r.State(ctx, guesser)
	require.NoError(t, err)
	for _, p := range state.Players {
		assert.Zero(t, p.Score, "a stale guess must not score")
	}
}

func TestRound_StaleRoundCommitDiscarded(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, _ := startedRoom(t, r, 120)

	_, err := r.TopicOptions(ctx, searcher, 3)
	require.NoError(t, err)
	first, err := r.BeginTopic(ctx, searcher, 0)
	require.NoError(t, err)
	second, err := r.BeginTopic(ctx, searcher, 1)
	require.NoError(t, err)

	clue := []types.SearchResult{{Title: "clue"}}
	assert.ErrorIs(t, r.CommitRound(ctx, first.Number, first.Topic, clue, clue), engine.ErrStaleCommit)
	assert.NoError(t, r.CommitRound(ctx, second.Number, second.Topic, clue, clue))
}

func TestRound_TimeExpiryEndsRound(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 1)

	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, guesser, out))

	beginRound(t, r, searcher)

	ended := recvType(t, out, types.ServerRoundEnded)
	assert.Equal(t, string(engine.EndTimeExpired), ended.Reason)
}

func TestDetach_WaitingRemovesPlayer(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")
	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p2", out))

	require.NoError(t, r.Detach(ctx, "p2", out))

	d, err := r.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Players)
}

func TestDetach_LastPlayerTerminatesRoom(t *testing.T) {
	removed := make(chan string, 1)
	opts := testOptions()
	opts.OnRemove = func(id string) { removed <- id }
	r := newTestRoom(t, opts)

	mustJoin(t, r, "p1", "Ana")
	_ = r.Leave(context.Background(), "p1")

	select {
	case id := <-removed:
		assert.Equal(t, "room-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("room was not removed after last player left")
	}
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room actor did not stop")
	}
}

func TestDetach_InGameRetainsPlayer(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	_, guesser := startedRoom(t, r, 120)

	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, guesser, out))
	require.NoError(t, r.Detach(ctx, guesser, out))

	d, err := r.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Players, "in-game players are retained for reconnect")

	// Reconnect resumes the same seat.
	state, err := r.State(ctx, guesser)
	require.NoError(t, err)
	assert.Equal(t, string(engine.RoleGuesser), state.YourRole)
}

func TestDetach_SearcherLossEndsRound(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)

	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, guesser, out))
	beginRound(t, r, searcher)

	require.NoError(t, r.Leave(ctx, searcher))

	ended := recvType(t, out, types.ServerRoundEnded)
	assert.Equal(t, string(engine.EndSearcherLeft), ended.Reason)
}

func TestDetach_StaleChannelIgnored(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	startedRoom(t, r, 120)

	old := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p2", old))
	fresh := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p2", fresh))

	// The superseded connection reports its loss late; the player stays
	// connected through the fresh channel.
	require.NoError(t, r.Detach(ctx, "p2", old))

	d, err := r.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Connected)
}

func TestHostSuccession(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")
	require.NoError(t, r.Leave(ctx, "p1"))

	state, err := r.State(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", state.HostID)
	assert.True(t, state.IsHost)
}

func TestReap_AbandonedInGameRoom(t *testing.T) {
	removed := make(chan string, 1)
	opts := testOptions()
	opts.ReapAfter = 50 * time.Millisecond
	opts.OnRemove = func(id string) { removed <- id }
	r := newTestRoom(t, opts)
	ctx := context.Background()

	startedRoom(t, r, 120)
	out1 := make(chan types.ServerMessage, 64)
	out2 := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p1", out1))
	require.NoError(t, r.Attach(ctx, "p2", out2))
	require.NoError(t, r.Detach(ctx, "p1", out1))
	_ = r.Detach(ctx, "p2", out2)

	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned room was not reaped")
	}
}

func TestReap_DisarmedByReconnect(t *testing.T) {
	removed := make(chan string, 1)
	opts := testOptions()
	opts.ReapAfter = 100 * time.Millisecond
	opts.OnRemove = func(id string) { removed <- id }
	r := newTestRoom(t, opts)
	ctx := context.Background()

	startedRoom(t, r, 120)
	out1 := make(chan types.ServerMessage, 64)
	out2 := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p1", out1))
	require.NoError(t, r.Attach(ctx, "p2", out2))
	require.NoError(t, r.Detach(ctx, "p1", out1))
	require.NoError(t, r.Detach(ctx, "p2", out2))

	// One player comes back before the timer fires.
	back := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p1", back))

	select {
	case <-removed:
		t.Fatal("room was reaped despite a reconnect")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNextRound_ClearsRoundState(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, _ := startedRoom(t, r, 120)
	beginRound(t, r, searcher)

	// p1 joined first and is host; p2 may never drive rounds.
	assert.ErrorIs(t, r.NextRound(ctx, "p2"), engine.ErrForbidden)
	require.NoError(t, r.NextRound(ctx, "p1"))

	state, err := r.State(ctx, searcher)
	require.NoError(t, err)
	assert.False(t, state.RoundActive)

	// A fresh round can be reserved immediately.
	_, err = r.TopicOptions(ctx, searcher, 3)
	require.NoError(t, err)
	_, err = r.BeginTopic(ctx, searcher, 0)
	require.NoError(t, err)
}

func TestEndGame(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	searcher, guesser := startedRoom(t, r, 120)

	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, guesser, out))
	beginRound(t, r, searcher)

	assert.ErrorIs(t, r.EndGame(ctx, "p2"), engine.ErrForbidden)
	require.NoError(t, r.EndGame(ctx, "p1"))

	ended := recvType(t, out, types.ServerGameEnded)
	assert.NotNil(t, ended.Leaderboard)

	d, err := r.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusFinished, d.Status)
}

func TestChat_RelayedToEveryone(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()

	mustJoin(t, r, "p1", "Ana")
	mustJoin(t, r, "p2", "Bo")
	out1 := make(chan types.ServerMessage, 64)
	out2 := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Attach(ctx, "p1", out1))
	require.NoError(t, r.Attach(ctx, "p2", out2))

	require.NoError(t, r.Chat(ctx, "p1", "hello"))

	for _, out := range []chan types.ServerMessage{out1, out2} {
		msg := recvType(t, out, types.ServerChat)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, "Ana", msg.PlayerName)
	}
}

func TestShutdown_CallersSeeNotFound(t *testing.T) {
	r := newTestRoom(t, testOptions())
	mustJoin(t, r, "p1", "Ana")

	r.Shutdown()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not shut down")
	}

	_, err := r.State(context.Background(), "p1")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestTopicOptions_SearcherOnly(t *testing.T) {
	r := newTestRoom(t, testOptions())
	ctx := context.Background()
	_, guesser := startedRoom(t, r, 120)

	_, err := r.TopicOptions(ctx, guesser, 3)
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/internal/ident"
	"github.com/classified-intel/backend/pkg/types"
)

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinMsg:
				msg.reply <- r.handleJoin(msg)
			case attachMsg:
				msg.reply <- r.handleAttach(msg)
			case detachMsg:
				msg.reply <- r.handleDetach(msg.playerID, msg.outbox, false)
			case leaveMsg:
				msg.reply <- r.handleDetach(msg.playerID, nil, true)
			case startMsg:
				msg.reply <- r.handleStart(msg)
			case topicOptionsMsg:
				msg.reply <- r.handleTopicOptions(msg)
			case beginTopicMsg:
				msg.reply <- r.handleBeginTopic(msg)
			case commitRoundMsg:
				msg.reply <- r.handleCommitRound(msg)
			case beginSearchMsg:
				msg.reply <- r.handleBeginSearch(msg)
			case commitSearchMsg:
				msg.reply <- r.handleCommitSearch(msg)
			case sendResultMsg:
				msg.reply <- r.handleSendResult(msg)
			case beginGuessMsg:
				msg.reply <- r.handleBeginGuess(msg)
			case commitGuessMsg:
				msg.reply <- r.handleCommitGuess(msg)
			case nextRoundMsg:
				msg.reply <- r.handleNextRound(msg)
			case endGameMsg:
				msg.reply <- r.handleEndGame(msg)
			case chatMsg:
				msg.reply <- r.handleChat(msg)
			case stateMsg:
				msg.reply <- r.handleState(msg)
			case descMsg:
				msg.reply <- r.describe()
			case tickMsg:
				r.handleTick(msg.number)
			case reapMsg:
				if r.handleReap() {
					return
				}
			case shutdownMsg:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	if r.round != nil && r.round.cancelTimer != nil {
		r.round.cancelTimer()
	}
	if r.reapTimer != nil {
		r.reapTimer.Stop()
	}
	for id, ch := range r.outboxes {
		close(ch)
		delete(r.outboxes, id)
	}
	r.cancel()
}

// terminate is shutdown plus removal from the registry, used when the room
// ends its own life (last player left, abandoned reap).
func (r *Room) terminate() {
	r.shutdown()
	if r.opts.OnRemove != nil {
		r.opts.OnRemove(r.id)
	}
}

func (r *Room) handleJoin(msg joinMsg) joinReply {
	if _, ok := r.players[msg.playerID]; ok {
		// Idempotent rejoin; also the reconnect path while in game.
		return joinReply{state: r.snapshotFor(msg.playerID)}
	}
	if r.status != engine.StatusWaiting {
		return joinReply{err: engine.ErrGameInProgress}
	}

	name := msg.name
	if name == "" {
		name = r.guestName()
	}

	p := &engine.Player{ID: msg.playerID, Name: name, Connected: msg.connected}
	r.players[msg.playerID] = p
	r.order = append(r.order, msg.playerID)
	if r.hostID == "" {
		r.hostID = msg.playerID
	}

	r.broadcastExcept(msg.playerID, types.ServerMessage{
		Type:       types.ServerPlayerJoined,
		PlayerID:   msg.playerID,
		PlayerName: name,
	})
	r.broadcastLeaderboard()
	r.broadcastState()
	r.pushDesc()
	return joinReply{state: r.snapshotFor(msg.playerID)}
}

func (r *Room) handleAttach(msg attachMsg) error {
	p, ok := r.players[msg.playerID]
	if !ok {
		return engine.ErrNotFound
	}
	if old, ok := r.outboxes[msg.playerID]; ok && old != msg.outbox {
		close(old)
	}
	r.outboxes[msg.playerID] = msg.outbox
	p.Connected = true
	r.disarmReap()

	snap := r.snapshotFor(msg.playerID)
	msg.outbox <- types.ServerMessage{Type: types.ServerLobbyState, State: &snap}
	r.broadcastState()
	r.pushDesc()
	return nil
}

// handleDetach covers both channel loss and explicit leave; the branching on
// room status is identical, only the broadcast differs.
func (r *Room) handleDetach(playerID string, outbox chan types.ServerMessage, explicit bool) error {
	p, ok := r.players[playerID]
	if !ok {
		return engine.ErrNotFound
	}
	if outbox != nil {
		if cur, ok := r.outboxes[playerID]; !ok || cur != outbox {
			// A reconnect already superseded this channel.
			return nil
		}
	}

	if ch, ok := r.outboxes[playerID]; ok {
		close(ch)
		delete(r.outboxes, playerID)
	}

	if r.status == engine.StatusInGame {
		// In-game players are retained so a reconnect resumes the same
		// role and score. The room itself is never deleted here.
		p.Connected = false
		event := types.ServerPlayerDisconnected
		if explicit {
			event = types.ServerPlayerLeft
		}
		r.broadcast(types.ServerMessage{Type: event, PlayerID: playerID, PlayerName: p.Name})

		if p.Role == engine.RoleSearcher && r.round != nil && r.round.Active {
			r.endRound(engine.EndSearcherLeft)
		}
		r.broadcastState()
		r.armReapIfAbandoned()
		r.pushDesc()
		return nil
	}

	// Waiting or finished: remove outright.
	delete(r.players, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if len(r.players) == 0 {
		r.terminate()
		return nil
	}
	if r.hostID == playerID {
		r.hostID = r.order[0]
		r.broadcast(types.ServerMessage{
			Type:       types.ServerHostChanged,
			PlayerID:   r.hostID,
			PlayerName: r.players[r.hostID].Name,
		})
	}
	r.broadcast(types.ServerMessage{Type: types.ServerPlayerLeft, PlayerID: playerID, PlayerName: p.Name})
	r.broadcastLeaderboard()
	r.broadcastState()
	r.pushDesc()
	return nil
}

func (r *Room) handleStart(msg startMsg) error {
	if _, ok := r.players[msg.playerID]; !ok {
		return engine.ErrNotFound
	}
	if msg.playerID != r.hostID {
		return engine.ErrForbidden
	}
	if r.status != engine.StatusWaiting {
		return engine.ErrInvalidState
	}
	if len(r.players) < 2 {
		return engine.ErrNotEnoughPlayers
	}

	cfg := msg.cfg
	if cfg.RoundSeconds <= 0 {
		cfg.RoundSeconds = r.opts.RoundSeconds
	}
	if cfg.RoundCount <= 0 {
		cfg.RoundCount = 3
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = "normal"
	}
	r.game = cfg

	searcherID, _ := engine.AssignRoles(r.order, r.rnd)
	for id, p := range r.players {
		if id == searcherID {
			p.Role = engine.RoleSearcher
		} else {
			p.Role = engine.RoleGuesser
		}
	}
	r.status = engine.StatusInGame

	r.log.Info("game started",
		zap.Int("players", len(r.players)),
		zap.Int("round_seconds", cfg.RoundSeconds),
	)
	r.broadcastState()
	r.pushDesc()
	return nil
}

func (r *Room) handleTopicOptions(msg topicOptionsMsg) topicOptionsReply {
	p, ok := r.players[msg.playerID]
	if !ok {
		return topicOptionsReply{err: engine.ErrNotFound}
	}
	if r.status != engine.StatusInGame {
		return topicOptionsReply{err: engine.ErrInvalidState}
	}
	if p.Role != engine.RoleSearcher {
		return topicOptionsReply{err: engine.ErrForbidden}
	}
	if r.round != nil && r.round.Active {
		return topicOptionsReply{err: engine.ErrInvalidState}
	}

	count := msg.count
	if count <= 0 {
		count = 3
	}
	r.topicOptions = r.opts.Topics.Topics(count)
	return topicOptionsReply{options: r.topicOptions}
}

func (r *Room) handleBeginTopic(msg beginTopicMsg) beginTopicReply {
	p, ok := r.players[msg.playerID]
	if !ok {
		return beginTopicReply{err: engine.ErrNotFound}
	}
	if r.status != engine.StatusInGame {
		return beginTopicReply{err: engine.ErrInvalidState}
	}
	if p.Role != engine.RoleSearcher {
		return beginTopicReply{err: engine.ErrForbidden}
	}
	if r.round != nil && r.round.Active {
		return beginTopicReply{err: engine.ErrInvalidState}
	}
	if msg.index < 0 || msg.index >= len(r.topicOptions) {
		return beginTopicReply{err: engine.ErrInvalidState}
	}

	r.roundSeq++
	r.pendingRound = r.roundSeq
	r.pendingTopic = r.topicOptions[msg.index]
	return beginTopicReply{res: TopicReservation{
		Number:    r.pendingRound,
		Topic:     r.pendingTopic.Topic,
		Forbidden: r.pendingTopic.Forbidden,
	}}
}

func (r *Room) handleCommitRound(msg commitRoundMsg) error {
	if r.status != engine.StatusInGame || r.pendingRound == 0 || msg.number != r.pendingRound {
		return engine.ErrStaleCommit
	}
	if r.round != nil && r.round.Active {
		return engine.ErrStaleCommit
	}

	rs := &roundState{
		Round: engine.Round{
			Number:         msg.number,
			Topic:          r.pendingTopic.Topic,
			Forbidden:      r.pendingTopic.Forbidden,
			StartTime:      time.Now(),
			TimeLimit:      time.Duration(r.game.RoundSeconds) * time.Second,
			ResultCooldown: time.Duration(r.opts.CooldownSeconds) * time.Second,
			Active:         true,
		},
		searches: []searchEntry{msg.clue},
		selected: 0,
	}
	engine.AbsorbQueryTerms(&rs.Round, msg.clue.Query)
	r.round = rs
	r.pendingRound = 0
	r.topicOptions = nil
	for _, p := range r.players {
		p.GuessCount = 0
		p.GuessedCorrectly = false
	}

	tctx, cancel := context.WithCancel(r.ctx)
	rs.cancelTimer = cancel
	go r.runTimer(tctx, msg.number)

	r.log.Info("round started",
		zap.Int("round", msg.number),
		zap.String("topic", rs.Topic),
	)

	r.broadcast(types.ServerMessage{
		Type:         types.ServerRoundStarted,
		Round:        msg.number,
		RoundSeconds: r.game.RoundSeconds,
	})
	// The opening clue ships immediately: clear to the searcher, redacted
	// to the guessers, without touching the cooldown clock.
	idx := 0
	r.sendTo(r.searcherID(), types.ServerMessage{
		Type:       types.ServerSearchResult,
		Round:      msg.number,
		Query:      msg.clue.Query,
		QueryIndex: &idx,
		Results:    msg.clue.Results,
		Redacted:   msg.clue.Redacted,
	})
	r.sendToGuessers(types.ServerMessage{
		Type:     types.ServerResultsForGuessers,
		Round:    msg.number,
		Redacted: msg.clue.Redacted,
	})
	r.broadcastState()
	return nil
}

func (r *Room) handleBeginSearch(msg beginSearchMsg) beginSearchReply {
	p, ok := r.players[msg.playerID]
	if !ok {
		return beginSearchReply{err: engine.ErrNotFound}
	}
	if p.Role != engine.RoleSearcher {
		return beginSearchReply{err: engine.ErrForbidden}
	}
	if r.round == nil || !r.round.Active {
		return beginSearchReply{err: engine.ErrInvalidState}
	}
	if msg.query == "" {
		return beginSearchReply{err: engine.ErrInvalidState}
	}

	okForbidden, violations := collab.ValidateForbidden(msg.query, r.round.Forbidden)
	okUsed, usedViolations := collab.ValidateForbidden(msg.query, engine.UsedTermList(r.round.Round))
	if !okForbidden || !okUsed {
		return beginSearchReply{err: &engine.ValidationError{
			Violations: append(violations, usedViolations...),
		}}
	}

	return beginSearchReply{res: SearchTicket{
		Number:    r.round.Number,
		Topic:     r.round.Topic,
		Forbidden: r.round.Forbidden,
	}}
}

func (r *Room) handleCommitSearch(msg commitSearchMsg) commitSearchReply {
	if r.round == nil || !r.round.Active || msg.number != r.round.Number {
		return commitSearchReply{err: engine.ErrStaleCommit}
	}

	r.round.searches = append(r.round.searches, msg.entry)
	engine.AbsorbQueryTerms(&r.round.Round, msg.entry.Query)
	idx := len(r.round.searches) - 1

	r.sendTo(r.searcherID(), types.ServerMessage{
		Type:       types.ServerSearchResult,
		Round:      msg.number,
		Query:      msg.entry.Query,
		QueryIndex: &idx,
		Results:    msg.entry.Results,
		Redacted:   msg.entry.Redacted,
	})
	r.broadcastState()
	return commitSearchReply{index: idx}
}

func (r *Room) handleSendResult(msg sendResultMsg) error {
	p, ok := r.players[msg.playerID]
	if !ok {
		return engine.ErrNotFound
	}
	if p.Role != engine.RoleSearcher {
		return engine.ErrForbidden
	}
	if r.round == nil || !r.round.Active {
		return engine.ErrInvalidState
	}
	if msg.index < 0 || msg.index >= len(r.round.searches) {
		return engine.ErrInvalidState
	}

	if rem := engine.CooldownRemaining(time.Now(), r.round.Round); rem > 0 {
		return &engine.CooldownError{Remaining: rem}
	}
	r.round.LastResultSentAt = time.Now()
	r.round.selected = msg.index

	r.sendToGuessers(types.ServerMessage{
		Type:     types.ServerResultsForGuessers,
		Round:    r.round.Number,
		Redacted: r.round.searches[msg.index].Redacted,
	})
	r.broadcastState()
	return nil
}

func (r *Room) handleBeginGuess(msg beginGuessMsg) beginGuessReply {
	p, ok := r.players[msg.playerID]
	if !ok {
		return beginGuessReply{err: engine.ErrNotFound}
	}
	if p.Role != engine.RoleGuesser {
		return beginGuessReply{err: engine.ErrForbidden}
	}
	if r.round == nil || !r.round.Active {
		return beginGuessReply{err: engine.ErrInvalidState}
	}
	if msg.guess == "" {
		return beginGuessReply{err: engine.ErrInvalidState}
	}
	if p.GuessedCorrectly {
		return beginGuessReply{err: engine.ErrAlreadySatisfied}
	}

	// Counted before the verdict comes back, so a wrong guess still costs
	// efficiency and the first-try bonus.
	p.GuessCount++

	return beginGuessReply{res: GuessTicket{
		Number:     r.round.Number,
		Topic:      r.round.Topic,
		GuessCount: p.GuessCount,
	}}
}

func (r *Room) handleCommitGuess(msg commitGuessMsg) commitGuessReply {
	if r.round == nil || !r.round.Active || msg.number != r.round.Number {
		return commitGuessReply{err: engine.ErrStaleCommit}
	}
	p, ok := r.players[msg.playerID]
	if !ok {
		return commitGuessReply{err: engine.ErrNotFound}
	}
	if p.GuessedCorrectly {
		return commitGuessReply{err: engine.ErrAlreadySatisfied}
	}

	correct := msg.verdict.Correct
	r.sendTo(r.searcherID(), types.ServerMessage{
		Type:       types.ServerGuessObserved,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Guess:      msg.guess,
		Correct:    &correct,
	})

	if !correct {
		r.sendTo(p.ID, types.ServerMessage{
			Type:    types.ServerGuessResult,
			Guess:   msg.guess,
			Correct: &correct,
		})
		return commitGuessReply{outcome: GuessOutcome{Correct: false}}
	}

	p.GuessedCorrectly = true
	remaining := int(engine.TimeRemaining(time.Now(), r.round.Round).Seconds())
	breakdown := engine.Score(remaining, p.GuessCount, msg.verdict.Similarity)
	p.Score += breakdown.Total
	if s, ok := r.players[r.searcherID()]; ok {
		s.Score += engine.SearcherBonus(remaining)
	}

	r.sendTo(p.ID, types.ServerMessage{
		Type:    types.ServerGuessResult,
		Guess:   msg.guess,
		Correct: &correct,
		Score:   p.Score,
		Breakdown: &types.ScoreBreakdown{
			Base:              breakdown.Base,
			SpeedBonus:        breakdown.SpeedBonus,
			EfficiencyPenalty: breakdown.EfficiencyPenalty,
			FirstTryBonus:     breakdown.FirstTryBonus,
			SimilarityBonus:   breakdown.SimilarityBonus,
			Total:             breakdown.Total,
		},
	})
	r.broadcastLeaderboard()

	if r.allGuessersCorrect() {
		r.endRound(engine.EndAllCorrect)
	}
	r.broadcastState()

	return commitGuessReply{outcome: GuessOutcome{
		Correct:    true,
		Breakdown:  breakdown,
		TotalScore: p.Score,
	}}
}

func (r *Room) handleNextRound(msg nextRoundMsg) error {
	if _, ok := r.players[msg.playerID]; !ok {
		return engine.ErrNotFound
	}
	if msg.playerID != r.hostID {
		return engine.ErrForbidden
	}
	if r.status != engine.StatusInGame {
		return engine.ErrInvalidState
	}

	if r.round != nil && r.round.Active {
		r.endRound(engine.EndManual)
	}
	r.round = nil
	r.pendingRound = 0
	r.topicOptions = nil
	r.broadcastState()
	return nil
}

func (r *Room) handleEndGame(msg endGameMsg) error {
	if _, ok := r.players[msg.playerID]; !ok {
		return engine.ErrNotFound
	}
	if msg.playerID != r.hostID {
		return engine.ErrForbidden
	}
	if r.status != engine.StatusInGame {
		return engine.ErrInvalidState
	}

	if r.round != nil && r.round.Active {
		r.endRound(engine.EndManual)
	}
	r.status = engine.StatusFinished
	r.broadcast(types.ServerMessage{
		Type:        types.ServerGameEnded,
		Round:       r.roundSeq,
		Leaderboard: r.leaderboard(),
	})
	r.broadcastState()
	r.pushDesc()
	return nil
}

func (r *Room) handleChat(msg chatMsg) error {
	p, ok := r.players[msg.playerID]
	if !ok {
		return engine.ErrNotFound
	}
	r.broadcast(types.ServerMessage{
		Type:       types.ServerChat,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Text:       msg.text,
	})
	return nil
}

func (r *Room) handleState(msg stateMsg) joinReply {
	if _, ok := r.players[msg.playerID]; !ok {
		return joinReply{err: engine.ErrNotFound}
	}
	return joinReply{state: r.snapshotFor(msg.playerID)}
}

func (r *Room) handleTick(number int) {
	if r.round == nil || !r.round.Active || number != r.round.Number {
		// Stale tick from a timer that lost the race with a round end.
		return
	}
	now := time.Now()
	r.broadcast(types.ServerMessage{
		Type:              types.ServerRoundTimerSync,
		Round:             number,
		TimeRemaining:     int(engine.TimeRemaining(now, r.round.Round).Seconds()),
		CooldownRemaining: int(engine.CooldownRemaining(now, r.round.Round).Seconds()),
	})
	if engine.Expired(now, r.round.Round) {
		r.endRound(engine.EndTimeExpired)
		r.broadcastState()
	}
}

func (r *Room) handleReap() bool {
	if r.status != engine.StatusInGame || r.anyConnected() {
		return false
	}
	r.log.Info("reaping abandoned room", zap.Int("players", len(r.players)))
	if r.round != nil && r.round.Active {
		r.endRound(engine.EndManual)
	}
	r.terminate()
	return true
}

// endRound performs the single Active -> Ended transition. Exactly one cause
// wins; later calls for the same round are no-ops.
func (r *Room) endRound(reason engine.EndReason) {
	if r.round == nil || !r.round.Active {
		return
	}
	r.round.Active = false
	if r.round.cancelTimer != nil {
		r.round.cancelTimer()
		r.round.cancelTimer = nil
	}
	r.log.Info("round ended",
		zap.Int("round", r.round.Number),
		zap.String("reason", string(reason)),
	)
	r.broadcast(types.ServerMessage{
		Type:        types.ServerRoundEnded,
		Round:       r.round.Number,
		Reason:      string(reason),
		Leaderboard: r.leaderboard(),
	})
}

// guestName covers players who never typed a name. Handles are unique within
// the room so two silent joiners stay tellable apart.
func (r *Room) guestName() string {
	taken := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		taken[p.Name] = true
	}
	h, err := ident.Handle(taken)
	if err != nil {
		return "guest"
	}
	return h
}

func (r *Room) searcherID() string {
	for id, p := range r.players {
		if p.Role == engine.RoleSearcher {
			return id
		}
	}
	return ""
}

func (r *Room) allGuessersCorrect() bool {
	guessers := 0
	for _, p := range r.players {
		if p.Role != engine.RoleGuesser {
			continue
		}
		guessers++
		if !p.GuessedCorrectly {
			return false
		}
	}
	return guessers > 0
}

func (r *Room) anyConnected() bool {
	for _, p := range r.players {
		if p.Connected {
			return true
		}
	}
	return false
}

func (r *Room) armReapIfAbandoned() {
	if r.opts.ReapAfter <= 0 || r.status != engine.StatusInGame || r.anyConnected() {
		return
	}
	if r.reapTimer != nil {
		r.reapTimer.Stop()
	}
	r.reapTimer = time.AfterFunc(r.opts.ReapAfter, func() {
		select {
		case r.inbox <- reapMsg{}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) disarmReap() {
	if r.reapTimer != nil {
		r.reapTimer.Stop()
		r.reapTimer = nil
	}
}

func (r *Room) pushDesc() {
	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(r.describe())
	}
}

func (r *Room) describe() Description {
	connected := 0
	for _, p := range r.players {
		if p.Connected {
			connected++
		}
	}
	return Description{
		ID:         r.id,
		Code:       r.code,
		Visibility: r.visibility,
		Status:     r.status,
		Players:    len(r.players),
		Connected:  connected,
	}
}

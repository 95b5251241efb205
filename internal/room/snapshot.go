package room

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/pkg/types"
)

// sendTo delivers a targeted message. A player without a live outbox is
// silently skipped; "no channel right now" is never an error.
func (r *Room) sendTo(playerID string, msg types.ServerMessage) {
	ch, ok := r.outboxes[playerID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		r.log.Warn("outbox full, dropping message",
			zap.String("player", playerID),
			zap.String("msg", msg.Type),
		)
	}
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for id := range r.outboxes {
		r.sendTo(id, msg)
	}
}

func (r *Room) broadcastExcept(playerID string, msg types.ServerMessage) {
	for id := range r.outboxes {
		if id != playerID {
			r.sendTo(id, msg)
		}
	}
}

func (r *Room) sendToGuessers(msg types.ServerMessage) {
	for id, p := range r.players {
		if p.Role == engine.RoleGuesser {
			r.sendTo(id, msg)
		}
	}
}

// broadcastState sends each player their own view; snapshots are personalized
// because searcher and guessers see different halves of the round.
func (r *Room) broadcastState() {
	for id := range r.outboxes {
		snap := r.snapshotFor(id)
		r.sendTo(id, types.ServerMessage{Type: types.ServerLobbyState, State: &snap})
	}
}

func (r *Room) broadcastLeaderboard() {
	r.broadcast(types.ServerMessage{
		Type:        types.ServerLeaderboard,
		Leaderboard: r.leaderboard(),
	})
}

func (r *Room) leaderboard() []types.LeaderboardEntry {
	entries := make([]types.LeaderboardEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		entries = append(entries, types.LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

func (r *Room) snapshotFor(playerID string) types.LobbyState {
	me := r.players[playerID]

	snap := types.LobbyState{
		LobbyID:     r.id,
		Code:        r.code,
		Visibility:  string(r.visibility),
		Status:      string(r.status),
		HostID:      r.hostID,
		Round:       r.roundSeq,
		Leaderboard: r.leaderboard(),
	}
	if me != nil {
		snap.IsHost = playerID == r.hostID
		snap.YourRole = string(me.Role)
	}

	for _, id := range r.order {
		p := r.players[id]
		snap.Players = append(snap.Players, types.PlayerInfo{
			ID:        p.ID,
			Name:      p.Name,
			Role:      string(p.Role),
			Score:     p.Score,
			Connected: p.Connected,
		})
	}

	if r.round != nil {
		now := time.Now()
		snap.Round = r.round.Number
		snap.RoundActive = r.round.Active
		snap.RoundSeconds = int(r.round.TimeLimit.Seconds())
		if r.round.Active {
			snap.TimeRemaining = int(engine.TimeRemaining(now, r.round.Round).Seconds())
			snap.CooldownRemaining = int(engine.CooldownRemaining(now, r.round.Round).Seconds())
		}
	}

	if me == nil {
		return snap
	}

	switch me.Role {
	case engine.RoleSearcher:
		snap.TopicOptions = r.topicOptions
		if r.round != nil {
			snap.Topic = r.round.Topic
			snap.Forbidden = r.round.Forbidden
			for _, s := range r.round.searches {
				snap.Searches = append(snap.Searches, types.SearchRecord{
					Query:    s.Query,
					Results:  s.Results,
					Redacted: s.Redacted,
				})
			}
		}
	case engine.RoleGuesser:
		if r.round != nil && r.round.selected >= 0 && r.round.selected < len(r.round.searches) {
			snap.RedactedResults = r.round.searches[r.round.selected].Redacted
		}
		snap.GuessedCorrectly = me.GuessedCorrectly
	}
	return snap
}

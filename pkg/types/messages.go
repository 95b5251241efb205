package types

// Client -> Server
// join is implicit in the /ws handshake (code + player + name query params).
//
// startGame:
//   difficulty: "easy" | "normal" | "hard"
//   round_count: number
//   round_seconds: number
//
// topicOptions:
//   count: number (how many topics to choose from)
//
// selectTopic:
//   topic_index: number
//
// search:
//   query: string
//
// sendResult:
//   query_index: number
//
// guess:
//   guess: string
//
// chat:
//   text: string
//
// nextRound: {}
// endGame: {}
// leave: {}

// ClientMessage is the single envelope for everything a client sends over the
// socket. Fields are populated per Type; the rest stay zero.
type ClientMessage struct {
	Type         string `json:"type"`
	Difficulty   string `json:"difficulty,omitempty"`
	RoundCount   int    `json:"round_count,omitempty"`
	RoundSeconds int    `json:"round_seconds,omitempty"`
	Count        int    `json:"count,omitempty"`
	TopicIndex   int    `json:"topic_index,omitempty"`
	Query        string `json:"query,omitempty"`
	QueryIndex   int    `json:"query_index,omitempty"`
	Guess        string `json:"guess,omitempty"`
	Text         string `json:"text,omitempty"`
}

const (
	ClientStartGame    = "startGame"
	ClientTopicOptions = "topicOptions"
	ClientSelectTopic  = "selectTopic"
	ClientSearch       = "search"
	ClientSendResult   = "sendResult"
	ClientGuess        = "guess"
	ClientChat         = "chat"
	ClientNextRound    = "nextRound"
	ClientEndGame      = "endGame"
	ClientLeave        = "leave"
)

const (
	ServerLobbyState         = "lobbyState"
	ServerRoundStarted       = "roundStarted"
	ServerRoundTimerSync     = "roundTimerSync"
	ServerRoundEnded         = "roundEnded"
	ServerTopicOptions       = "topicOptions"
	ServerSearchResult       = "searchResult"
	ServerResultsForGuessers = "resultsForGuessers"
	ServerGuessResult        = "guessResult"
	ServerGuessObserved      = "guessObserved"
	ServerPlayerJoined       = "playerJoined"
	ServerPlayerLeft         = "playerLeft"
	ServerPlayerDisconnected = "playerDisconnected"
	ServerHostChanged        = "hostChanged"
	ServerLeaderboard        = "leaderboard"
	ServerGameEnded          = "gameEnded"
	ServerChat               = "chat"
	ServerError              = "error"
)

// SearchResult is one web result as shown to players. Guessers only ever see
// the redacted variant.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

// TopicOption pairs a secret topic with the terms the searcher may not use.
type TopicOption struct {
	Topic     string   `json:"topic"`
	Forbidden []string `json:"forbidden"`
}

type PlayerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type ScoreBreakdown struct {
	Base              int `json:"base"`
	SpeedBonus        int `json:"speed_bonus"`
	EfficiencyPenalty int `json:"efficiency_penalty"`
	FirstTryBonus     int `json:"first_try_bonus"`
	SimilarityBonus   int `json:"similarity_bonus"`
	Total             int `json:"total"`
}

// SearchRecord is a past query as the searcher sees it: the clear results plus
// the redacted preview that would go out to guessers.
type SearchRecord struct {
	Query    string         `json:"query"`
	Results  []SearchResult `json:"results"`
	Redacted []SearchResult `json:"redacted"`
}

// LobbyState is the full per-player view of a room. The server always sends
// complete state rather than deltas so clients tolerate reordered delivery.
type LobbyState struct {
	LobbyID    string       `json:"lobby_id"`
	Code       string       `json:"code"`
	Visibility string       `json:"visibility"`
	Status     string       `json:"status"`
	HostID     string       `json:"host_id"`
	IsHost     bool         `json:"is_host"`
	YourRole   string       `json:"your_role,omitempty"`
	Players    []PlayerInfo `json:"players"`

	Round             int  `json:"round"`
	RoundSeconds      int  `json:"round_seconds,omitempty"`
	TimeRemaining     int  `json:"time_remaining,omitempty"`
	CooldownRemaining int  `json:"cooldown_remaining,omitempty"`
	RoundActive       bool `json:"round_active"`

	// Searcher-only fields.
	Topic        string         `json:"topic,omitempty"`
	Forbidden    []string       `json:"forbidden,omitempty"`
	TopicOptions []TopicOption  `json:"topic_options,omitempty"`
	Searches     []SearchRecord `json:"searches,omitempty"`

	// Guesser-only fields.
	RedactedResults  []SearchResult `json:"redacted_results,omitempty"`
	GuessedCorrectly bool           `json:"guessed_correctly,omitempty"`

	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ServerMessage is the single envelope for everything the server sends.
type ServerMessage struct {
	Type  string      `json:"type"`
	State *LobbyState `json:"state,omitempty"`

	Round             int    `json:"round,omitempty"`
	RoundSeconds      int    `json:"round_seconds,omitempty"`
	TimeRemaining     int    `json:"time_remaining,omitempty"`
	CooldownRemaining int    `json:"cooldown_remaining,omitempty"`
	Reason            string `json:"reason,omitempty"`

	TopicOptions []TopicOption  `json:"topic_options,omitempty"`
	Query        string         `json:"query,omitempty"`
	QueryIndex   *int           `json:"query_index,omitempty"`
	Results      []SearchResult `json:"results,omitempty"`
	Redacted     []SearchResult `json:"redacted,omitempty"`
	Violations   []string       `json:"violations,omitempty"`

	Guess     string          `json:"guess,omitempty"`
	Correct   *bool           `json:"correct,omitempty"`
	Score     int             `json:"score,omitempty"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`

	PlayerID    string             `json:"player_id,omitempty"`
	PlayerName  string             `json:"player_name,omitempty"`
	Text        string             `json:"text,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`

	Error string `json:"error,omitempty"`
}

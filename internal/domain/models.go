package domain

import "time"

// Status is the lifecycle phase of a game. Transitions follow
// lobby -> question <-> reveal -> (question | finished), with cancelled
// reachable from any non-terminal phase.
type Status string

const (
	StatusLobby     Status = "lobby"
	StatusQuestion  Status = "question"
	StatusReveal    Status = "reveal"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the game record is immutable.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Game is the single shared mutable record all clients project their UI from.
type Game struct {
	ID                   string    `json:"id"`
	Code                 string    `json:"code"`
	Status               Status    `json:"status"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	QuestionStartedAt    time.Time `json:"questionStartedAt"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Player is one joined participant. Rows are append-only; only the score
// field mutates, and only via the store's atomic increment.
type Player struct {
	ID       string    `json:"id"`
	GameID   string    `json:"gameId"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Answer is one submission for one (player, question index) pair. Choice
// questions fill SelectedIndices/IsCorrect; wordcloud questions fill FreeText.
type Answer struct {
	GameID          string    `json:"gameId"`
	PlayerID        string    `json:"playerId"`
	QuestionIndex   int       `json:"questionIndex"`
	SelectedIndices []int     `json:"selectedIndices,omitempty"`
	IsCorrect       bool      `json:"isCorrect"`
	FreeText        string    `json:"freeText,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Role tags a connected client as either the host or a joined player.
// The zero value is the host; downstream logic branches on the tag rather
// than on the presence of an identity string.
type Role struct {
	playerID string
}

// HostRole controls pacing and owns no player identity.
func HostRole() Role {
	return Role{}
}

// PlayerRole holds the joined player identity.
func PlayerRole(playerID string) Role {
	return Role{playerID: playerID}
}

// IsHost reports whether the role may write phase transitions.
func (r Role) IsHost() bool {
	return r.playerID == ""
}

// PlayerID returns the joined identity, if any.
func (r Role) PlayerID() (string, bool) {
	return r.playerID, r.playerID != ""
}

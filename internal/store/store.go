// Package store defines the shared game record store contract: a row store
// with per-game change subscriptions, an atomic score increment, and cheap
// row counts. Implementations live under internal/infra.
package store

import (
	"context"
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

// GameUpdate is a partial write against a game row. Every code path that
// races toward the same transition must produce an identical update so that
// duplicate writes stay harmless.
type GameUpdate struct {
	Status               domain.Status
	CurrentQuestionIndex *int
	QuestionStartedAt    *time.Time
}

// Store is the external collaborator every controller talks to. There is no
// mutual exclusion across writers; single-writer-by-convention for phase
// transitions is enforced by the role controllers, not here.
//
// Subscriptions deliver each subscriber its own filtered change stream in
// commit order. The returned cancel funcs are idempotent. A client must treat
// its own write as tentative until the corroborating broadcast arrives, or
// use the returned row for its immediate local state.
type Store interface {
	// CreateGame inserts a lobby-status game under the given join code.
	CreateGame(ctx context.Context, code string) (domain.Game, error)
	GameByID(ctx context.Context, id string) (domain.Game, error)
	// GameByCode looks up a game by join code, case-insensitively.
	GameByCode(ctx context.Context, code string) (domain.Game, error)
	// UpdateGame applies a partial update and returns the resulting row.
	// Terminal games reject writes, except that re-cancelling a cancelled
	// game is a silent no-op.
	UpdateGame(ctx context.Context, id string, upd GameUpdate) (domain.Game, error)

	AddPlayer(ctx context.Context, gameID, username string) (domain.Player, error)
	// Players returns the roster in join order.
	Players(ctx context.Context, gameID string) ([]domain.Player, error)
	// CountPlayers counts the roster without transferring row bodies.
	CountPlayers(ctx context.Context, gameID string) (int, error)
	// IncrementScore atomically adds delta to a player's score.
	IncrementScore(ctx context.Context, gameID, playerID string, delta int) error

	// InsertAnswer stores a submission, enforcing at most one answer per
	// (player, question index) pair.
	InsertAnswer(ctx context.Context, ans domain.Answer) (domain.Answer, error)
	// Answers returns submissions for one question of a game.
	Answers(ctx context.Context, gameID string, questionIndex int) ([]domain.Answer, error)
	// GameAnswers returns every submission of a game.
	GameAnswers(ctx context.Context, gameID string) ([]domain.Answer, error)

	SubscribeGame(ctx context.Context, gameID string) (<-chan domain.Game, func(), error)
	SubscribePlayers(ctx context.Context, gameID string) (<-chan domain.Player, func(), error)
	SubscribeAnswers(ctx context.Context, gameID string) (<-chan domain.Answer, func(), error)
}

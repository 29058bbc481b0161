package game

import (
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/store"
)

// Action is a host-initiated (or host-observed) phase transition trigger.
type Action int

const (
	// ActionStart moves lobby -> question at index 0.
	ActionStart Action = iota
	// ActionReveal moves question -> reveal. Explicit "reveal now", timer
	// expiry and all-answered all converge on this one action so that racing
	// writers produce identical updates.
	ActionReveal
	// ActionAdvance moves reveal -> question at the next index, or to
	// finished past the last question.
	ActionAdvance
	// ActionSkip moves question -> question at the next index without a
	// reveal, or to finished past the last question.
	ActionSkip
	// ActionCancel moves any non-terminal status to cancelled.
	ActionCancel
)

// Apply computes the game update for an action against the latest observed
// row. It is a pure function: the caller writes the returned update through
// the store and waits for the broadcast to observe the result.
func Apply(g domain.Game, a Action, questionCount int, now time.Time) (store.GameUpdate, error) {
	switch a {
	case ActionStart:
		if questionCount == 0 {
			return store.GameUpdate{}, domain.ErrInvalidBank
		}
		// A re-triggered start while already on question 0 re-issues the
		// identical write, matching the lobby screen's Run button.
		if g.Status != domain.StatusLobby &&
			!(g.Status == domain.StatusQuestion && g.CurrentQuestionIndex == 0) {
			return store.GameUpdate{}, domain.ErrInvalidTransition
		}
		return questionUpdate(0, now), nil

	case ActionReveal:
		if g.Status != domain.StatusQuestion {
			return store.GameUpdate{}, domain.ErrInvalidTransition
		}
		return store.GameUpdate{Status: domain.StatusReveal}, nil

	case ActionAdvance:
		if g.Status != domain.StatusReveal {
			return store.GameUpdate{}, domain.ErrInvalidTransition
		}
		return nextUpdate(g, questionCount, now), nil

	case ActionSkip:
		if g.Status != domain.StatusQuestion {
			return store.GameUpdate{}, domain.ErrInvalidTransition
		}
		return nextUpdate(g, questionCount, now), nil

	case ActionCancel:
		if g.Status.Terminal() {
			return store.GameUpdate{}, domain.ErrInvalidTransition
		}
		return store.GameUpdate{Status: domain.StatusCancelled}, nil
	}
	return store.GameUpdate{}, domain.ErrInvalidTransition
}

// nextUpdate advances by exactly one question, or finishes past the end.
func nextUpdate(g domain.Game, questionCount int, now time.Time) store.GameUpdate {
	next := g.CurrentQuestionIndex + 1
	if next >= questionCount {
		return store.GameUpdate{Status: domain.StatusFinished}
	}
	return questionUpdate(next, now)
}

func questionUpdate(index int, now time.Time) store.GameUpdate {
	started := now
	return store.GameUpdate{
		Status:               domain.StatusQuestion,
		CurrentQuestionIndex: &index,
		QuestionStartedAt:    &started,
	}
}

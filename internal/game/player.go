package game

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/room"
	"github.com/micahela/debug-the-graduate/internal/store"
)

// Submission is a player's answer for the current question: option indices
// for choice questions, free text for wordcloud questions.
type Submission struct {
	Selected []int  `json:"selected,omitempty"`
	FreeText string `json:"freeText,omitempty"`
}

// PlayerController is the answering role. Like the host it is a pure
// projector over the broadcast game row, but it never writes phase
// transitions; its only writes are one answer insert per question and the
// atomic score increment on reveal.
type PlayerController struct {
	store store.Store
	bank  domain.Bank
	now   func() time.Time
	role  domain.Role

	game      domain.Game
	player    domain.Player
	selection []int
	submitted bool
	scored    map[int]bool

	events  chan Event
	submits chan Submission
}

// Join looks up the game by code (case-insensitive), inserts the player row
// and returns a controller bound to that identity.
func Join(ctx context.Context, st store.Store, bank domain.Bank, code, username string) (*PlayerController, error) {
	return JoinWithClock(ctx, st, bank, code, username, time.Now)
}

// JoinWithClock allows deterministic timestamps in tests.
func JoinWithClock(ctx context.Context, st store.Store, bank domain.Bank, code, username string, now func() time.Time) (*PlayerController, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username must not be empty")
	}
	g, err := st.GameByCode(ctx, room.Normalize(code))
	if err != nil {
		return nil, err
	}
	if g.Status.Terminal() {
		return nil, domain.ErrGameOver
	}
	p, err := st.AddPlayer(ctx, g.ID, username)
	if err != nil {
		return nil, err
	}
	return &PlayerController{
		store:   st,
		bank:    bank,
		now:     now,
		role:    domain.PlayerRole(p.ID),
		game:    g,
		player:  p,
		scored:  make(map[int]bool),
		events:  make(chan Event, 32),
		submits: make(chan Submission, 4),
	}, nil
}

// Player returns the joined identity row.
func (c *PlayerController) Player() domain.Player {
	return c.player
}

// Role returns the player-tagged role for this connection.
func (c *PlayerController) Role() domain.Role {
	return c.role
}

// Game returns the latest observed game row.
func (c *PlayerController) Game() domain.Game {
	return c.game
}

// Events is the outbound stream the transport forwards to the client.
func (c *PlayerController) Events() <-chan Event {
	return c.events
}

// Submit enqueues an answer for the event loop. Never blocks.
func (c *PlayerController) Submit(s Submission) {
	select {
	case c.submits <- s:
	default:
	}
}

// Run drives the player loop until the game reaches a terminal status or
// ctx is done.
func (c *PlayerController) Run(ctx context.Context) error {
	gameCh, cancelGame, err := c.store.SubscribeGame(ctx, c.game.ID)
	if err != nil {
		return err
	}
	defer cancelGame()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	c.emit(Event{Type: EventGame, Payload: c.game})
	c.observe(ctx, c.game)
	if c.game.Status.Terminal() {
		return nil
	}

	lastTick := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g, ok := <-gameCh:
			if !ok {
				return nil
			}
			c.emit(Event{Type: EventGame, Payload: g})
			c.observe(ctx, g)
			if c.game.Status.Terminal() {
				return nil
			}
		case <-ticker.C:
			c.tick(&lastTick)
		case s := <-c.submits:
			c.submit(ctx, s)
		}
	}
}

// observe projects a broadcast game row into local answering state.
func (c *PlayerController) observe(ctx context.Context, g domain.Game) {
	entered := g.Status == domain.StatusQuestion &&
		(c.game.Status != domain.StatusQuestion || g.CurrentQuestionIndex != c.game.CurrentQuestionIndex)
	prev := c.game.Status
	c.game = g

	switch g.Status {
	case domain.StatusQuestion:
		if entered {
			c.selection = nil
			c.submitted = false
		}
	case domain.StatusReveal:
		if prev != domain.StatusReveal {
			c.onReveal(ctx)
		}
	case domain.StatusFinished:
		c.emitResults(ctx)
	}
}

// onReveal scores the locally-held selection against the revealed question.
// The increment is a single server-side atomic add, and the local scored set
// keeps re-delivered reveal broadcasts from issuing it twice.
func (c *PlayerController) onReveal(ctx context.Context) {
	idx := c.game.CurrentQuestionIndex
	q, ok := c.bank.QuestionAt(idx)
	if !ok || q.Kind() != domain.QuestionChoice {
		return
	}
	correct := q.IsCorrectSelection(c.selection)
	c.emit(Event{Type: EventVerdict, Payload: VerdictPayload{QuestionIndex: idx, Correct: correct}})
	if !correct || c.scored[idx] {
		return
	}
	c.scored[idx] = true
	if err := c.store.IncrementScore(ctx, c.game.ID, c.player.ID, 1); err != nil {
		log.Printf("player %s: score increment: %v", c.player.ID, err)
	}
}

func (c *PlayerController) tick(lastTick *int) {
	if c.game.Status != domain.StatusQuestion {
		return
	}
	q, ok := c.bank.QuestionAt(c.game.CurrentQuestionIndex)
	if !ok {
		return
	}
	secs := RemainingSeconds(c.now(), c.game.QuestionStartedAt, q.TimeLimit())
	if secs != *lastTick {
		*lastTick = secs
		c.emit(Event{Type: EventTick, Payload: TickPayload{
			QuestionIndex: c.game.CurrentQuestionIndex,
			Remaining:     secs,
		}})
	}
}

// submit validates and stores an answer. The store enforces one row per
// (player, question), so a retried request degrades to the same accepted
// submission instead of double-counting.
func (c *PlayerController) submit(ctx context.Context, s Submission) {
	if c.game.Status != domain.StatusQuestion {
		c.fail(domain.ErrNotAcceptingAnswers)
		return
	}
	if c.submitted {
		c.fail(domain.ErrDuplicateAnswer)
		return
	}
	idx := c.game.CurrentQuestionIndex
	q, ok := c.bank.QuestionAt(idx)
	if !ok {
		c.fail(domain.ErrNotAcceptingAnswers)
		return
	}

	ans := domain.Answer{
		GameID:        c.game.ID,
		PlayerID:      c.player.ID,
		QuestionIndex: idx,
	}
	switch q.Kind() {
	case domain.QuestionWordcloud:
		text := strings.TrimSpace(s.FreeText)
		if text == "" {
			c.fail(errors.New("answer must not be empty"))
			return
		}
		ans.FreeText = text
	default:
		ans.SelectedIndices = append([]int(nil), s.Selected...)
		ans.IsCorrect = q.IsCorrectSelection(s.Selected)
	}

	if _, err := c.store.InsertAnswer(ctx, ans); err != nil {
		if errors.Is(err, domain.ErrDuplicateAnswer) {
			// A retried request that already landed; treat as submitted.
			c.submitted = true
			c.emit(Event{Type: EventSubmitted, Payload: SubmittedPayload{QuestionIndex: idx}})
			return
		}
		c.fail(err)
		return
	}
	c.selection = append([]int(nil), s.Selected...)
	c.submitted = true
	c.emit(Event{Type: EventSubmitted, Payload: SubmittedPayload{QuestionIndex: idx}})
}

func (c *PlayerController) emitResults(ctx context.Context) {
	players, err := c.store.Players(ctx, c.game.ID)
	if err != nil {
		c.fail(err)
		return
	}
	answers, err := c.store.GameAnswers(ctx, c.game.ID)
	if err != nil {
		c.fail(err)
		return
	}
	c.emit(Event{Type: EventResults, Payload: Leaderboard(players, answers)})
}

func (c *PlayerController) fail(err error) {
	c.emit(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
}

func (c *PlayerController) emit(e Event) {
	emitTo(c.events, e)
}

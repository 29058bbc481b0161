package game

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/room"
	"github.com/micahela/debug-the-graduate/internal/store"
)

// createRetries bounds join-code collision retries on game creation.
const createRetries = 5

// HostController is the pacing role: it owns no player identity and is the
// only writer of phase transitions. It runs as a single event loop reacting
// to store broadcasts, the countdown tick, and enqueued host actions, so the
// game snapshot it projects from is never touched concurrently.
type HostController struct {
	store store.Store
	bank  domain.Bank
	now   func() time.Time

	game    domain.Game
	events  chan Event
	actions chan Action
}

// NewHost builds a host controller over the shared store and question bank.
func NewHost(st store.Store, bank domain.Bank) *HostController {
	return NewHostWithClock(st, bank, time.Now)
}

// NewHostWithClock allows deterministic timestamps in tests.
func NewHostWithClock(st store.Store, bank domain.Bank, now func() time.Time) *HostController {
	return &HostController{
		store:   st,
		bank:    bank,
		now:     now,
		events:  make(chan Event, 32),
		actions: make(chan Action, 8),
	}
}

// CreateGame inserts a fresh lobby under a newly generated join code,
// retrying on the unlikely code collision.
func (h *HostController) CreateGame(ctx context.Context) (domain.Game, error) {
	var lastErr error
	for i := 0; i < createRetries; i++ {
		g, err := h.store.CreateGame(ctx, room.NewCode())
		if err == nil {
			h.game = g
			return g, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return domain.Game{}, err
		}
		lastErr = err
	}
	return domain.Game{}, lastErr
}

// Game returns the latest observed game row.
func (h *HostController) Game() domain.Game {
	return h.game
}

// Role returns the host role; it carries no player identity.
func (h *HostController) Role() domain.Role {
	return domain.HostRole()
}

// Events is the outbound stream the transport forwards to the host client.
func (h *HostController) Events() <-chan Event {
	return h.events
}

// Do enqueues a host action for the event loop. It never blocks; a full
// queue drops the action, which the host can simply re-press.
func (h *HostController) Do(a Action) {
	select {
	case h.actions <- a:
	default:
	}
}

// Run drives the host loop until the game reaches a terminal status or ctx
// is done. CreateGame must have succeeded first.
func (h *HostController) Run(ctx context.Context) error {
	gameCh, cancelGame, err := h.store.SubscribeGame(ctx, h.game.ID)
	if err != nil {
		return err
	}
	defer cancelGame()
	playerCh, cancelPlayers, err := h.store.SubscribePlayers(ctx, h.game.ID)
	if err != nil {
		return err
	}
	defer cancelPlayers()
	answerCh, cancelAnswers, err := h.store.SubscribeAnswers(ctx, h.game.ID)
	if err != nil {
		return err
	}
	defer cancelAnswers()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	h.emit(Event{Type: EventGame, Payload: h.game})
	h.refreshRoster(ctx)

	lastTick := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g, ok := <-gameCh:
			if !ok {
				return nil
			}
			h.observe(ctx, g)
			if h.game.Status.Terminal() {
				return nil
			}
		case _, ok := <-playerCh:
			if !ok {
				return nil
			}
			h.refreshRoster(ctx)
			h.checkEarlyReveal(ctx)
		case a, ok := <-answerCh:
			if !ok {
				return nil
			}
			h.onAnswer(ctx, a)
		case <-ticker.C:
			h.tick(ctx, &lastTick)
		case act := <-h.actions:
			h.perform(ctx, act)
		}
	}
}

// observe ingests a broadcast game row: the loop never trusts its own
// writes, only what comes back over the subscription.
func (h *HostController) observe(ctx context.Context, g domain.Game) {
	entered := g.Status == domain.StatusQuestion &&
		(h.game.Status != domain.StatusQuestion || g.CurrentQuestionIndex != h.game.CurrentQuestionIndex)
	h.game = g
	h.emit(Event{Type: EventGame, Payload: g})

	switch g.Status {
	case domain.StatusQuestion:
		if entered {
			// A late joiner may already satisfy all-answered from a stale
			// roster view, so recount on entry as well as on inserts.
			h.checkEarlyReveal(ctx)
		}
	case domain.StatusFinished:
		h.emitResults(ctx)
	}
}

func (h *HostController) refreshRoster(ctx context.Context) {
	players, err := h.store.Players(ctx, h.game.ID)
	if err != nil {
		log.Printf("host %s: roster refresh: %v", h.game.Code, err)
		return
	}
	h.emit(Event{Type: EventRoster, Payload: players})
}

// onAnswer reacts to an answer insert broadcast. Rows scoped to an earlier
// question index are semantically stale and ignored.
func (h *HostController) onAnswer(ctx context.Context, a domain.Answer) {
	if h.game.Status != domain.StatusQuestion || a.QuestionIndex != h.game.CurrentQuestionIndex {
		return
	}
	if q, ok := h.bank.QuestionAt(h.game.CurrentQuestionIndex); ok && q.Kind() == domain.QuestionWordcloud {
		h.refreshCloud(ctx)
	}
	h.checkEarlyReveal(ctx)
}

func (h *HostController) refreshCloud(ctx context.Context) {
	answers, err := h.store.Answers(ctx, h.game.ID, h.game.CurrentQuestionIndex)
	if err != nil {
		log.Printf("host %s: cloud refresh: %v", h.game.Code, err)
		return
	}
	h.emit(Event{Type: EventCloud, Payload: WordcloudTally(answers)})
}

// checkEarlyReveal recomputes the answered/total tally and flips to reveal
// once every joined player has a distinct answer for the current question.
// It runs on answer inserts and on player joins, so a late joiner raises the
// bar rather than being missed.
func (h *HostController) checkEarlyReveal(ctx context.Context) {
	if h.game.Status != domain.StatusQuestion {
		return
	}
	total, err := h.store.CountPlayers(ctx, h.game.ID)
	if err != nil {
		log.Printf("host %s: player count: %v", h.game.Code, err)
		return
	}
	answers, err := h.store.Answers(ctx, h.game.ID, h.game.CurrentQuestionIndex)
	if err != nil {
		log.Printf("host %s: answer fetch: %v", h.game.Code, err)
		return
	}
	p := Progress{Answered: AnsweredCount(answers), Total: total}
	h.emit(Event{Type: EventProgress, Payload: p})
	if p.AllAnswered() {
		h.reveal(ctx)
	}
}

func (h *HostController) tick(ctx context.Context, lastTick *int) {
	if h.game.Status != domain.StatusQuestion {
		return
	}
	q, ok := h.bank.QuestionAt(h.game.CurrentQuestionIndex)
	if !ok {
		return
	}
	secs := RemainingSeconds(h.now(), h.game.QuestionStartedAt, q.TimeLimit())
	if secs != *lastTick {
		*lastTick = secs
		h.emit(Event{Type: EventTick, Payload: TickPayload{
			QuestionIndex: h.game.CurrentQuestionIndex,
			Remaining:     secs,
		}})
	}
	if Remaining(h.now(), h.game.QuestionStartedAt, q.TimeLimit()) == 0 {
		h.reveal(ctx)
	}
}

// reveal issues the question -> reveal write. Timer expiry, all-answered and
// the explicit host action all funnel through here, so every racing trigger
// produces the identical update and a duplicate write is harmless.
func (h *HostController) reveal(ctx context.Context) {
	upd, err := Apply(h.game, ActionReveal, len(h.bank.Questions), h.now())
	if err != nil {
		// Another trigger path already flipped the phase.
		return
	}
	if _, err := h.store.UpdateGame(ctx, h.game.ID, upd); err != nil {
		log.Printf("host %s: reveal write: %v", h.game.Code, err)
	}
}

// perform applies an explicit host action against the latest snapshot.
// Failures surface as error events and leave state unchanged; the broadcast
// channel re-delivers true state regardless.
func (h *HostController) perform(ctx context.Context, act Action) {
	upd, err := Apply(h.game, act, len(h.bank.Questions), h.now())
	if err != nil {
		h.emit(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	if _, err := h.store.UpdateGame(ctx, h.game.ID, upd); err != nil {
		if act == ActionCancel && errors.Is(err, domain.ErrGameNotFound) {
			// Stale game identity; fall back to the join code before
			// reporting failure.
			if g, lookupErr := h.store.GameByCode(ctx, h.game.Code); lookupErr == nil {
				if _, err = h.store.UpdateGame(ctx, g.ID, upd); err == nil {
					return
				}
			}
		}
		h.emit(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
	}
}

func (h *HostController) emitResults(ctx context.Context) {
	players, err := h.store.Players(ctx, h.game.ID)
	if err != nil {
		h.emit(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	answers, err := h.store.GameAnswers(ctx, h.game.ID)
	if err != nil {
		h.emit(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	h.emit(Event{Type: EventResults, Payload: Leaderboard(players, answers)})
}

func (h *HostController) emit(e Event) {
	emitTo(h.events, e)
}

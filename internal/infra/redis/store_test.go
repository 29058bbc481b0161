package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/store"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := newClient(mr)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	st := NewStoreWithClock(client, time.Hour, func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	})
	return st, mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestCreateGameReservesCode(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)

	g, err := st.CreateGame(ctx, "abc234")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Code != "ABC234" || g.Status != domain.StatusLobby {
		t.Fatalf("unexpected game: %+v", g)
	}
	if !mr.Exists("dtg:code:ABC234") {
		t.Fatal("expected the code key set")
	}
	if !mr.Exists("dtg:game:" + g.ID) {
		t.Fatal("expected the game row set")
	}

	if _, err := st.CreateGame(ctx, "ABC234"); !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestGameRoundTripAndLookup(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	g, _ := st.CreateGame(ctx, "ABC234")
	byCode, err := st.GameByCode(ctx, " abc234 ")
	if err != nil || byCode.ID != g.ID {
		t.Fatalf("case-insensitive lookup failed: %v %+v", err, byCode)
	}
	if _, err := st.GameByID(ctx, "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := st.GameByCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestUpdateGameTerminalRules(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	g, _ := st.CreateGame(ctx, "ABC234")
	idx := 0
	started := time.Now().UTC()
	got, err := st.UpdateGame(ctx, g.ID, store.GameUpdate{
		Status:               domain.StatusQuestion,
		CurrentQuestionIndex: &idx,
		QuestionStartedAt:    &started,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != domain.StatusQuestion || !got.QuestionStartedAt.Equal(started) {
		t.Fatalf("unexpected row: %+v", got)
	}

	if _, err := st.UpdateGame(ctx, g.ID, store.GameUpdate{Status: domain.StatusFinished}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := st.UpdateGame(ctx, g.ID, store.GameUpdate{Status: domain.StatusQuestion}); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("finished games must reject writes, got %v", err)
	}

	g2, _ := st.CreateGame(ctx, "DEF234")
	if _, err := st.UpdateGame(ctx, g2.ID, store.GameUpdate{Status: domain.StatusCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := st.UpdateGame(ctx, g2.ID, store.GameUpdate{Status: domain.StatusCancelled}); err != nil {
		t.Fatalf("re-cancel must be a no-op, got %v", err)
	}
}

func TestPlayersAndScores(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")

	p1, err := st.AddPlayer(ctx, g.ID, "zoe")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	p2, _ := st.AddPlayer(ctx, g.ID, "ada")

	if n, _ := st.CountPlayers(ctx, g.ID); n != 2 {
		t.Fatalf("expected 2 players, got %d", n)
	}

	if err := st.IncrementScore(ctx, g.ID, p2.ID, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := st.IncrementScore(ctx, g.ID, p2.ID, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := st.IncrementScore(ctx, g.ID, "missing", 1); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	players, err := st.Players(ctx, g.ID)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 2 || players[0].ID != p1.ID || players[1].ID != p2.ID {
		t.Fatalf("expected join order, got %+v", players)
	}
	if players[1].Score != 2 {
		t.Fatalf("expected the scores hash merged, got %d", players[1].Score)
	}

	if _, err := st.AddPlayer(ctx, "missing", "ada"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestInsertAnswerUniqueness(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")
	p, _ := st.AddPlayer(ctx, g.ID, "ada")

	ans := domain.Answer{GameID: g.ID, PlayerID: p.ID, QuestionIndex: 0, SelectedIndices: []int{1}, IsCorrect: true}
	if _, err := st.InsertAnswer(ctx, ans); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.InsertAnswer(ctx, ans); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected ErrDuplicateAnswer, got %v", err)
	}

	next := ans
	next.QuestionIndex = 1
	if _, err := st.InsertAnswer(ctx, next); err != nil {
		t.Fatalf("insert next question: %v", err)
	}

	perQuestion, err := st.Answers(ctx, g.ID, 0)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(perQuestion) != 1 || perQuestion[0].QuestionIndex != 0 {
		t.Fatalf("expected 1 answer for question 0, got %+v", perQuestion)
	}
	all, _ := st.GameAnswers(ctx, g.ID)
	if len(all) != 2 {
		t.Fatalf("expected 2 answers total, got %d", len(all))
	}
}

func TestAnswersPrefixDoesNotMixIndexes(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")
	p, _ := st.AddPlayer(ctx, g.ID, "ada")

	// Question 1 and question 11 share a decimal prefix; the field format
	// "index:player" must still keep them apart.
	for _, idx := range []int{1, 11} {
		if _, err := st.InsertAnswer(ctx, domain.Answer{GameID: g.ID, PlayerID: p.ID, QuestionIndex: idx}); err != nil {
			t.Fatalf("insert %d: %v", idx, err)
		}
	}
	one, _ := st.Answers(ctx, g.ID, 1)
	if len(one) != 1 || one[0].QuestionIndex != 1 {
		t.Fatalf("expected only question 1 answers, got %+v", one)
	}
}

func TestSubscribeGameDeliversUpdates(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")

	ch, cancel, err := st.SubscribeGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	idx := 0
	started := time.Now().UTC()
	if _, err := st.UpdateGame(ctx, g.ID, store.GameUpdate{
		Status:               domain.StatusQuestion,
		CurrentQuestionIndex: &idx,
		QuestionStartedAt:    &started,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case got := <-ch:
		if got.Status != domain.StatusQuestion || got.ID != g.ID {
			t.Fatalf("unexpected broadcast: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestSubscribePlayersAndAnswers(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")

	playerCh, cancelPlayers, err := st.SubscribePlayers(ctx, g.ID)
	if err != nil {
		t.Fatalf("subscribe players: %v", err)
	}
	defer cancelPlayers()
	answerCh, cancelAnswers, err := st.SubscribeAnswers(ctx, g.ID)
	if err != nil {
		t.Fatalf("subscribe answers: %v", err)
	}
	defer cancelAnswers()

	p, _ := st.AddPlayer(ctx, g.ID, "ada")
	select {
	case got := <-playerCh:
		if got.ID != p.ID {
			t.Fatalf("expected player %s, got %s", p.ID, got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no player broadcast")
	}

	if _, err := st.InsertAnswer(ctx, domain.Answer{GameID: g.ID, PlayerID: p.ID, QuestionIndex: 0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	select {
	case got := <-answerCh:
		if got.PlayerID != p.ID {
			t.Fatalf("expected answer from %s, got %s", p.ID, got.PlayerID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no answer broadcast")
	}
}

func TestSubscribeCancelIdempotent(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	g, _ := st.CreateGame(ctx, "ABC234")

	ch, cancel, err := st.SubscribeGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected the channel closed after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSubscribeUnknownGame(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	if _, _, err := st.SubscribeGame(ctx, "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

// Package redis implements the game record store on Redis, so several
// service instances can serve clients of the same room: rows live in Redis
// values and hashes, change notifications ride pub/sub, and score updates
// use HINCRBY for lost-update-free increments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/room"
	"github.com/micahela/debug-the-graduate/internal/store"
)

// Store is the Redis-backed record store. Game writes are read-modify-write
// without locking: every code path racing toward the same transition writes
// an identical row, so the second writer is harmless.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore builds a store over the given client. Keys expire after ttl so
// abandoned rooms clean themselves up; zero disables expiry.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(client *redis.Client, ttl time.Duration, now func() time.Time) *Store {
	return &Store{client: client, ttl: ttl, now: now}
}

func gameKey(id string) string        { return "dtg:game:" + id }
func codeKey(code string) string      { return "dtg:code:" + code }
func playersKey(gameID string) string { return "dtg:game:" + gameID + ":players" }
func scoresKey(gameID string) string  { return "dtg:game:" + gameID + ":scores" }
func answersKey(gameID string) string { return "dtg:game:" + gameID + ":answers" }

func gameFeed(gameID string) string    { return "dtg:game:" + gameID + ":feed:game" }
func playersFeed(gameID string) string { return "dtg:game:" + gameID + ":feed:players" }
func answersFeed(gameID string) string { return "dtg:game:" + gameID + ":feed:answers" }

func (s *Store) CreateGame(ctx context.Context, code string) (domain.Game, error) {
	code = room.Normalize(code)
	g := domain.Game{
		ID:        uuid.New().String(),
		Code:      code,
		Status:    domain.StatusLobby,
		CreatedAt: s.now(),
	}
	ok, err := s.client.SetNX(ctx, codeKey(code), g.ID, s.ttl).Result()
	if err != nil {
		return domain.Game{}, fmt.Errorf("reserve code: %w", err)
	}
	if !ok {
		return domain.Game{}, domain.ErrCodeTaken
	}
	if err := s.writeGame(ctx, g); err != nil {
		return domain.Game{}, err
	}
	return g, nil
}

func (s *Store) writeGame(ctx context.Context, g domain.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	if err := s.client.Set(ctx, gameKey(g.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	if err := s.client.Publish(ctx, gameFeed(g.ID), raw).Err(); err != nil {
		return fmt.Errorf("publish game: %w", err)
	}
	return nil
}

func (s *Store) GameByID(ctx context.Context, id string) (domain.Game, error) {
	raw, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("read game: %w", err)
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	return g, nil
}

func (s *Store) GameByCode(ctx context.Context, code string) (domain.Game, error) {
	id, err := s.client.Get(ctx, codeKey(room.Normalize(code))).Result()
	if err == redis.Nil {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("resolve code: %w", err)
	}
	return s.GameByID(ctx, id)
}

func (s *Store) UpdateGame(ctx context.Context, id string, upd store.GameUpdate) (domain.Game, error) {
	g, err := s.GameByID(ctx, id)
	if err != nil {
		return domain.Game{}, err
	}
	if g.Status.Terminal() {
		if upd.Status == domain.StatusCancelled && g.Status == domain.StatusCancelled {
			return g, nil
		}
		return domain.Game{}, domain.ErrGameOver
	}
	g.Status = upd.Status
	if upd.CurrentQuestionIndex != nil {
		g.CurrentQuestionIndex = *upd.CurrentQuestionIndex
	}
	if upd.QuestionStartedAt != nil {
		g.QuestionStartedAt = *upd.QuestionStartedAt
	}
	if err := s.writeGame(ctx, g); err != nil {
		return domain.Game{}, err
	}
	return g, nil
}

func (s *Store) AddPlayer(ctx context.Context, gameID, username string) (domain.Player, error) {
	if _, err := s.GameByID(ctx, gameID); err != nil {
		return domain.Player{}, err
	}
	p := domain.Player{
		ID:       uuid.New().String(),
		GameID:   gameID,
		Username: username,
		JoinedAt: s.now(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return domain.Player{}, fmt.Errorf("marshal player: %w", err)
	}
	if err := s.client.HSet(ctx, playersKey(gameID), p.ID, raw).Err(); err != nil {
		return domain.Player{}, fmt.Errorf("write player: %w", err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, playersKey(gameID), s.ttl).Err()
	}
	if err := s.client.Publish(ctx, playersFeed(gameID), raw).Err(); err != nil {
		return domain.Player{}, fmt.Errorf("publish player: %w", err)
	}
	return p, nil
}

func (s *Store) Players(ctx context.Context, gameID string) ([]domain.Player, error) {
	rows, err := s.client.HGetAll(ctx, playersKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}
	scores, err := s.client.HGetAll(ctx, scoresKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	list := make([]domain.Player, 0, len(rows))
	for _, raw := range rows {
		var p domain.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal player: %w", err)
		}
		if scored, ok := scores[p.ID]; ok {
			if n, err := strconv.Atoi(scored); err == nil {
				p.Score = n
			}
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list, nil
}

// CountPlayers uses HLEN so the tally never transfers row bodies.
func (s *Store) CountPlayers(ctx context.Context, gameID string) (int, error) {
	n, err := s.client.HLen(ctx, playersKey(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return int(n), nil
}

// IncrementScore is a single HINCRBY, so concurrent reveal observations can
// never lose an update to a read-modify-write race.
func (s *Store) IncrementScore(ctx context.Context, gameID, playerID string, delta int) error {
	exists, err := s.client.HExists(ctx, playersKey(gameID), playerID).Result()
	if err != nil {
		return fmt.Errorf("check player: %w", err)
	}
	if !exists {
		return domain.ErrPlayerNotFound
	}
	if err := s.client.HIncrBy(ctx, scoresKey(gameID), playerID, int64(delta)).Err(); err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, scoresKey(gameID), s.ttl).Err()
	}
	return nil
}

func answerField(questionIndex int, playerID string) string {
	return fmt.Sprintf("%d:%s", questionIndex, playerID)
}

func (s *Store) InsertAnswer(ctx context.Context, ans domain.Answer) (domain.Answer, error) {
	if _, err := s.GameByID(ctx, ans.GameID); err != nil {
		return domain.Answer{}, err
	}
	ans.CreatedAt = s.now()
	raw, err := json.Marshal(ans)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("marshal answer: %w", err)
	}
	// HSETNX carries the one-answer-per-(player, question) invariant.
	stored, err := s.client.HSetNX(ctx, answersKey(ans.GameID), answerField(ans.QuestionIndex, ans.PlayerID), raw).Result()
	if err != nil {
		return domain.Answer{}, fmt.Errorf("write answer: %w", err)
	}
	if !stored {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, answersKey(ans.GameID), s.ttl).Err()
	}
	if err := s.client.Publish(ctx, answersFeed(ans.GameID), raw).Err(); err != nil {
		return domain.Answer{}, fmt.Errorf("publish answer: %w", err)
	}
	return ans, nil
}

func (s *Store) Answers(ctx context.Context, gameID string, questionIndex int) ([]domain.Answer, error) {
	return s.answers(ctx, gameID, fmt.Sprintf("%d:", questionIndex))
}

func (s *Store) GameAnswers(ctx context.Context, gameID string) ([]domain.Answer, error) {
	return s.answers(ctx, gameID, "")
}

func (s *Store) answers(ctx context.Context, gameID, fieldPrefix string) ([]domain.Answer, error) {
	rows, err := s.client.HGetAll(ctx, answersKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var list []domain.Answer
	for field, raw := range rows {
		if fieldPrefix != "" && !strings.HasPrefix(field, fieldPrefix) {
			continue
		}
		var ans domain.Answer
		if err := json.Unmarshal([]byte(raw), &ans); err != nil {
			return nil, fmt.Errorf("unmarshal answer: %w", err)
		}
		list = append(list, ans)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Store) SubscribeGame(ctx context.Context, gameID string) (<-chan domain.Game, func(), error) {
	return subscribe[domain.Game](ctx, s, gameID, gameFeed(gameID))
}

func (s *Store) SubscribePlayers(ctx context.Context, gameID string) (<-chan domain.Player, func(), error) {
	return subscribe[domain.Player](ctx, s, gameID, playersFeed(gameID))
}

func (s *Store) SubscribeAnswers(ctx context.Context, gameID string) (<-chan domain.Answer, func(), error) {
	return subscribe[domain.Answer](ctx, s, gameID, answersFeed(gameID))
}

// subscribe wires one pub/sub channel into a typed row feed. The cancel func
// is idempotent: closing the underlying subscription once ends the pump
// goroutine, which closes the typed channel on its way out.
func subscribe[T any](ctx context.Context, s *Store, gameID, channel string) (<-chan T, func(), error) {
	if _, err := s.GameByID(ctx, gameID); err != nil {
		return nil, nil, err
	}
	ps := s.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round trip so no early publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ch := make(chan T, 8)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var row T
			if err := json.Unmarshal([]byte(msg.Payload), &row); err != nil {
				continue
			}
			sendLatest(ch, row)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return ch, cancel, nil
}

// sendLatest drops the oldest pending notification when a subscriber lags.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

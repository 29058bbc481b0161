// Package memory is the in-process implementation of the game record store,
// suitable for single-instance deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/room"
	"github.com/micahela/debug-the-graduate/internal/store"
)

type answerKey struct {
	playerID      string
	questionIndex int
}

// Store keeps the three logical tables (games, players, answers) in maps and
// fans row changes out to per-game subscriber channels.
type Store struct {
	now func() time.Time

	mu      sync.RWMutex
	games   map[string]domain.Game
	byCode  map[string]string
	players map[string][]domain.Player
	answers map[string]map[answerKey]domain.Answer

	gameSubs   map[string]map[chan domain.Game]struct{}
	playerSubs map[string]map[chan domain.Player]struct{}
	answerSubs map[string]map[chan domain.Answer]struct{}
}

// NewStore builds an empty in-memory store.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now:        now,
		games:      make(map[string]domain.Game),
		byCode:     make(map[string]string),
		players:    make(map[string][]domain.Player),
		answers:    make(map[string]map[answerKey]domain.Answer),
		gameSubs:   make(map[string]map[chan domain.Game]struct{}),
		playerSubs: make(map[string]map[chan domain.Player]struct{}),
		answerSubs: make(map[string]map[chan domain.Answer]struct{}),
	}
}

func (s *Store) CreateGame(_ context.Context, code string) (domain.Game, error) {
	code = room.Normalize(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[code]; taken {
		return domain.Game{}, domain.ErrCodeTaken
	}
	g := domain.Game{
		ID:        uuid.New().String(),
		Code:      code,
		Status:    domain.StatusLobby,
		CreatedAt: s.now(),
	}
	s.games[g.ID] = g
	s.byCode[code] = g.ID
	return g, nil
}

func (s *Store) GameByID(_ context.Context, id string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return g, nil
}

func (s *Store) GameByCode(_ context.Context, code string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[room.Normalize(code)]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return s.games[id], nil
}

func (s *Store) UpdateGame(_ context.Context, id string, upd store.GameUpdate) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if g.Status.Terminal() {
		if upd.Status == domain.StatusCancelled && g.Status == domain.StatusCancelled {
			// Idempotent cancel: the second write is accepted harmlessly.
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
	s.games[id] = g
	s.broadcastGameLocked(g)
	return g, nil
}

func (s *Store) AddPlayer(_ context.Context, gameID, username string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return domain.Player{}, domain.ErrGameNotFound
	}
	p := domain.Player{
		ID:       uuid.New().String(),
		GameID:   gameID,
		Username: username,
		JoinedAt: s.now(),
	}
	s.players[gameID] = append(s.players[gameID], p)
	s.broadcastPlayerLocked(p)
	return p, nil
}

func (s *Store) Players(_ context.Context, gameID string) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := append([]domain.Player(nil), s.players[gameID]...)
	sort.Slice(list, func(i, j int) bool {
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list, nil
}

func (s *Store) CountPlayers(_ context.Context, gameID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players[gameID]), nil
}

func (s *Store) IncrementScore(_ context.Context, gameID, playerID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.players[gameID]
	for i := range list {
		if list[i].ID == playerID {
			list[i].Score += delta
			s.broadcastPlayerLocked(list[i])
			return nil
		}
	}
	return domain.ErrPlayerNotFound
}

func (s *Store) InsertAnswer(_ context.Context, ans domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[ans.GameID]; !ok {
		return domain.Answer{}, domain.ErrGameNotFound
	}
	rows, ok := s.answers[ans.GameID]
	if !ok {
		rows = make(map[answerKey]domain.Answer)
		s.answers[ans.GameID] = rows
	}
	key := answerKey{playerID: ans.PlayerID, questionIndex: ans.QuestionIndex}
	if _, exists := rows[key]; exists {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}
	ans.CreatedAt = s.now()
	rows[key] = ans
	s.broadcastAnswerLocked(ans)
	return ans, nil
}

func (s *Store) Answers(_ context.Context, gameID string, questionIndex int) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []domain.Answer
	for key, ans := range s.answers[gameID] {
		if key.questionIndex == questionIndex {
			list = append(list, ans)
		}
	}
	sortAnswers(list)
	return list, nil
}

func (s *Store) GameAnswers(_ context.Context, gameID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []domain.Answer
	for _, ans := range s.answers[gameID] {
		list = append(list, ans)
	}
	sortAnswers(list)
	return list, nil
}

func sortAnswers(list []domain.Answer) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func (s *Store) SubscribeGame(_ context.Context, gameID string) (<-chan domain.Game, func(), error) {
	ch := make(chan domain.Game, 8)
	s.mu.Lock()
	if _, ok := s.games[gameID]; !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrGameNotFound
	}
	subs, ok := s.gameSubs[gameID]
	if !ok {
		subs = make(map[chan domain.Game]struct{})
		s.gameSubs[gameID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Store) SubscribePlayers(_ context.Context, gameID string) (<-chan domain.Player, func(), error) {
	ch := make(chan domain.Player, 8)
	s.mu.Lock()
	if _, ok := s.games[gameID]; !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrGameNotFound
	}
	subs, ok := s.playerSubs[gameID]
	if !ok {
		subs = make(map[chan domain.Player]struct{})
		s.playerSubs[gameID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Store) SubscribeAnswers(_ context.Context, gameID string) (<-chan domain.Answer, func(), error) {
	ch := make(chan domain.Answer, 8)
	s.mu.Lock()
	if _, ok := s.games[gameID]; !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrGameNotFound
	}
	subs, ok := s.answerSubs[gameID]
	if !ok {
		subs = make(map[chan domain.Answer]struct{})
		s.answerSubs[gameID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Store) broadcastGameLocked(g domain.Game) {
	for ch := range s.gameSubs[g.ID] {
		sendLatest(ch, g)
	}
}

func (s *Store) broadcastPlayerLocked(p domain.Player) {
	for ch := range s.playerSubs[p.GameID] {
		sendLatest(ch, p)
	}
}

func (s *Store) broadcastAnswerLocked(a domain.Answer) {
	for ch := range s.answerSubs[a.GameID] {
		sendLatest(ch, a)
	}
}

// sendLatest drops the oldest pending notification when a subscriber lags,
// so a slow client never blocks the broadcast.
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

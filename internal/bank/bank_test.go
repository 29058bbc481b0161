package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

func validBank() domain.Bank {
	return domain.Bank{ID: "b1", Questions: []domain.Question{
		{Text: "q1", Options: []string{"a", "b"}, CorrectIndices: []int{0}},
		{Text: "q2", Options: []string{"a", "b", "c"}, CorrectIndices: []int{1, 2}},
		{Text: "q3", Type: domain.QuestionWordcloud},
	}}
}

func TestValidateAcceptsWellFormedBank(t *testing.T) {
	if err := Validate(validBank()); err != nil {
		t.Fatalf("expected valid bank, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		bank domain.Bank
	}{
		{"empty bank", domain.Bank{ID: "b"}},
		{"single option", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a"}, CorrectIndices: []int{0}},
		}}},
		{"no correct option", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a", "b"}},
		}}},
		{"correct index out of range", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a", "b"}, CorrectIndices: []int{2}},
		}}},
		{"negative correct index", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a", "b"}, CorrectIndices: []int{-1}},
		}}},
		{"duplicate correct index", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a", "b"}, CorrectIndices: []int{0, 0}},
		}}},
		{"wordcloud with options", domain.Bank{Questions: []domain.Question{
			{Type: domain.QuestionWordcloud, Options: []string{"a", "b"}},
		}}},
		{"negative time limit", domain.Bank{Questions: []domain.Question{
			{Options: []string{"a", "b"}, CorrectIndices: []int{0}, TimeLimitSeconds: -5},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.bank)
			if !errors.Is(err, domain.ErrInvalidBank) {
				t.Fatalf("expected ErrInvalidBank, got %v", err)
			}
		})
	}
}

func TestStaticLoader(t *testing.T) {
	ctx := context.Background()
	l := NewStaticLoader(map[string]domain.Bank{"b1": validBank()})

	b, err := l.LoadBank(ctx, "b1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.ID != "b1" || len(b.Questions) != 3 {
		t.Fatalf("unexpected bank: %+v", b)
	}
	if _, err := l.LoadBank(ctx, "missing"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
	bank  domain.Bank
	err   error
}

func (l *countingLoader) LoadBank(context.Context, string) (domain.Bank, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return domain.Bank{}, l.err
	}
	return l.bank, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestRepositoryCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{bank: validBank()}
	repo := NewRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := repo.GetBank(ctx, "b1"); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if got := loader.count(); got != 1 {
		t.Fatalf("expected a single loader hit within the TTL, got %d", got)
	}
}

func TestRepositoryReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{bank: validBank()}
	repo := NewRepository(loader, time.Minute)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetBank(ctx, "b1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetBank(ctx, "b1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := loader.count(); got != 2 {
		t.Fatalf("expected a reload after expiry, got %d hits", got)
	}
}

func TestRepositoryRejectsInvalidBank(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{bank: domain.Bank{ID: "bad"}}
	repo := NewRepository(loader, time.Minute)

	if _, err := repo.GetBank(ctx, "bad"); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected ErrInvalidBank, got %v", err)
	}
	// Failures are not cached; the next call hits the loader again.
	if _, err := repo.GetBank(ctx, "bad"); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected ErrInvalidBank, got %v", err)
	}
	if got := loader.count(); got != 2 {
		t.Fatalf("expected 2 loader hits, got %d", got)
	}
}

func TestRepositoryPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{err: domain.ErrBankNotFound}
	repo := NewRepository(loader, time.Minute)

	if _, err := repo.GetBank(ctx, "b1"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

// Distinct ids load under distinct singleflight keys, so their cache fills
// (and TTL jitter draws) run concurrently.
func TestRepositoryConcurrentDistinctBanks(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{bank: validBank()}
	repo := NewRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("bank-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetBank(ctx, id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
		}()
	}
	wg.Wait()
	if got := loader.count(); got != 8 {
		t.Fatalf("expected one loader hit per bank, got %d", got)
	}
}

func TestRepositoryConcurrentMissesCollapse(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{bank: validBank()}
	repo := NewRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetBank(ctx, "b1"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := loader.count(); got > 2 {
		t.Fatalf("concurrent misses must collapse, got %d loader hits", got)
	}
}

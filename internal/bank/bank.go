// Package bank loads and validates question banks: the static, ordered
// question lists games run through.
package bank

import (
	"context"
	"fmt"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

// Loader fetches bank content from a backing store.
type Loader interface {
	LoadBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// Validate rejects malformed banks at load time, so the game never has to
// guess at runtime: a choice question with an empty correct set would make
// an empty submission "correct", which is a configuration mistake.
func Validate(b domain.Bank) error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: bank %q has no questions", domain.ErrInvalidBank, b.ID)
	}
	for i, q := range b.Questions {
		switch q.Kind() {
		case domain.QuestionChoice:
			if len(q.Options) < 2 {
				return fmt.Errorf("%w: question %d needs at least two options", domain.ErrInvalidBank, i)
			}
			if len(q.CorrectIndices) == 0 {
				return fmt.Errorf("%w: question %d has no correct option", domain.ErrInvalidBank, i)
			}
			seen := make(map[int]struct{}, len(q.CorrectIndices))
			for _, idx := range q.CorrectIndices {
				if idx < 0 || idx >= len(q.Options) {
					return fmt.Errorf("%w: question %d correct index %d out of range", domain.ErrInvalidBank, i, idx)
				}
				if _, dup := seen[idx]; dup {
					return fmt.Errorf("%w: question %d repeats correct index %d", domain.ErrInvalidBank, i, idx)
				}
				seen[idx] = struct{}{}
			}
		case domain.QuestionWordcloud:
			if len(q.Options) != 0 || len(q.CorrectIndices) != 0 {
				return fmt.Errorf("%w: wordcloud question %d must not carry options", domain.ErrInvalidBank, i)
			}
		}
		if q.TimeLimitSeconds < 0 {
			return fmt.Errorf("%w: question %d has a negative time limit", domain.ErrInvalidBank, i)
		}
	}
	return nil
}

// StaticLoader serves banks from an in-memory map (demos and tests).
type StaticLoader struct {
	banks map[string]domain.Bank
}

func NewStaticLoader(banks map[string]domain.Bank) *StaticLoader {
	return &StaticLoader{banks: banks}
}

func (l *StaticLoader) LoadBank(_ context.Context, bankID string) (domain.Bank, error) {
	if b, ok := l.banks[bankID]; ok {
		return b, nil
	}
	return domain.Bank{}, domain.ErrBankNotFound
}

package domain_test

import (
	"testing"
	"time"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

func TestIsCorrectSelectionSetEquality(t *testing.T) {
	q := domain.Question{
		Text:           "pick three",
		Options:        []string{"a", "b", "c", "d"},
		CorrectIndices: []int{1, 2, 3},
	}

	cases := []struct {
		name     string
		selected []int
		want     bool
	}{
		{"exact match", []int{1, 2, 3}, true},
		{"order irrelevant", []int{3, 1, 2}, true},
		{"subset", []int{1, 2}, false},
		{"superset", []int{1, 2, 3, 0}, false},
		{"empty against non-empty", nil, false},
		{"disjoint", []int{0}, false},
		{"duplicates collapse", []int{1, 1, 2, 3}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := q.IsCorrectSelection(tc.selected); got != tc.want {
				t.Fatalf("IsCorrectSelection(%v) = %v, want %v", tc.selected, got, tc.want)
			}
		})
	}
}

func TestWordcloudNeverCorrect(t *testing.T) {
	q := domain.Question{Text: "one word", Type: domain.QuestionWordcloud}
	if q.IsCorrectSelection(nil) {
		t.Fatal("wordcloud question must never report a correct selection")
	}
}

func TestKindDefaultsToChoice(t *testing.T) {
	q := domain.Question{Text: "untyped"}
	if q.Kind() != domain.QuestionChoice {
		t.Fatalf("expected choice, got %s", q.Kind())
	}
}

func TestTimeLimitDefault(t *testing.T) {
	q := domain.Question{}
	if q.TimeLimit() != 20*time.Second {
		t.Fatalf("expected 20s default, got %s", q.TimeLimit())
	}
	q.TimeLimitSeconds = 45
	if q.TimeLimit() != 45*time.Second {
		t.Fatalf("expected 45s, got %s", q.TimeLimit())
	}
}

func TestRoleTagging(t *testing.T) {
	host := domain.HostRole()
	if !host.IsHost() {
		t.Fatal("host role must report IsHost")
	}
	if _, ok := host.PlayerID(); ok {
		t.Fatal("host role must not carry a player id")
	}

	player := domain.PlayerRole("p1")
	if player.IsHost() {
		t.Fatal("player role must not report IsHost")
	}
	if id, ok := player.PlayerID(); !ok || id != "p1" {
		t.Fatalf("expected p1, got %q ok=%v", id, ok)
	}
}

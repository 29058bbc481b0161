package game

import (
	"testing"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

func TestLeaderboardBandsAndTies(t *testing.T) {
	// Seven players with scores [3,3,2,2,2,1,0].
	players := []domain.Player{
		{ID: "p1", Username: "gina"},
		{ID: "p2", Username: "ashley"},
		{ID: "p3", Username: "melanie"},
		{ID: "p4", Username: "bree"},
		{ID: "p5", Username: "carla"},
		{ID: "p6", Username: "dana"},
		{ID: "p7", Username: "zoe"},
	}
	var answers []domain.Answer
	scores := map[string]int{"p1": 3, "p2": 3, "p3": 2, "p4": 2, "p5": 2, "p6": 1, "p7": 0}
	for id, n := range scores {
		for i := 0; i < n; i++ {
			answers = append(answers, domain.Answer{GameID: "g1", PlayerID: id, QuestionIndex: i, IsCorrect: true})
		}
	}
	// Incorrect rows never contribute.
	answers = append(answers, domain.Answer{GameID: "g1", PlayerID: "p7", QuestionIndex: 0, IsCorrect: false})

	rows := Leaderboard(players, answers)
	if len(rows) != 7 {
		t.Fatalf("expected all 7 players listed, got %d", len(rows))
	}

	wantOrder := []string{"ashley", "gina", "bree", "carla", "melanie", "dana", "zoe"}
	wantBands := []Band{BandGold, BandGold, BandSilver, BandSilver, BandSilver, BandBronze, BandNone}
	for i, row := range rows {
		if row.Username != wantOrder[i] {
			t.Fatalf("row %d: expected %s, got %s", i, wantOrder[i], row.Username)
		}
		if row.Band != wantBands[i] {
			t.Fatalf("row %d (%s): expected band %q, got %q", i, row.Username, wantBands[i], row.Band)
		}
	}
	if rows[6].Score != 0 {
		t.Fatalf("player without correct answers must appear at 0, got %d", rows[6].Score)
	}
}

func TestLeaderboardFewerThanThreeBands(t *testing.T) {
	players := []domain.Player{
		{ID: "p1", Username: "alice"},
		{ID: "p2", Username: "bob"},
	}
	answers := []domain.Answer{
		{PlayerID: "p1", QuestionIndex: 0, IsCorrect: true},
	}

	rows := Leaderboard(players, answers)
	if rows[0].Band != BandGold || rows[1].Band != BandSilver {
		t.Fatalf("two distinct scores yield gold and silver only, got %q %q", rows[0].Band, rows[1].Band)
	}
}

func TestLeaderboardNoPlayers(t *testing.T) {
	if rows := Leaderboard(nil, nil); len(rows) != 0 {
		t.Fatalf("expected empty leaderboard, got %d rows", len(rows))
	}
}

func TestWordcloudTally(t *testing.T) {
	answers := []domain.Answer{
		{PlayerID: "p1", FreeText: "  Brilliant "},
		{PlayerID: "p2", FreeText: "brilliant"},
		{PlayerID: "p3", FreeText: "BRILLIANT"},
		{PlayerID: "p4", FreeText: "kind"},
		{PlayerID: "p5", FreeText: "   "},
		{PlayerID: "p6", FreeText: ""},
	}
	entries := WordcloudTally(answers)
	if len(entries) != 2 {
		t.Fatalf("expected 2 distinct words, got %d", len(entries))
	}
	if entries[0].Word != "brilliant" || entries[0].Count != 3 {
		t.Fatalf("expected brilliant x3 first, got %+v", entries[0])
	}
	if entries[1].Word != "kind" || entries[1].Count != 1 {
		t.Fatalf("expected kind x1 second, got %+v", entries[1])
	}
}

func TestAnsweredCountDistinctPlayers(t *testing.T) {
	answers := []domain.Answer{
		{PlayerID: "p1"},
		{PlayerID: "p2"},
		{PlayerID: "p1"},
	}
	if got := AnsweredCount(answers); got != 2 {
		t.Fatalf("duplicate rows must not inflate the tally: got %d", got)
	}
}

func TestAllAnswered(t *testing.T) {
	cases := []struct {
		progress Progress
		want     bool
	}{
		{Progress{Answered: 0, Total: 0}, false},
		{Progress{Answered: 5, Total: 0}, false},
		{Progress{Answered: 0, Total: 3}, false},
		{Progress{Answered: 2, Total: 3}, false},
		{Progress{Answered: 3, Total: 3}, true},
		{Progress{Answered: 4, Total: 3}, true},
		{Progress{Answered: 1, Total: 1}, true},
	}
	for _, tc := range cases {
		if got := tc.progress.AllAnswered(); got != tc.want {
			t.Fatalf("%+v: got %v, want %v", tc.progress, got, tc.want)
		}
	}
}

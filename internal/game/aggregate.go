package game

import (
	"sort"
	"strings"

	"github.com/micahela/debug-the-graduate/internal/domain"
)

// Band is a leaderboard tier keyed by one of the top three unique scores.
// Ties share a band, so a band may hold more than one player.
type Band string

const (
	BandGold   Band = "gold"
	BandSilver Band = "silver"
	BandBronze Band = "bronze"
	BandNone   Band = ""
)

// LeaderboardRow is one ranked player on the results screen.
type LeaderboardRow struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Band     Band   `json:"band,omitempty"`
}

// Leaderboard tallies one point per correct answer, ranks descending by
// score with ties broken by username, and color-bands the top three unique
// score values. Players without a single answer appear with score 0.
// Wordcloud submissions never carry is_correct and so never contribute.
func Leaderboard(players []domain.Player, answers []domain.Answer) []LeaderboardRow {
	scores := make(map[string]int, len(players))
	for _, a := range answers {
		if a.IsCorrect {
			scores[a.PlayerID]++
		}
	}

	rows := make([]LeaderboardRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, LeaderboardRow{
			PlayerID: p.ID,
			Username: p.Username,
			Score:    scores[p.ID],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Username < rows[j].Username
	})

	unique := make([]int, 0, 3)
	for _, r := range rows {
		if len(unique) > 0 && unique[len(unique)-1] == r.Score {
			continue
		}
		unique = append(unique, r.Score)
		if len(unique) == 3 {
			break
		}
	}
	bands := [...]Band{BandGold, BandSilver, BandBronze}
	for i := range rows {
		for b, score := range unique {
			if rows[i].Score == score {
				rows[i].Band = bands[b]
				break
			}
		}
	}
	return rows
}

// CloudEntry is one word of the live frequency display.
type CloudEntry struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordcloudTally folds free-text answers into case-insensitive frequencies.
// Entries are trimmed; empty submissions are dropped. Output is ordered by
// count descending, then word ascending, so renders are stable.
func WordcloudTally(answers []domain.Answer) []CloudEntry {
	counts := make(map[string]int)
	for _, a := range answers {
		word := strings.ToLower(strings.TrimSpace(a.FreeText))
		if word == "" {
			continue
		}
		counts[word]++
	}
	entries := make([]CloudEntry, 0, len(counts))
	for word, count := range counts {
		entries = append(entries, CloudEntry{Word: word, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Word < entries[j].Word
	})
	return entries
}

// AnsweredCount counts distinct players among the answers for one question,
// so a duplicate row can never push the tally past the roster size.
func AnsweredCount(answers []domain.Answer) int {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		seen[a.PlayerID] = struct{}{}
	}
	return len(seen)
}

// Progress is the host's live view of how many players have answered.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// AllAnswered reports whether the early-reveal condition holds. An empty
// roster never triggers a reveal.
func (p Progress) AllAnswered() bool {
	return p.Total > 0 && p.Answered >= p.Total
}

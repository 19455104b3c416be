package roster

import (
	"testing"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

func player(id int64, level int, gender models.Gender) models.Player {
	return models.Player{ID: id, FirstName: "P", LastName: "X", Level: &level, Gender: &gender}
}

func males(levels ...int) []models.Player {
	players := make([]models.Player, 0, len(levels))
	for i, level := range levels {
		players = append(players, player(int64(i+1), level, models.GenderMale))
	}
	return players
}

func ptr(v int64) *int64 {
	return &v
}

func TestTeamPoints(t *testing.T) {
	scoring := DefaultScoring()

	tests := []struct {
		name    string
		players []models.Player
		libero  *int64
		want    int
	}{
		{"empty roster", nil, nil, 0},
		{"five males", males(7, 6, 5, 4, 3), nil, 28},
		{"six males sum everything", males(7, 6, 5, 4, 3, 1), nil, 29},
		{"seven males only top six", males(7, 6, 5, 4, 3, 3, 1), nil, 31},
		{"unsorted input", males(3, 7, 1, 5, 4, 3, 6), nil, 31},
		{"libero skipped in small roster", males(7, 6, 5), ptr(1), 13},
		{"libero replaced by seventh", males(7, 6, 5, 4, 3, 3, 2), ptr(1), 24},
		{"libero outside top six", males(7, 6, 5, 4, 3, 3, 1), ptr(7), 31},
		{"libero only member", males(7), ptr(1), 0},
		{
			"mixed genders",
			[]models.Player{player(1, 7, models.GenderMale), player(2, 7, models.GenderFemale), player(3, 4, models.GenderFemale)},
			nil,
			8 + 6 + 2,
		},
		{
			"missing level and gender are worth nothing",
			[]models.Player{player(1, 5, models.GenderMale), {ID: 2}},
			nil,
			6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoring.TeamPoints(tt.players, tt.libero)
			if got != tt.want {
				t.Errorf("TeamPoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTeamPointsSmallRosterSumsAll(t *testing.T) {
	scoring := DefaultScoring()
	for size := 1; size <= TeamScoreSize; size++ {
		players := make([]models.Player, 0, size)
		want := 0
		for i := 0; i < size; i++ {
			gender := models.GenderMale
			if i%2 == 1 {
				gender = models.GenderFemale
			}
			p := player(int64(i+1), 1+i%7, gender)
			players = append(players, p)
			want += scoring.PlayerPoints(p)
		}
		if got := scoring.TeamPoints(players, nil); got != want {
			t.Fatalf("size %d: TeamPoints() = %d, want %d", size, got, want)
		}
	}
}

func TestTeamPointsWeakSeventhDoesNotChangeScore(t *testing.T) {
	scoring := DefaultScoring()
	base := males(7, 6, 5, 4, 3, 2)
	before := scoring.TeamPoints(base, nil)

	extended := append(append([]models.Player{}, base...), player(99, 1, models.GenderMale))
	after := scoring.TeamPoints(extended, nil)
	if before != after {
		t.Fatalf("adding a weak seventh player changed the score: %d -> %d", before, after)
	}
}

func TestTeamPointsTieBreaksOnPoints(t *testing.T) {
	scoring := DefaultScoring()
	players := males(5, 5, 5, 5, 5)
	female := player(10, 5, models.GenderFemale)
	male := player(11, 5, models.GenderMale)

	first := scoring.TeamPoints(append(append([]models.Player{}, players...), female, male), nil)
	second := scoring.TeamPoints(append(append([]models.Player{}, players...), male, female), nil)
	if first != second {
		t.Fatalf("score depends on input order: %d vs %d", first, second)
	}
	if first != 36 {
		t.Fatalf("expected the male player to be counted, got %d", first)
	}
}

func TestFloorLevel(t *testing.T) {
	if got := DefaultScoring().FloorLevel(); got != 1 {
		t.Fatalf("FloorLevel() = %d, want 1", got)
	}
}

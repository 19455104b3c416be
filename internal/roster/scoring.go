// Package roster holds the team composition rules of the club: team point
// totals, join eligibility for tournament teams and promotion from the
// reserve queue.
package roster

import (
	"sort"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

// TeamScoreSize is the number of strongest players counted in a team total.
const TeamScoreSize = 6

// Tier is the label and point cap of a tournament level.
type Tier struct {
	Label string
	Cap   int
}

// Scoring is the club's point configuration. It is built once at start-up
// and passed to the calculator and the policy.
type Scoring struct {
	// Points maps gender to player level to point value.
	Points map[models.Gender]map[int]int
	// Tiers maps tournament level to its label and point cap.
	Tiers map[int]Tier
	// Levels maps player level to its display label.
	Levels map[int]string
}

// DefaultScoring returns the club tables.
func DefaultScoring() Scoring {
	return Scoring{
		Points: map[models.Gender]map[int]int{
			models.GenderMale:   {1: 1, 2: 1, 3: 3, 4: 4, 5: 6, 6: 7, 7: 8},
			models.GenderFemale: {1: 0, 2: 1, 3: 1, 4: 2, 5: 3, 6: 5, 7: 6},
		},
		Tiers: map[int]Tier{
			2: {Label: "🏐 Новичок+", Cap: 12},
			3: {Label: "🥉 Лайт", Cap: 16},
			4: {Label: "🥈 Лайт +", Cap: 19},
			5: {Label: "🥇 Лайт ++", Cap: 22},
			6: {Label: "🏅 Медиум", Cap: 28},
			7: {Label: "🏆 Хард", Cap: 36},
		},
		Levels: map[int]string{
			1: "Новичок",
			2: "🏐 Новичок+",
			3: "🥉 Лайт",
			4: "🥈 Лайт +",
			5: "🥇 Лайт ++",
			6: "🏅 Медиум",
			7: "🏆 Хард",
		},
	}
}

// FloorLevel is the lowest defined player level.
func (s Scoring) FloorLevel() int {
	floor := 0
	for level := range s.Levels {
		if floor == 0 || level < floor {
			floor = level
		}
	}
	return floor
}

// SortedLevels returns the defined player levels in ascending order.
func (s Scoring) SortedLevels() []int {
	levels := make([]int, 0, len(s.Levels))
	for level := range s.Levels {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// SortedTiers returns the tournament levels in ascending order.
func (s Scoring) SortedTiers() []int {
	levels := make([]int, 0, len(s.Tiers))
	for level := range s.Tiers {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (s Scoring) LevelLabel(level int) string {
	if label, ok := s.Levels[level]; ok {
		return label
	}
	return "уровень не определен"
}

// Cap returns the point cap of a tournament level. Unknown levels have no
// cap configured and report ok=false.
func (s Scoring) Cap(tournamentLevel int) (int, bool) {
	tier, ok := s.Tiers[tournamentLevel]
	if !ok {
		return 0, false
	}
	return tier.Cap, true
}

// PlayerPoints looks up the point value of a single player. Players without
// level or gender are worth nothing.
func (s Scoring) PlayerPoints(p models.Player) int {
	if p.Level == nil || p.Gender == nil {
		return 0
	}
	table, ok := s.Points[*p.Gender]
	if !ok {
		return 0
	}
	return table[*p.Level]
}

package roster

import (
	"sort"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

// TeamPoints computes the aggregate skill score of a roster.
//
// Only the TeamScoreSize strongest players count. When the libero is among
// them, the next ranked player's points are used instead if the roster has
// one; otherwise the libero simply contributes nothing.
func (s Scoring) TeamPoints(players []models.Player, liberoID *int64) int {
	if len(players) == 0 {
		return 0
	}

	ranked := make([]models.Player, len(players))
	copy(ranked, players)
	// Ties on level keep the higher point value first so the total never
	// depends on storage order.
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := ranked[i].LevelValue(), ranked[j].LevelValue()
		if li != lj {
			return li > lj
		}
		return s.PlayerPoints(ranked[i]) > s.PlayerPoints(ranked[j])
	})

	top := ranked
	if len(top) > TeamScoreSize {
		top = ranked[:TeamScoreSize]
	}

	total := 0
	for _, p := range top {
		if liberoID != nil && p.ID == *liberoID {
			if len(ranked) > TeamScoreSize {
				total += s.PlayerPoints(ranked[TeamScoreSize])
			}
			continue
		}
		total += s.PlayerPoints(p)
	}
	return total
}

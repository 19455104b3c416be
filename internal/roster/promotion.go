package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

// ReserveStore is the persistence the promoter works against. Lookups
// return nil without error when the reserve is empty. Promote* calls flip
// exactly one entry and report false when the entry is no longer in the
// reserve.
type ReserveStore interface {
	CountMainTeams(ctx context.Context, tournamentID int64) (int, error)
	OldestReserveTeam(ctx context.Context, tournamentID int64) (*models.Team, error)
	PromoteTeam(ctx context.Context, teamID int64, at time.Time) (bool, error)

	CountEventPlayers(ctx context.Context, eventID int64) (int, error)
	OldestReserveEntry(ctx context.Context, eventID int64) (*models.ReserveEntry, error)
	PromoteReserveEntry(ctx context.Context, entry models.ReserveEntry) (bool, error)
}

// Promotion describes the entity moved from reserve to the main roster.
// Exactly one of Team and Player is set.
type Promotion struct {
	TournamentID int64
	EventID      int64
	Team         *models.Team
	Player       *models.Player
}

type Promoter struct {
	store ReserveStore
	now   func() time.Time
}

func NewPromoter(store ReserveStore, now func() time.Time) *Promoter {
	if now == nil {
		now = time.Now
	}
	return &Promoter{store: store, now: now}
}

// PromoteTeam moves the earliest reserve team of the tournament to the main
// roster when a main slot is free. It promotes at most one team per call.
func (p *Promoter) PromoteTeam(ctx context.Context, tournament *models.Tournament) (*Promotion, error) {
	now := p.now()
	if tournament == nil || !tournament.Active || !now.Before(tournament.Date) {
		return nil, nil
	}
	main, err := p.store.CountMainTeams(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("count main teams: %w", err)
	}
	if main >= tournament.MaxTeamCount {
		return nil, nil
	}
	team, err := p.store.OldestReserveTeam(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("oldest reserve team: %w", err)
	}
	if team == nil {
		return nil, nil
	}
	ok, err := p.store.PromoteTeam(ctx, team.ID, now)
	if err != nil {
		return nil, fmt.Errorf("promote team %d: %w", team.ID, err)
	}
	if !ok {
		return nil, nil
	}
	team.Reserve = false
	team.PromotedAt = &now
	return &Promotion{TournamentID: tournament.ID, Team: team}, nil
}

// PromotePlayer moves the earliest reserve player of the event to the
// registered list when a place is free. It promotes at most one player.
func (p *Promoter) PromotePlayer(ctx context.Context, event *models.Event) (*Promotion, error) {
	if event == nil || !event.Active || !p.now().Before(event.Date) {
		return nil, nil
	}
	registered, err := p.store.CountEventPlayers(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("count event players: %w", err)
	}
	if registered >= event.Places {
		return nil, nil
	}
	entry, err := p.store.OldestReserveEntry(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("oldest reserve entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	ok, err := p.store.PromoteReserveEntry(ctx, *entry)
	if err != nil {
		return nil, fmt.Errorf("promote reserve entry %d: %w", entry.ID, err)
	}
	if !ok {
		return nil, nil
	}
	player := entry.Player
	return &Promotion{EventID: event.ID, Player: &player}, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

type TournamentsService interface {
	Create(ctx context.Context, input CreateTournamentInput) (int64, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Tournament, error)
	Get(ctx context.Context, id int64) (*models.Tournament, error)
	Delete(ctx context.Context, id, adminID int64) error
}

type CreateTournamentInput struct {
	Type           string
	Title          string
	Date           time.Time
	MinTeamCount   int
	MaxTeamCount   int
	MinTeamPlayers int
	MaxTeamPlayers int
	Level          int
	Price          int
}

type tournamentsService struct {
	Deps
}

func NewTournamentsService(deps Deps) TournamentsService {
	return &tournamentsService{Deps: deps}
}

func (s *tournamentsService) Create(ctx context.Context, input CreateTournamentInput) (int64, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return 0, fmt.Errorf("title: %w", models.ErrValidation)
	}
	if input.MaxTeamCount <= 0 || input.MinTeamCount < 0 || input.MinTeamCount > input.MaxTeamCount {
		return 0, fmt.Errorf("team count: %w", models.ErrValidation)
	}
	if input.MaxTeamPlayers <= 0 || input.MinTeamPlayers < 0 || input.MinTeamPlayers > input.MaxTeamPlayers {
		return 0, fmt.Errorf("team players: %w", models.ErrValidation)
	}
	if _, ok := s.Policy.Scoring().Cap(input.Level); !ok {
		return 0, fmt.Errorf("level %d: %w", input.Level, models.ErrValidation)
	}
	if input.Price < 0 {
		return 0, fmt.Errorf("price: %w", models.ErrValidation)
	}
	if !input.Date.After(s.now()) {
		return 0, fmt.Errorf("date: %w", models.ErrValidation)
	}
	return s.Tournaments.Create(ctx, models.Tournament{
		Type:           input.Type,
		Title:          input.Title,
		Date:           input.Date,
		MinTeamCount:   input.MinTeamCount,
		MaxTeamCount:   input.MaxTeamCount,
		MinTeamPlayers: input.MinTeamPlayers,
		MaxTeamPlayers: input.MaxTeamPlayers,
		Active:         true,
		Level:          input.Level,
		Price:          input.Price,
	})
}

func (s *tournamentsService) List(ctx context.Context, filter models.EventFilter) ([]models.Tournament, error) {
	return s.Tournaments.List(ctx, filter)
}

func (s *tournamentsService) Get(ctx context.Context, id int64) (*models.Tournament, error) {
	return s.Tournaments.Get(ctx, id)
}

// Delete drops the tournament with all of its teams and tells every member.
func (s *tournamentsService) Delete(ctx context.Context, id, adminID int64) error {
	tournament, err := s.Tournaments.Get(ctx, id)
	if err != nil {
		return err
	}
	teams, err := s.Teams.ListByTournament(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Tournaments.Delete(ctx, id); err != nil {
		return err
	}
	s.logInfo("delete", "tournament", id, adminID, "ok")

	var recipients []int64
	for _, team := range teams {
		recipients = append(recipients, playerTgIDs(team.Players)...)
	}
	text := fmt.Sprintf("Турнир «%s» %s отменён администратором.", tournament.Title, s.formatDate(tournament.Date))
	s.deliver(s.Notifier.NotifyMany(ctx, recipients, text), "notify_delete", "tournament", id)
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

const maxTeamTitle = 30

// JoinCheck is a roster decision together with the records it was made on.
type JoinCheck struct {
	Team       models.Team
	Tournament models.Tournament
	Candidate  models.Player
	Decision   roster.Decision
}

type TeamsService interface {
	Create(ctx context.Context, input CreateTeamInput) (*models.Team, roster.Decision, error)
	Get(ctx context.Context, id int64) (*models.Team, error)
	List(ctx context.Context, tournamentID int64) (main []models.Team, reserve []models.Team, err error)
	CheckJoin(ctx context.Context, teamID int64, candidate models.Player, asLibero bool) (JoinCheck, error)
	Accept(ctx context.Context, teamID, candidateID, leaderID int64, asLibero bool) (JoinCheck, error)
	Refuse(ctx context.Context, teamID, candidateID, leaderID int64) error
	Leave(ctx context.Context, teamID int64, player models.Player) (*roster.Promotion, error)
	// Remove deletes the team, tells its members why and promotes the next
	// reserve team when a main slot was freed.
	Remove(ctx context.Context, teamID, actorID int64, reason string) (*roster.Promotion, error)
	Points(team models.Team) int
}

type CreateTeamInput struct {
	TournamentID int64
	Title        string
	Leader       models.Player
}

type teamsService struct {
	Deps
}

func NewTeamsService(deps Deps) TeamsService {
	return &teamsService{Deps: deps}
}

func profileComplete(p models.Player) error {
	if p.Level == nil {
		return fmt.Errorf("level not assigned: %w", models.ErrValidation)
	}
	if p.Gender == nil {
		return fmt.Errorf("gender not set: %w", models.ErrValidation)
	}
	return nil
}

func (s *teamsService) openTournament(ctx context.Context, id int64) (*models.Tournament, error) {
	tournament, err := s.Tournaments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tournament.Active || !s.now().Before(tournament.Date) {
		return nil, fmt.Errorf("tournament %d: %w", id, models.ErrInactive)
	}
	return tournament, nil
}

func (s *teamsService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, roster.Decision, error) {
	var decision roster.Decision
	title := strings.TrimSpace(input.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTeamTitle {
		return nil, decision, fmt.Errorf("title: %w", models.ErrValidation)
	}
	if err := profileComplete(input.Leader); err != nil {
		return nil, decision, err
	}
	tournament, err := s.openTournament(ctx, input.TournamentID)
	if err != nil {
		return nil, decision, err
	}
	teams, err := s.Teams.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, decision, err
	}

	decision = s.Policy.EvaluateLeader(input.Leader, *tournament, teams)
	if !decision.Eligible {
		return nil, decision, nil
	}

	main, _ := models.TournamentTeams(teams)
	team := models.Team{
		TournamentID: tournament.ID,
		Title:        title,
		LeaderID:     input.Leader.ID,
		Reserve:      len(main) >= tournament.MaxTeamCount,
		CreatedAt:    s.now(),
		Players:      []models.Player{input.Leader},
	}
	id, err := s.Teams.Create(ctx, team)
	if err != nil {
		return nil, decision, err
	}
	team.ID = id

	status := "ok"
	if team.Reserve {
		status = "reserve"
	}
	s.logInfo("create", "team", id, input.Leader.TgID, status)
	return &team, decision, nil
}

func (s *teamsService) Get(ctx context.Context, id int64) (*models.Team, error) {
	return s.Teams.Get(ctx, id)
}

func (s *teamsService) List(ctx context.Context, tournamentID int64) ([]models.Team, []models.Team, error) {
	teams, err := s.Teams.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	main, reserve := models.TournamentTeams(teams)
	return main, reserve, nil
}

func (s *teamsService) check(ctx context.Context, teamID int64, candidate models.Player, asLibero bool) (JoinCheck, error) {
	var check JoinCheck
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return check, err
	}
	tournament, err := s.openTournament(ctx, team.TournamentID)
	if err != nil {
		return check, err
	}
	teams, err := s.Teams.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return check, err
	}
	check = JoinCheck{Team: *team, Tournament: *tournament, Candidate: candidate}
	check.Decision = s.Policy.Evaluate(roster.JoinRequest{
		Candidate:  candidate,
		Team:       *team,
		Tournament: *tournament,
		Teams:      teams,
		AsLibero:   asLibero,
	})
	return check, nil
}

// CheckJoin evaluates a join request before it is forwarded to the captain.
func (s *teamsService) CheckJoin(ctx context.Context, teamID int64, candidate models.Player, asLibero bool) (JoinCheck, error) {
	if err := profileComplete(candidate); err != nil {
		return JoinCheck{}, err
	}
	return s.check(ctx, teamID, candidate, asLibero)
}

// Accept re-evaluates the request against the current roster, since it may
// have changed while the captain was deciding, and applies it.
func (s *teamsService) Accept(ctx context.Context, teamID, candidateID, leaderID int64, asLibero bool) (JoinCheck, error) {
	candidate, err := s.Players.Get(ctx, candidateID)
	if err != nil {
		return JoinCheck{}, err
	}
	check, err := s.check(ctx, teamID, *candidate, asLibero)
	if err != nil {
		return check, err
	}
	if check.Team.LeaderID != leaderID {
		return check, fmt.Errorf("player %d is not the captain of team %d: %w", leaderID, teamID, models.ErrValidation)
	}

	if !check.Decision.Eligible {
		s.logInfo("accept", "team", teamID, candidate.TgID, string(check.Decision.Reason))
		s.deliver([]notify.Result{s.Notifier.Notify(ctx, candidate.TgID, fmt.Sprintf(
			"Не удалось вступить в команду «%s»: %s.", check.Team.Title, check.Decision.Reason.Message()))},
			"notify_accept", "team", teamID)
		return check, nil
	}

	if err := s.Teams.ApplyChange(ctx, check.Decision.Change); err != nil {
		return check, err
	}
	s.logInfo("accept", "team", teamID, candidate.TgID, "ok")

	role := "игрок"
	if asLibero {
		role = "либеро"
	}
	s.deliver([]notify.Result{s.Notifier.Notify(ctx, candidate.TgID, fmt.Sprintf(
		"Капитан принял вас в команду «%s» (%s) на турнир «%s» %s.",
		check.Team.Title, role, check.Tournament.Title, s.formatDate(check.Tournament.Date)))},
		"notify_accept", "team", teamID)
	if removed := check.Decision.RemovedLibero; removed != nil {
		s.deliver([]notify.Result{s.Notifier.Notify(ctx, removed.TgID, fmt.Sprintf(
			"В команде «%s» назначен новый либеро, вы исключены из состава.", check.Team.Title))},
			"notify_libero_removed", "team", teamID)
	}
	return check, nil
}

func (s *teamsService) Refuse(ctx context.Context, teamID, candidateID, leaderID int64) error {
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != leaderID {
		return fmt.Errorf("player %d is not the captain of team %d: %w", leaderID, teamID, models.ErrValidation)
	}
	candidate, err := s.Players.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	s.logInfo("refuse", "team", teamID, candidate.TgID, "ok")
	s.deliver([]notify.Result{s.Notifier.Notify(ctx, candidate.TgID, fmt.Sprintf(
		"Капитан команды «%s» отклонил вашу заявку.", team.Title))}, "notify_refuse", "team", teamID)
	return nil
}

// Leave takes the player off the roster. A leaving captain disbands the team.
func (s *teamsService) Leave(ctx context.Context, teamID int64, player models.Player) (*roster.Promotion, error) {
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID == player.ID {
		return s.Remove(ctx, teamID, player.TgID, fmt.Sprintf("капитан %s покинул команду", player.FullName()))
	}
	if !team.HasPlayer(player.ID) {
		return nil, fmt.Errorf("player %d in team %d: %w", player.ID, teamID, models.ErrNotFound)
	}
	if _, err := s.Teams.RemovePlayer(ctx, teamID, player.ID); err != nil {
		return nil, err
	}
	s.logInfo("leave", "team", teamID, player.TgID, "ok")

	for _, p := range team.Players {
		if p.ID == team.LeaderID {
			s.deliver([]notify.Result{s.Notifier.Notify(ctx, p.TgID, fmt.Sprintf(
				"%s покинул команду «%s».", player.FullName(), team.Title))}, "notify_leave", "team", teamID)
		}
	}
	return nil, nil
}

func (s *teamsService) Remove(ctx context.Context, teamID, actorID int64, reason string) (*roster.Promotion, error) {
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	tournament, err := s.Tournaments.Get(ctx, team.TournamentID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.Teams.Delete(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, nil
	}
	s.logInfo("remove", "team", teamID, actorID, reason)

	s.deliver(s.Notifier.NotifyMany(ctx, playerTgIDs(team.Players), fmt.Sprintf(
		"Команда «%s» снята с турнира «%s» %s: %s.",
		team.Title, tournament.Title, s.formatDate(tournament.Date), reason)), "notify_remove", "team", teamID)

	if team.Reserve {
		return nil, nil
	}
	return s.promote(ctx, tournament)
}

func (s *teamsService) promote(ctx context.Context, tournament *models.Tournament) (*roster.Promotion, error) {
	promotion, err := s.Promoter.PromoteTeam(ctx, tournament)
	if err != nil {
		s.logError(err, "promote", "tournament", tournament.ID, 0)
		return nil, err
	}
	if promotion == nil {
		return nil, nil
	}
	team := promotion.Team
	s.logInfo("promote", "team", team.ID, 0, "ok")
	s.deliver(s.Notifier.NotifyMany(ctx, playerTgIDs(team.Players), fmt.Sprintf(
		"Команда «%s» переведена из резерва в основной состав турнира «%s» %s. Не забудьте оплатить участие.",
		team.Title, tournament.Title, s.formatDate(tournament.Date))), "notify_promote", "team", team.ID)
	s.deliver(s.Notifier.NotifyAdmins(ctx, fmt.Sprintf(
		"Команда «%s» переведена из резерва в основной состав турнира «%s».", team.Title, tournament.Title)),
		"notify_promote", "team", team.ID)
	return promotion, nil
}

func (s *teamsService) Points(team models.Team) int {
	return s.Policy.Points(team)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

func TestTeamPaymentFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	teams := NewTeamsService(env.deps)
	payments := NewPaymentsService(env.deps)
	tournament := env.tournament(t, 1)
	leader := env.player(t, 100, 4, models.GenderMale)
	member := env.player(t, 101, 3, models.GenderMale)
	team := createTeam(t, teams, tournament.ID, "Альфа", leader)
	if _, err := teams.Accept(ctx, team.ID, member.ID, leader.ID, false); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if err := payments.ClaimTeam(ctx, team.ID, member); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("claim by a member error = %v", err)
	}
	if err := payments.ClaimTeam(ctx, team.ID, leader); err != nil {
		t.Fatalf("ClaimTeam() error = %v", err)
	}
	if !env.notifier.received(adminTgID, "Альфа") {
		t.Fatal("admins not told about the claim")
	}
	pending, err := payments.PendingTeams(ctx)
	if err != nil || len(pending) != 1 || pending[0].TeamID != team.ID {
		t.Fatalf("PendingTeams() = %+v, %v", pending, err)
	}

	outcome, err := payments.ConfirmTeam(ctx, team.ID, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmTeam() error = %v", err)
	}
	if outcome.Reserve || outcome.RefundRequired {
		t.Fatalf("outcome = %+v", outcome)
	}
	for _, tgID := range []int64{leader.TgID, member.TgID} {
		if !env.notifier.received(tgID, "подтверждена") {
			t.Fatalf("member %d not told about the confirmation", tgID)
		}
	}
	if _, err := payments.ConfirmTeam(ctx, team.ID, adminTgID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second confirmation error = %v", err)
	}
}

func TestTeamPaymentInReserveNeedsRefund(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	teams := NewTeamsService(env.deps)
	payments := NewPaymentsService(env.deps)
	tournament := env.tournament(t, 1)
	createTeam(t, teams, tournament.ID, "Альфа", env.player(t, 100, 4, models.GenderMale))
	leader := env.player(t, 200, 4, models.GenderMale)
	queued := createTeam(t, teams, tournament.ID, "Бета", leader)

	if err := payments.ClaimTeam(ctx, queued.ID, leader); err != nil {
		t.Fatalf("ClaimTeam() error = %v", err)
	}
	outcome, err := payments.ConfirmTeam(ctx, queued.ID, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmTeam() error = %v", err)
	}
	if !outcome.Reserve || !outcome.RefundRequired {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestTeamPaymentMovesToReserveWhenMainListIsPaid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	teams := NewTeamsService(env.deps)
	payments := NewPaymentsService(env.deps)
	tournament := env.tournament(t, 1)

	// two main teams in a one-slot tournament, as left behind by racing sign-ups
	first := env.player(t, 100, 4, models.GenderMale)
	second := env.player(t, 200, 4, models.GenderMale)
	alpha, err := env.store.Teams().Create(ctx, models.Team{TournamentID: tournament.ID, Title: "Альфа", LeaderID: first.ID, CreatedAt: env.now})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	beta, err := env.store.Teams().Create(ctx, models.Team{TournamentID: tournament.ID, Title: "Бета", LeaderID: second.ID, CreatedAt: env.now})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	for _, c := range []struct {
		teamID int64
		leader models.Player
	}{{alpha, first}, {beta, second}} {
		if err := payments.ClaimTeam(ctx, c.teamID, c.leader); err != nil {
			t.Fatalf("ClaimTeam(%d) error = %v", c.teamID, err)
		}
	}

	outcome, err := payments.ConfirmTeam(ctx, alpha, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmTeam(alpha) error = %v", err)
	}
	if outcome.Reserve || outcome.RefundRequired {
		t.Fatalf("first confirmation outcome = %+v", outcome)
	}

	outcome, err = payments.ConfirmTeam(ctx, beta, adminTgID)
	if err != nil {
		t.Fatalf("ConfirmTeam(beta) error = %v", err)
	}
	if !outcome.Reserve || !outcome.RefundRequired {
		t.Fatalf("second confirmation outcome = %+v", outcome)
	}
	if !env.notifier.received(adminTgID, "возврат") {
		t.Fatal("admin was not asked to refund")
	}
	if !env.notifier.received(second.TgID, "переведена в резерв") {
		t.Fatal("captain not told about the move")
	}

	main, reserve, err := teams.List(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(main) != 1 || main[0].ID != alpha {
		t.Fatalf("main = %+v", main)
	}
	if len(reserve) != 1 || reserve[0].ID != beta {
		t.Fatalf("reserve = %+v", reserve)
	}
	queued, err := env.store.Reserve().OldestReserveTeam(ctx, tournament.ID)
	if err != nil || queued == nil || queued.ID != beta {
		t.Fatalf("OldestReserveTeam() = %+v, %v", queued, err)
	}
}

func TestTeamPaymentReject(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	teams := NewTeamsService(env.deps)
	payments := NewPaymentsService(env.deps)
	tournament := env.tournament(t, 1)
	leader := env.player(t, 100, 4, models.GenderMale)
	team := createTeam(t, teams, tournament.ID, "Альфа", leader)

	if err := payments.ClaimTeam(ctx, team.ID, leader); err != nil {
		t.Fatalf("ClaimTeam() error = %v", err)
	}
	if err := payments.RejectTeam(ctx, team.ID, adminTgID); err != nil {
		t.Fatalf("RejectTeam() error = %v", err)
	}
	if !env.notifier.received(leader.TgID, "не найдена") {
		t.Fatal("captain not told about the rejection")
	}
	if err := payments.RejectTeam(ctx, team.ID, adminTgID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second rejection error = %v", err)
	}
}

func TestTournamentsDeleteNotifiesMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	teams := NewTeamsService(env.deps)
	tournaments := NewTournamentsService(env.deps)
	tournament := env.tournament(t, 1)
	createTeam(t, teams, tournament.ID, "Альфа", env.player(t, 100, 4, models.GenderMale))
	createTeam(t, teams, tournament.ID, "Бета", env.player(t, 200, 4, models.GenderMale))

	if err := tournaments.Delete(ctx, tournament.ID, adminTgID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, tgID := range []int64{100, 200} {
		if !env.notifier.received(tgID, "отменён") {
			t.Fatalf("member %d not notified", tgID)
		}
	}
	left, err := env.store.Teams().ListByTournament(ctx, tournament.ID)
	if err != nil || len(left) != 0 {
		t.Fatalf("teams must be deleted with the tournament, left %d (%v)", len(left), err)
	}
}

func TestTournamentsCreateRequiresKnownLevel(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTournamentsService(env.deps)
	input := CreateTournamentInput{
		Title:          "Кубок",
		Date:           env.now.Add(72 * time.Hour),
		MinTeamCount:   2,
		MaxTeamCount:   8,
		MinTeamPlayers: 4,
		MaxTeamPlayers: 8,
		Level:          5,
	}
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	input.Level = 1
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("Create(level 1) error = %v", err)
	}
}

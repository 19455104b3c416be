package service

import (
	"context"
	"fmt"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
)

// ConfirmOutcome describes what an admin confirmation led to.
type ConfirmOutcome struct {
	// Reserve is set when the payer ended up in the reserve instead of
	// the main roster.
	Reserve bool
	// RefundRequired asks the admin to return the money.
	RefundRequired bool
}

type PaymentsService interface {
	ClaimEvent(ctx context.Context, eventID int64, player models.Player) error
	ConfirmEvent(ctx context.Context, eventID, playerID, adminID int64) (ConfirmOutcome, error)
	RejectEvent(ctx context.Context, eventID, playerID, adminID int64) error
	PendingEvents(ctx context.Context) ([]models.Payment, error)

	ClaimTeam(ctx context.Context, teamID int64, player models.Player) error
	ConfirmTeam(ctx context.Context, teamID, adminID int64) (ConfirmOutcome, error)
	RejectTeam(ctx context.Context, teamID, adminID int64) error
	PendingTeams(ctx context.Context) ([]models.TournamentPayment, error)
}

type paymentsService struct {
	Deps
}

func NewPaymentsService(deps Deps) PaymentsService {
	return &paymentsService{Deps: deps}
}

func (s *paymentsService) ClaimEvent(ctx context.Context, eventID int64, player models.Player) error {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.Active {
		return fmt.Errorf("event %d: %w", eventID, models.ErrInactive)
	}
	ok, err := s.Payments.ClaimEventPayment(ctx, eventID, player.ID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment for event %d: %w", eventID, models.ErrConflict)
	}
	s.logInfo("claim_payment", "event", eventID, player.TgID, "ok")

	text := fmt.Sprintf("%s сообщил об оплате «%s» %s. Подтвердите оплату в /payments.",
		player.FullName(), event.Title, s.formatDate(event.Date))
	s.deliver(s.Notifier.NotifyAdmins(ctx, text), "notify_claim", "event", eventID)
	return nil
}

// ConfirmEvent accepts the payment and seats the player. The event may have
// filled up while the payment was pending; then the player is queued in the
// reserve, the payment is dropped and the admin is asked to refund.
func (s *paymentsService) ConfirmEvent(ctx context.Context, eventID, playerID, adminID int64) (ConfirmOutcome, error) {
	var outcome ConfirmOutcome
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return outcome, err
	}
	if !event.Active {
		return outcome, fmt.Errorf("event %d: %w", eventID, models.ErrInactive)
	}
	player, err := s.Players.Get(ctx, playerID)
	if err != nil {
		return outcome, err
	}
	result, err := s.Payments.ConfirmEventPayment(ctx, eventID, playerID, s.now())
	if err != nil {
		return outcome, err
	}
	if !result.Confirmed {
		return outcome, fmt.Errorf("payment for event %d: %w", eventID, models.ErrConflict)
	}

	if result.Reserve {
		outcome = ConfirmOutcome{Reserve: true, RefundRequired: true}
		s.logInfo("confirm_payment", "event", eventID, adminID, "reserve")

		s.deliver([]notify.Result{s.Notifier.Notify(ctx, player.TgID, fmt.Sprintf(
			"Пока оплата проверялась, места на «%s» %s закончились. Вы записаны в резерв, оплата будет возвращена.",
			event.Title, s.formatDate(event.Date)))}, "notify_confirm", "event", eventID)
		s.deliver(s.Notifier.NotifyAdmins(ctx, fmt.Sprintf(
			"Требуется возврат оплаты: %s, «%s» %s (мест нет, игрок в резерве).",
			player.FullName(), event.Title, s.formatDate(event.Date))), "notify_refund", "event", eventID)
		return outcome, nil
	}

	s.logInfo("confirm_payment", "event", eventID, adminID, "ok")
	s.deliver([]notify.Result{s.Notifier.Notify(ctx, player.TgID, fmt.Sprintf(
		"Оплата подтверждена. Вы записаны на «%s» %s.", event.Title, s.formatDate(event.Date)))},
		"notify_confirm", "event", eventID)
	return outcome, nil
}

func (s *paymentsService) RejectEvent(ctx context.Context, eventID, playerID, adminID int64) error {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	player, err := s.Players.Get(ctx, playerID)
	if err != nil {
		return err
	}
	ok, err := s.Payments.RejectEventPayment(ctx, eventID, playerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment for event %d: %w", eventID, models.ErrConflict)
	}
	s.logInfo("reject_payment", "event", eventID, adminID, "ok")
	s.deliver([]notify.Result{s.Notifier.Notify(ctx, player.TgID, fmt.Sprintf(
		"Оплата «%s» %s не найдена, запись отменена. Проверьте перевод и запишитесь ещё раз.",
		event.Title, s.formatDate(event.Date)))}, "notify_reject", "event", eventID)
	return nil
}

func (s *paymentsService) PendingEvents(ctx context.Context) ([]models.Payment, error) {
	return s.Payments.ListPendingEventPayments(ctx)
}

// ClaimTeam is sent by the captain on behalf of the whole team.
func (s *paymentsService) ClaimTeam(ctx context.Context, teamID int64, player models.Player) error {
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != player.ID {
		return fmt.Errorf("only the captain pays for team %d: %w", teamID, models.ErrValidation)
	}
	tournament, err := s.Tournaments.Get(ctx, team.TournamentID)
	if err != nil {
		return err
	}
	if !tournament.Active {
		return fmt.Errorf("tournament %d: %w", tournament.ID, models.ErrInactive)
	}
	ok, err := s.Payments.ClaimTeamPayment(ctx, teamID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment for team %d: %w", teamID, models.ErrConflict)
	}
	s.logInfo("claim_payment", "team", teamID, player.TgID, "ok")

	text := fmt.Sprintf("Капитан %s сообщил об оплате команды «%s» на турнир «%s» %s. Подтвердите оплату в /payments.",
		player.FullName(), team.Title, tournament.Title, s.formatDate(tournament.Date))
	s.deliver(s.Notifier.NotifyAdmins(ctx, text), "notify_claim", "team", teamID)
	return nil
}

// ConfirmTeam accepts a team payment. A team still waiting in the reserve
// keeps its place in the queue. A main team that finds the list already
// filled with confirmed teams is moved to the reserve. Either way the admin
// is told a refund is due unless the team gets promoted.
func (s *paymentsService) ConfirmTeam(ctx context.Context, teamID, adminID int64) (ConfirmOutcome, error) {
	var outcome ConfirmOutcome
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return outcome, err
	}
	tournament, err := s.Tournaments.Get(ctx, team.TournamentID)
	if err != nil {
		return outcome, err
	}
	result, err := s.Payments.ConfirmTeamPayment(ctx, teamID, s.now())
	if err != nil {
		return outcome, err
	}
	if !result.Confirmed {
		return outcome, fmt.Errorf("payment for team %d: %w", teamID, models.ErrConflict)
	}

	members := playerTgIDs(team.Players)
	if result.Reserve {
		outcome = ConfirmOutcome{Reserve: true, RefundRequired: true}
		if team.Reserve {
			s.logInfo("confirm_payment", "team", teamID, adminID, "reserve")
			s.deliver(s.Notifier.NotifyMany(ctx, members, fmt.Sprintf(
				"Оплата команды «%s» подтверждена, но команда пока в резерве турнира «%s». Если место не освободится, оплата будет возвращена.",
				team.Title, tournament.Title)), "notify_confirm", "team", teamID)
			return outcome, nil
		}

		s.logInfo("confirm_payment", "team", teamID, adminID, "moved_to_reserve")
		s.deliver(s.Notifier.NotifyMany(ctx, members, fmt.Sprintf(
			"Оплата команды «%s» подтверждена, но основной состав турнира «%s» уже заполнен оплаченными командами. Команда переведена в резерв, оплата будет возвращена, если место не освободится.",
			team.Title, tournament.Title)), "notify_confirm", "team", teamID)
		s.deliver(s.Notifier.NotifyAdmins(ctx, fmt.Sprintf(
			"Требуется возврат оплаты: команда «%s», турнир «%s» %s (основной состав заполнен, команда в резерве).",
			team.Title, tournament.Title, s.formatDate(tournament.Date))), "notify_refund", "team", teamID)
		return outcome, nil
	}

	s.logInfo("confirm_payment", "team", teamID, adminID, "ok")
	s.deliver(s.Notifier.NotifyMany(ctx, members, fmt.Sprintf(
		"Оплата команды «%s» подтверждена. Ждём вас на турнире «%s» %s!",
		team.Title, tournament.Title, s.formatDate(tournament.Date))), "notify_confirm", "team", teamID)
	return outcome, nil
}

func (s *paymentsService) RejectTeam(ctx context.Context, teamID, adminID int64) error {
	team, err := s.Teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	ok, err := s.Payments.RejectTeamPayment(ctx, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment for team %d: %w", teamID, models.ErrConflict)
	}
	s.logInfo("reject_payment", "team", teamID, adminID, "ok")

	for _, p := range team.Players {
		if p.ID != team.LeaderID {
			continue
		}
		s.deliver([]notify.Result{s.Notifier.Notify(ctx, p.TgID, fmt.Sprintf(
			"Оплата команды «%s» не найдена. Проверьте перевод и сообщите об оплате ещё раз.", team.Title))},
			"notify_reject", "team", teamID)
	}
	return nil
}

func (s *paymentsService) PendingTeams(ctx context.Context) ([]models.TournamentPayment, error) {
	return s.Payments.ListPendingTeamPayments(ctx)
}

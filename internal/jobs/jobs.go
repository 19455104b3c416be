// Package jobs holds the time driven housekeeping of events and tournaments.
//
// Every mutation is conditional on the current state of the record (active,
// reserve, reminded, payment), so a job that runs twice over the same window
// neither kicks a team twice nor repeats a notification.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

type Config struct {
	// ExpireAfter is how long after the start an event is closed.
	ExpireAfter time.Duration
	// CancelLead is the window before the start in which an underfilled
	// event or tournament is canceled.
	CancelLead time.Duration
	// TeamSizeLead is the window in which undersized teams are removed.
	TeamSizeLead time.Duration
	// PaymentLead is the window in which unpaid teams are removed.
	PaymentLead time.Duration
	// PromotionGrace exempts freshly promoted teams from the unpaid kick.
	PromotionGrace time.Duration
	ReminderLead   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ExpireAfter:    time.Hour,
		CancelLead:     2 * time.Hour,
		TeamSizeLead:   3 * time.Hour,
		PaymentLead:    24 * time.Hour,
		PromotionGrace: 3 * time.Hour,
		ReminderLead:   24 * time.Hour,
	}
}

// TeamRemover is the regular team removal path: delete, notify, promote.
type TeamRemover interface {
	Remove(ctx context.Context, teamID, actorID int64, reason string) (*roster.Promotion, error)
}

type Deps struct {
	Events      repository.EventsRepository
	Tournaments repository.TournamentsRepository
	Teams       repository.TeamsRepository
	Payments    repository.PaymentsRepository
	Remover     TeamRemover
	Notifier    notify.Notifier
	Logger      repository.Logger
	Tracer      trace.Tracer
	Location    *time.Location
	Now         func() time.Time
}

type Jobs struct {
	Deps
	cfg Config
}

func New(deps Deps, cfg Config) *Jobs {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Jobs{Deps: deps, cfg: cfg}
}

// Report is what a job run changed. The scheduler only logs it.
type Report struct {
	RunID         string
	Job           string
	Events        []int64
	Tournaments   []int64
	Teams         []int64
	Promotions    []*roster.Promotion
	RefundTeams   []models.Team
	Notifications []notify.Result
	Errors        []error
}

func (r *Report) merge(other Report) {
	r.Events = append(r.Events, other.Events...)
	r.Tournaments = append(r.Tournaments, other.Tournaments...)
	r.Teams = append(r.Teams, other.Teams...)
	r.Promotions = append(r.Promotions, other.Promotions...)
	r.RefundTeams = append(r.RefundTeams, other.RefundTeams...)
	r.Notifications = append(r.Notifications, other.Notifications...)
	r.Errors = append(r.Errors, other.Errors...)
}

// Err joins every per item failure of the run.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}

func (j *Jobs) start(ctx context.Context, name string) (context.Context, trace.Span, *Report) {
	report := &Report{RunID: uuid.NewString(), Job: name}
	if j.Tracer == nil {
		return ctx, trace.SpanFromContext(ctx), report
	}
	ctx, span := j.Tracer.Start(ctx, "jobs."+name, trace.WithAttributes(
		attribute.String("job.run_id", report.RunID),
	))
	return ctx, span, report
}

func (j *Jobs) finish(span trace.Span, report *Report) {
	span.SetAttributes(
		attribute.Int("job.events", len(report.Events)),
		attribute.Int("job.tournaments", len(report.Tournaments)),
		attribute.Int("job.teams", len(report.Teams)),
		attribute.Int("job.errors", len(report.Errors)),
	)
	if err := report.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job finished with errors")
	}
	span.End()
}

func (j *Jobs) fail(report *Report, err error, entity string, entityID int64) {
	report.Errors = append(report.Errors, err)
	if j.Logger != nil {
		j.Logger.Error(err, report.Job, entity, entityID, 0)
	}
}

func (j *Jobs) info(report *Report, entity string, entityID int64, status string) {
	if j.Logger != nil {
		j.Logger.Info(report.Job, entity, entityID, 0, status)
	}
}

func (j *Jobs) sent(report *Report, results []notify.Result) {
	report.Notifications = append(report.Notifications, results...)
	for _, r := range notify.Failed(results) {
		if j.Logger != nil && r.Err != nil {
			j.Logger.Error(r.Err, report.Job, "notification", 0, r.TgID)
		}
	}
}

func (j *Jobs) formatDate(t time.Time) string {
	return t.In(j.Location).Format("02.01.2006 15:04")
}

func active() models.EventFilter {
	on := true
	return models.EventFilter{Active: &on}
}

// within reports whether now falls into the lead window right before start.
func within(now, start time.Time, lead time.Duration) bool {
	return now.Before(start) && !now.Before(start.Add(-lead))
}

func teamMembers(teams []models.Team) []int64 {
	var ids []int64
	for _, team := range teams {
		for _, p := range team.Players {
			ids = append(ids, p.TgID)
		}
	}
	return ids
}

func eventMembers(event models.Event, withReserve bool) []int64 {
	ids := make([]int64, 0, len(event.Players)+len(event.Reserve))
	for _, p := range event.Players {
		ids = append(ids, p.TgID)
	}
	if withReserve {
		for _, entry := range event.Reserve {
			ids = append(ids, entry.Player.TgID)
		}
	}
	return ids
}

// ExpirePastEvents closes events and tournaments that started more than
// ExpireAfter ago. Reserve teams left in an expired tournament are reported
// to the admins for refunds.
func (j *Jobs) ExpirePastEvents(ctx context.Context) Report {
	ctx, span, report := j.start(ctx, "expire_past_events")
	defer j.finish(span, report)
	now := j.Now()

	events, err := j.Events.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list events: %w", err), "event", 0)
	}
	for _, event := range events {
		if !now.After(event.Date.Add(j.cfg.ExpireAfter)) {
			continue
		}
		ok, err := j.Events.Deactivate(ctx, event.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("deactivate event %d: %w", event.ID, err), "event", event.ID)
			continue
		}
		if ok {
			report.Events = append(report.Events, event.ID)
			j.info(report, "event", event.ID, "expired")
		}
	}

	tournaments, err := j.Tournaments.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list tournaments: %w", err), "tournament", 0)
	}
	for _, tournament := range tournaments {
		if !now.After(tournament.Date.Add(j.cfg.ExpireAfter)) {
			continue
		}
		ok, err := j.Tournaments.Deactivate(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("deactivate tournament %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		if !ok {
			continue
		}
		report.Tournaments = append(report.Tournaments, tournament.ID)
		j.info(report, "tournament", tournament.ID, "expired")

		teams, err := j.Teams.ListByTournament(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("list teams of %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		_, reserve := models.TournamentTeams(teams)
		if len(reserve) == 0 {
			continue
		}
		report.RefundTeams = append(report.RefundTeams, reserve...)
		titles := make([]string, 0, len(reserve))
		for _, team := range reserve {
			titles = append(titles, "«"+team.Title+"»")
		}
		j.sent(report, j.Notifier.NotifyAdmins(ctx, fmt.Sprintf(
			"Турнир «%s» завершён. Команды из резерва: %s. Проверьте, нужен ли возврат оплаты.",
			tournament.Title, strings.Join(titles, ", "))))
	}
	return *report
}

// CancelUnderfilled cancels events and tournaments that still lack
// participants shortly before the start. A canceled event is never
// reactivated.
func (j *Jobs) CancelUnderfilled(ctx context.Context) Report {
	ctx, span, report := j.start(ctx, "cancel_underfilled")
	defer j.finish(span, report)
	now := j.Now()

	events, err := j.Events.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list events: %w", err), "event", 0)
	}
	for _, event := range events {
		if !within(now, event.Date, j.cfg.CancelLead) || len(event.Players) >= event.MinUserCount {
			continue
		}
		ok, err := j.Events.Deactivate(ctx, event.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("cancel event %d: %w", event.ID, err), "event", event.ID)
			continue
		}
		if !ok {
			continue
		}
		report.Events = append(report.Events, event.ID)
		j.info(report, "event", event.ID, "canceled")
		j.sent(report, j.Notifier.NotifyMany(ctx, eventMembers(event, true), fmt.Sprintf(
			"Мероприятие «%s» %s отменено: не набралось минимальное количество участников.",
			event.Title, j.formatDate(event.Date))))
	}

	tournaments, err := j.Tournaments.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list tournaments: %w", err), "tournament", 0)
	}
	for _, tournament := range tournaments {
		if !within(now, tournament.Date, j.cfg.CancelLead) {
			continue
		}
		teams, err := j.Teams.ListByTournament(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("list teams of %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		main, _ := models.TournamentTeams(teams)
		if len(main) >= tournament.MinTeamCount {
			continue
		}
		ok, err := j.Tournaments.Deactivate(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("cancel tournament %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		if !ok {
			continue
		}
		report.Tournaments = append(report.Tournaments, tournament.ID)
		j.info(report, "tournament", tournament.ID, "canceled")
		j.sent(report, j.Notifier.NotifyMany(ctx, teamMembers(teams), fmt.Sprintf(
			"Турнир «%s» %s отменён: не набралось минимальное количество команд.",
			tournament.Title, j.formatDate(tournament.Date))))
	}
	return *report
}

func (j *Jobs) remove(ctx context.Context, report *Report, team models.Team, reason string) {
	promotion, err := j.Remover.Remove(ctx, team.ID, 0, reason)
	if err != nil {
		j.fail(report, fmt.Errorf("remove team %d: %w", team.ID, err), "team", team.ID)
		return
	}
	report.Teams = append(report.Teams, team.ID)
	if promotion != nil {
		report.Promotions = append(report.Promotions, promotion)
	}
}

// KickUndersizedTeams removes main roster teams that are still below the
// minimum roster size close to the start.
func (j *Jobs) KickUndersizedTeams(ctx context.Context) Report {
	ctx, span, report := j.start(ctx, "kick_undersized_teams")
	defer j.finish(span, report)
	now := j.Now()

	tournaments, err := j.Tournaments.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list tournaments: %w", err), "tournament", 0)
	}
	for _, tournament := range tournaments {
		if !within(now, tournament.Date, j.cfg.TeamSizeLead) {
			continue
		}
		teams, err := j.Teams.ListByTournament(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("list teams of %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		main, _ := models.TournamentTeams(teams)
		for _, team := range main {
			if len(team.Players) >= tournament.MinTeamPlayers {
				continue
			}
			j.remove(ctx, report, team, fmt.Sprintf(
				"в команде меньше %d игроков", tournament.MinTeamPlayers))
		}
	}
	return *report
}

// KickUnpaidTeams removes main roster teams without a confirmed payment
// once the payment deadline has passed. Reserve teams are not expected to
// pay yet and recently promoted teams get PromotionGrace to do so.
func (j *Jobs) KickUnpaidTeams(ctx context.Context) Report {
	ctx, span, report := j.start(ctx, "kick_unpaid_teams")
	defer j.finish(span, report)
	now := j.Now()

	tournaments, err := j.Tournaments.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list tournaments: %w", err), "tournament", 0)
	}
	for _, tournament := range tournaments {
		if tournament.Price == 0 || !within(now, tournament.Date, j.cfg.PaymentLead) {
			continue
		}
		teams, err := j.Teams.ListByTournament(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("list teams of %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		main, _ := models.TournamentTeams(teams)
		for _, team := range main {
			if team.PromotedAt != nil && now.Sub(*team.PromotedAt) < j.cfg.PromotionGrace {
				continue
			}
			payment, err := j.Payments.GetTeamPayment(ctx, team.ID)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				j.fail(report, fmt.Errorf("payment of team %d: %w", team.ID, err), "team", team.ID)
				continue
			}
			if payment != nil && payment.PaidConfirm {
				continue
			}
			j.remove(ctx, report, team, "участие не оплачено")
		}
	}
	return *report
}

// SendReminders notifies the participants of everything that starts within
// ReminderLead. Teams of a paid tournament are reminded only once their
// payment is confirmed. The reminded flag is flipped before sending so a repeated
// run stays silent.
func (j *Jobs) SendReminders(ctx context.Context) Report {
	ctx, span, report := j.start(ctx, "send_reminders")
	defer j.finish(span, report)
	now := j.Now()

	events, err := j.Events.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list events: %w", err), "event", 0)
	}
	for _, event := range events {
		if event.Reminded || !within(now, event.Date, j.cfg.ReminderLead) {
			continue
		}
		ok, err := j.Events.MarkReminded(ctx, event.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("mark event %d: %w", event.ID, err), "event", event.ID)
			continue
		}
		if !ok {
			continue
		}
		report.Events = append(report.Events, event.ID)
		j.sent(report, j.Notifier.NotifyMany(ctx, eventMembers(event, false), fmt.Sprintf(
			"Напоминаем: «%s» начинается %s.", event.Title, j.formatDate(event.Date))))
	}

	tournaments, err := j.Tournaments.List(ctx, active())
	if err != nil {
		j.fail(report, fmt.Errorf("list tournaments: %w", err), "tournament", 0)
	}
	for _, tournament := range tournaments {
		if tournament.Reminded || !within(now, tournament.Date, j.cfg.ReminderLead) {
			continue
		}
		teams, err := j.Teams.ListByTournament(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("list teams of %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		ok, err := j.Tournaments.MarkReminded(ctx, tournament.ID)
		if err != nil {
			j.fail(report, fmt.Errorf("mark tournament %d: %w", tournament.ID, err), "tournament", tournament.ID)
			continue
		}
		if !ok {
			continue
		}
		report.Tournaments = append(report.Tournaments, tournament.ID)
		main, _ := models.TournamentTeams(teams)
		if tournament.Price > 0 {
			main = j.confirmedTeams(ctx, report, main)
		}
		j.sent(report, j.Notifier.NotifyMany(ctx, teamMembers(main), fmt.Sprintf(
			"Напоминаем: турнир «%s» начинается %s.", tournament.Title, j.formatDate(tournament.Date))))
	}
	return *report
}

// confirmedTeams keeps the teams whose payment was confirmed by an admin.
func (j *Jobs) confirmedTeams(ctx context.Context, report *Report, teams []models.Team) []models.Team {
	var confirmed []models.Team
	for _, team := range teams {
		payment, err := j.Payments.GetTeamPayment(ctx, team.ID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				j.fail(report, fmt.Errorf("payment of team %d: %w", team.ID, err), "team", team.ID)
			}
			continue
		}
		if payment.PaidConfirm {
			confirmed = append(confirmed, team)
		}
	}
	return confirmed
}

// Hourly runs the state transitions in dependency order: kicks come before
// the minimum participant check so it sees the final rosters.
func (j *Jobs) Hourly(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString(), Job: "hourly"}
	report.merge(j.ExpirePastEvents(ctx))
	report.merge(j.KickUndersizedTeams(ctx))
	report.merge(j.KickUnpaidTeams(ctx))
	report.merge(j.CancelUnderfilled(ctx))
	return report
}

func (j *Jobs) Daily(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString(), Job: "daily"}
	report.merge(j.SendReminders(ctx))
	return report
}

package service

import (
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

// Deps are the collaborators shared by the event, tournament, team and
// payment services.
type Deps struct {
	Players     repository.PlayersRepository
	Events      repository.EventsRepository
	Tournaments repository.TournamentsRepository
	Teams       repository.TeamsRepository
	Payments    repository.PaymentsRepository

	Policy   *roster.Policy
	Promoter *roster.Promoter
	Notifier notify.Notifier
	Logger   repository.Logger

	Location *time.Location
	Now      Clock
}

func (d Deps) now() time.Time {
	return clockOrNow(d.Now)()
}

func (d Deps) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// formatDate renders a start time the way the club announces it.
func (d Deps) formatDate(t time.Time) string {
	return t.In(d.location()).Format("02.01.2006 15:04")
}

func (d Deps) logInfo(action, entity string, entityID, actorID int64, status string) {
	if d.Logger != nil {
		d.Logger.Info(action, entity, entityID, actorID, status)
	}
}

func (d Deps) logError(err error, action, entity string, entityID, actorID int64) {
	if d.Logger != nil && err != nil {
		d.Logger.Error(err, action, entity, entityID, actorID)
	}
}

// deliver logs every failed delivery and passes the results through.
func (d Deps) deliver(results []notify.Result, action, entity string, entityID int64) []notify.Result {
	for _, r := range notify.Failed(results) {
		d.logError(r.Err, action, entity, entityID, r.TgID)
	}
	return results
}

package repository

import (
	"context"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

type PlayersRepository interface {
	List(ctx context.Context, pagination models.Pagination) ([]models.Player, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (*models.Player, error)
	GetByTgID(ctx context.Context, tgID int64) (*models.Player, error)
	Create(ctx context.Context, player models.Player) (int64, error)
	Update(ctx context.Context, id int64, patch models.PlayerPatch) error
}

// EventsRepository loads events together with their registered players and
// reserve queue. Deactivate and MarkReminded only touch rows still in the
// expected state and report whether they changed anything.
type EventsRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, event models.Event) (int64, error)
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) (bool, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)

	AddPlayer(ctx context.Context, eventID, playerID int64) error
	RemovePlayer(ctx context.Context, eventID, playerID int64) (bool, error)
	AddReserve(ctx context.Context, eventID, playerID int64, at time.Time) error
	RemoveReserve(ctx context.Context, eventID, playerID int64) (bool, error)
}

type TournamentsRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Tournament, error)
	Get(ctx context.Context, id int64) (*models.Tournament, error)
	Create(ctx context.Context, tournament models.Tournament) (int64, error)
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) (bool, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)
}

// TeamsRepository returns teams with their rosters, ordered by creation time
// and id so reserve order is stable.
type TeamsRepository interface {
	ListByTournament(ctx context.Context, tournamentID int64) ([]models.Team, error)
	Get(ctx context.Context, id int64) (*models.Team, error)
	// Create stores the team with its leader as the first member and an
	// unpaid payment row. Reserve teams are queued in the same transaction.
	Create(ctx context.Context, team models.Team) (int64, error)
	// ApplyChange persists a roster decision atomically.
	ApplyChange(ctx context.Context, change roster.Change) error
	RemovePlayer(ctx context.Context, teamID, playerID int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReserveRepository is the storage side of reserve promotion.
type ReserveRepository interface {
	roster.ReserveStore
}

// PaymentsRepository covers both event payments (per player) and tournament
// payments (per team). State transitions are conditional: Claim requires an
// unpaid row, Confirm and Reject require a claimed unconfirmed one.
//
// Confirmations also seat the payer: an event player joins the roster or,
// when the event is full, the reserve (the payment row is then dropped); a
// team goes to the reserve when the main list already holds MaxTeamCount
// confirmed teams. RejectEventPayment deletes the row, RejectTeamPayment
// resets it to unpaid since every team keeps exactly one.
type PaymentsRepository interface {
	GetEventPayment(ctx context.Context, eventID, playerID int64) (*models.Payment, error)
	CreateEventPayment(ctx context.Context, eventID, playerID int64) error
	ClaimEventPayment(ctx context.Context, eventID, playerID int64, at time.Time) (bool, error)
	ConfirmEventPayment(ctx context.Context, eventID, playerID int64, at time.Time) (models.ConfirmResult, error)
	RejectEventPayment(ctx context.Context, eventID, playerID int64) (bool, error)
	DeleteEventPayment(ctx context.Context, eventID, playerID int64) error
	ListPendingEventPayments(ctx context.Context) ([]models.Payment, error)

	GetTeamPayment(ctx context.Context, teamID int64) (*models.TournamentPayment, error)
	ClaimTeamPayment(ctx context.Context, teamID int64, at time.Time) (bool, error)
	ConfirmTeamPayment(ctx context.Context, teamID int64, at time.Time) (models.ConfirmResult, error)
	RejectTeamPayment(ctx context.Context, teamID int64) (bool, error)
	ListPendingTeamPayments(ctx context.Context) ([]models.TournamentPayment, error)
}

type SessionsRepository interface {
	Get(ctx context.Context, tgID int64) (*models.Session, error)
	Upsert(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, tgID int64) error
}

type Logger interface {
	Info(action string, entity string, entityID int64, actorID int64, status string)
	Error(err error, action string, entity string, entityID int64, actorID int64)
}

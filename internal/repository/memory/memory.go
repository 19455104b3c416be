// Package memory is an in-process implementation of the repositories used by
// the service, job and bot tests. It mirrors the PostgreSQL semantics they
// rely on: cascading deletes, FIFO reserve order, conditional state flips and
// the seat or queue decision taken when a payment is confirmed.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

type reserveRow struct {
	id       int64
	parentID int64
	memberID int64
	date     time.Time
}

type teamRow struct {
	team    models.Team
	members []int64
}

type Store struct {
	mu     sync.Mutex
	nextID int64

	players      map[int64]models.Player
	events       map[int64]models.Event
	eventPlayers map[int64][]int64
	reserve      []reserveRow
	tournaments  map[int64]models.Tournament
	teams        map[int64]*teamRow
	teamReserve  []reserveRow

	eventPayments map[[2]int64]models.Payment
	teamPayments  map[int64]models.TournamentPayment
	sessions      map[int64]models.Session
}

func New() *Store {
	return &Store{
		players:       map[int64]models.Player{},
		events:        map[int64]models.Event{},
		eventPlayers:  map[int64][]int64{},
		tournaments:   map[int64]models.Tournament{},
		teams:         map[int64]*teamRow{},
		eventPayments: map[[2]int64]models.Payment{},
		teamPayments:  map[int64]models.TournamentPayment{},
		sessions:      map[int64]models.Session{},
	}
}

func (s *Store) Players() repository.PlayersRepository         { return playersRepo{s} }
func (s *Store) Events() repository.EventsRepository           { return eventsRepo{s} }
func (s *Store) Tournaments() repository.TournamentsRepository { return tournamentsRepo{s} }
func (s *Store) Teams() repository.TeamsRepository             { return teamsRepo{s} }
func (s *Store) Payments() repository.PaymentsRepository       { return paymentsRepo{s} }
func (s *Store) Reserve() repository.ReserveRepository         { return reserveRepo{s} }
func (s *Store) Sessions() repository.SessionsRepository       { return sessionsRepo{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func sortRows(rows []reserveRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].date.Equal(rows[j].date) {
			return rows[i].date.Before(rows[j].date)
		}
		return rows[i].id < rows[j].id
	})
}

func removeID(ids []int64, id int64) ([]int64, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

// Players --------------------------------------------------------------------

type playersRepo struct{ s *Store }

func (r playersRepo) List(_ context.Context, pagination models.Pagination) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]models.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LastName != items[j].LastName {
			return items[i].LastName < items[j].LastName
		}
		return items[i].ID < items[j].ID
	})
	if pagination.Offset >= len(items) {
		return nil, nil
	}
	end := pagination.Offset + pagination.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[pagination.Offset:end], nil
}

func (r playersRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.players), nil
}

func (r playersRepo) Get(_ context.Context, id int64) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r playersRepo) GetByTgID(_ context.Context, tgID int64) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if p.TgID == tgID {
			return &p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r playersRepo) Create(_ context.Context, player models.Player) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if p.TgID == player.TgID {
			return 0, models.ErrConflict
		}
	}
	player.ID = r.s.id()
	r.s.players[player.ID] = player
	return player.ID, nil
}

func (r playersRepo) Update(_ context.Context, id int64, patch models.PlayerPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return models.ErrNotFound
	}
	if patch.Level != nil {
		level := *patch.Level
		p.Level = &level
	}
	if patch.Gender != nil {
		gender := *patch.Gender
		p.Gender = &gender
	}
	r.s.players[id] = p
	return nil
}

// Events ---------------------------------------------------------------------

type eventsRepo struct{ s *Store }

func (s *Store) loadEvent(id int64) (models.Event, bool) {
	event, ok := s.events[id]
	if !ok {
		return event, false
	}
	event.Players = nil
	for _, pid := range s.eventPlayers[id] {
		event.Players = append(event.Players, s.players[pid])
	}
	event.Reserve = nil
	rows := append([]reserveRow{}, s.reserve...)
	sortRows(rows)
	for _, row := range rows {
		if row.parentID == id {
			event.Reserve = append(event.Reserve, models.ReserveEntry{
				ID:      row.id,
				EventID: id,
				Player:  s.players[row.memberID],
				Date:    row.date,
			})
		}
	}
	return event, true
}

func matches(filter models.EventFilter, active bool, date time.Time) bool {
	if filter.Active != nil && *filter.Active != active {
		return false
	}
	if filter.From != nil && date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && date.After(*filter.To) {
		return false
	}
	return true
}

func (r eventsRepo) List(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []models.Event
	for id, e := range r.s.events {
		if !matches(filter, e.Active, e.Date) {
			continue
		}
		event, _ := r.s.loadEvent(id)
		items = append(items, event)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r eventsRepo) Get(_ context.Context, id int64) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.loadEvent(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &event, nil
}

func (r eventsRepo) Create(_ context.Context, event models.Event) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.id()
	event.Players, event.Reserve = nil, nil
	r.s.events[event.ID] = event
	return event.ID, nil
}

func (r eventsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.s.events, id)
	delete(r.s.eventPlayers, id)
	kept := r.s.reserve[:0]
	for _, row := range r.s.reserve {
		if row.parentID != id {
			kept = append(kept, row)
		}
	}
	r.s.reserve = kept
	for key := range r.s.eventPayments {
		if key[0] == id {
			delete(r.s.eventPayments, key)
		}
	}
	return nil
}

func (r eventsRepo) Deactivate(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || !e.Active {
		return false, nil
	}
	e.Active = false
	r.s.events[id] = e
	return true, nil
}

func (r eventsRepo) MarkReminded(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || e.Reminded {
		return false, nil
	}
	e.Reminded = true
	r.s.events[id] = e
	return true, nil
}

func (r eventsRepo) AddPlayer(_ context.Context, eventID, playerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[eventID]; !ok {
		return models.ErrNotFound
	}
	for _, pid := range r.s.eventPlayers[eventID] {
		if pid == playerID {
			return models.ErrConflict
		}
	}
	r.s.eventPlayers[eventID] = append(r.s.eventPlayers[eventID], playerID)
	return nil
}

func (r eventsRepo) RemovePlayer(_ context.Context, eventID, playerID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids, removed := removeID(r.s.eventPlayers[eventID], playerID)
	r.s.eventPlayers[eventID] = ids
	return removed, nil
}

func (r eventsRepo) AddReserve(_ context.Context, eventID, playerID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.reserve {
		if row.parentID == eventID && row.memberID == playerID {
			return models.ErrConflict
		}
	}
	r.s.reserve = append(r.s.reserve, reserveRow{id: r.s.id(), parentID: eventID, memberID: playerID, date: at})
	return nil
}

func (r eventsRepo) RemoveReserve(_ context.Context, eventID, playerID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.reserve {
		if row.parentID == eventID && row.memberID == playerID {
			r.s.reserve = append(r.s.reserve[:i:i], r.s.reserve[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Tournaments ----------------------------------------------------------------

type tournamentsRepo struct{ s *Store }

func (r tournamentsRepo) List(_ context.Context, filter models.EventFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []models.Tournament
	for _, t := range r.s.tournaments {
		if matches(filter, t.Active, t.Date) {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r tournamentsRepo) Get(_ context.Context, id int64) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &t, nil
}

func (r tournamentsRepo) Create(_ context.Context, tournament models.Tournament) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tournament.ID = r.s.id()
	r.s.tournaments[tournament.ID] = tournament
	return tournament.ID, nil
}

func (r tournamentsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.s.tournaments, id)
	for teamID, row := range r.s.teams {
		if row.team.TournamentID == id {
			r.s.deleteTeam(teamID)
		}
	}
	return nil
}

func (r tournamentsRepo) Deactivate(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || !t.Active {
		return false, nil
	}
	t.Active = false
	r.s.tournaments[id] = t
	return true, nil
}

func (r tournamentsRepo) MarkReminded(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Reminded {
		return false, nil
	}
	t.Reminded = true
	r.s.tournaments[id] = t
	return true, nil
}

// Teams ----------------------------------------------------------------------

type teamsRepo struct{ s *Store }

func (s *Store) loadTeam(id int64) (models.Team, bool) {
	row, ok := s.teams[id]
	if !ok {
		return models.Team{}, false
	}
	team := row.team
	team.Players = make([]models.Player, 0, len(row.members))
	for _, pid := range row.members {
		team.Players = append(team.Players, s.players[pid])
	}
	return team, true
}

func (s *Store) deleteTeam(id int64) {
	delete(s.teams, id)
	delete(s.teamPayments, id)
	kept := s.teamReserve[:0]
	for _, row := range s.teamReserve {
		if row.memberID != id {
			kept = append(kept, row)
		}
	}
	s.teamReserve = kept
}

func (r teamsRepo) ListByTournament(_ context.Context, tournamentID int64) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []models.Team
	for id, row := range r.s.teams {
		if row.team.TournamentID != tournamentID {
			continue
		}
		team, _ := r.s.loadTeam(id)
		items = append(items, team)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r teamsRepo) Get(_ context.Context, id int64) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team, ok := r.s.loadTeam(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &team, nil
}

func (r teamsRepo) Create(_ context.Context, team models.Team) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[team.TournamentID]; !ok {
		return 0, models.ErrNotFound
	}
	team.ID = r.s.id()
	row := &teamRow{team: team, members: []int64{team.LeaderID}}
	row.team.Players = nil
	r.s.teams[team.ID] = row
	r.s.teamPayments[team.ID] = models.TournamentPayment{ID: r.s.id(), TournamentID: team.TournamentID, TeamID: team.ID}
	if team.Reserve {
		r.s.teamReserve = append(r.s.teamReserve, reserveRow{
			id: r.s.id(), parentID: team.TournamentID, memberID: team.ID, date: team.CreatedAt,
		})
	}
	return team.ID, nil
}

func (r teamsRepo) ApplyChange(_ context.Context, change roster.Change) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.teams[change.TeamID]
	if !ok {
		return models.ErrNotFound
	}
	if change.RemovePlayerID != nil {
		row.members, _ = removeID(row.members, *change.RemovePlayerID)
		if row.team.IsLibero(*change.RemovePlayerID) {
			row.team.LiberoID = nil
		}
	}
	if change.AddPlayerID != nil {
		for _, pid := range row.members {
			if pid == *change.AddPlayerID {
				return models.ErrConflict
			}
		}
		row.members = append(row.members, *change.AddPlayerID)
	}
	if change.SetLiberoID != nil {
		libero := *change.SetLiberoID
		row.team.LiberoID = &libero
	}
	return nil
}

func (r teamsRepo) RemovePlayer(_ context.Context, teamID, playerID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.teams[teamID]
	if !ok {
		return false, nil
	}
	var removed bool
	row.members, removed = removeID(row.members, playerID)
	if removed && row.team.IsLibero(playerID) {
		row.team.LiberoID = nil
	}
	return removed, nil
}

func (r teamsRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return false, nil
	}
	r.s.deleteTeam(id)
	return true, nil
}

// Reserve --------------------------------------------------------------------

type reserveRepo struct{ s *Store }

func (r reserveRepo) CountMainTeams(_ context.Context, tournamentID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, row := range r.s.teams {
		if row.team.TournamentID == tournamentID && !row.team.Reserve {
			count++
		}
	}
	return count, nil
}

func (r reserveRepo) OldestReserveTeam(_ context.Context, tournamentID int64) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := append([]reserveRow{}, r.s.teamReserve...)
	sortRows(rows)
	for _, row := range rows {
		if row.parentID != tournamentID {
			continue
		}
		team, ok := r.s.loadTeam(row.memberID)
		if ok {
			return &team, nil
		}
	}
	return nil, nil
}

func (r reserveRepo) PromoteTeam(_ context.Context, teamID int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.teams[teamID]
	if !ok || !row.team.Reserve {
		return false, nil
	}
	row.team.Reserve = false
	row.team.PromotedAt = &at
	for i, q := range r.s.teamReserve {
		if q.memberID == teamID {
			r.s.teamReserve = append(r.s.teamReserve[:i:i], r.s.teamReserve[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r reserveRepo) CountEventPlayers(_ context.Context, eventID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.eventPlayers[eventID]), nil
}

func (r reserveRepo) OldestReserveEntry(_ context.Context, eventID int64) (*models.ReserveEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.loadEvent(eventID)
	if !ok || len(event.Reserve) == 0 {
		return nil, nil
	}
	entry := event.Reserve[0]
	return &entry, nil
}

func (r reserveRepo) PromoteReserveEntry(_ context.Context, entry models.ReserveEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.reserve {
		if row.id == entry.ID {
			r.s.reserve = append(r.s.reserve[:i:i], r.s.reserve[i+1:]...)
			r.s.eventPlayers[row.parentID] = append(r.s.eventPlayers[row.parentID], row.memberID)
			return true, nil
		}
	}
	return false, nil
}

// Payments -------------------------------------------------------------------

type paymentsRepo struct{ s *Store }

func (r paymentsRepo) GetEventPayment(_ context.Context, eventID, playerID int64) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.eventPayments[[2]int64{eventID, playerID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r paymentsRepo) CreateEventPayment(_ context.Context, eventID, playerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{eventID, playerID}
	if _, ok := r.s.eventPayments[key]; ok {
		return nil
	}
	r.s.eventPayments[key] = models.Payment{ID: r.s.id(), EventID: eventID, PlayerID: playerID}
	return nil
}

func (r paymentsRepo) ClaimEventPayment(_ context.Context, eventID, playerID int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{eventID, playerID}
	p, ok := r.s.eventPayments[key]
	if !ok || p.Paid {
		return false, nil
	}
	p.Paid, p.PaidAt = true, &at
	r.s.eventPayments[key] = p
	return true, nil
}

func (r paymentsRepo) ConfirmEventPayment(_ context.Context, eventID, playerID int64, at time.Time) (models.ConfirmResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[eventID]
	if !ok {
		return models.ConfirmResult{}, models.ErrNotFound
	}
	key := [2]int64{eventID, playerID}
	p, ok := r.s.eventPayments[key]
	if !ok || !p.Paid || p.PaidConfirm {
		return models.ConfirmResult{}, nil
	}
	p.PaidConfirm, p.ConfirmedAt = true, &at
	r.s.eventPayments[key] = p

	if len(r.s.eventPlayers[eventID]) < event.Places {
		r.s.eventPlayers[eventID] = append(r.s.eventPlayers[eventID], playerID)
		return models.ConfirmResult{Confirmed: true}, nil
	}
	r.s.reserve = append(r.s.reserve, reserveRow{id: r.s.id(), parentID: eventID, memberID: playerID, date: at})
	delete(r.s.eventPayments, key)
	return models.ConfirmResult{Confirmed: true, Reserve: true}, nil
}

func (r paymentsRepo) RejectEventPayment(_ context.Context, eventID, playerID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{eventID, playerID}
	p, ok := r.s.eventPayments[key]
	if !ok || !p.Paid || p.PaidConfirm {
		return false, nil
	}
	delete(r.s.eventPayments, key)
	return true, nil
}

func (r paymentsRepo) DeleteEventPayment(_ context.Context, eventID, playerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.eventPayments, [2]int64{eventID, playerID})
	return nil
}

func (r paymentsRepo) ListPendingEventPayments(_ context.Context) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []models.Payment
	for _, p := range r.s.eventPayments {
		if p.Paid && !p.PaidConfirm {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r paymentsRepo) GetTeamPayment(_ context.Context, teamID int64) (*models.TournamentPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.teamPayments[teamID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r paymentsRepo) ClaimTeamPayment(_ context.Context, teamID int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.teamPayments[teamID]
	if !ok || p.Paid {
		return false, nil
	}
	p.Paid, p.PaidAt = true, &at
	r.s.teamPayments[teamID] = p
	return true, nil
}

func (r paymentsRepo) ConfirmTeamPayment(_ context.Context, teamID int64, at time.Time) (models.ConfirmResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.teams[teamID]
	if !ok {
		return models.ConfirmResult{}, models.ErrNotFound
	}
	p, ok := r.s.teamPayments[teamID]
	if !ok || !p.Paid || p.PaidConfirm {
		return models.ConfirmResult{}, nil
	}
	p.PaidConfirm, p.ConfirmedAt = true, &at
	r.s.teamPayments[teamID] = p
	if row.team.Reserve {
		return models.ConfirmResult{Confirmed: true, Reserve: true}, nil
	}

	confirmed := 0
	for id, other := range r.s.teams {
		if id == teamID || other.team.TournamentID != row.team.TournamentID || other.team.Reserve {
			continue
		}
		if r.s.teamPayments[id].PaidConfirm {
			confirmed++
		}
	}
	if confirmed < r.s.tournaments[row.team.TournamentID].MaxTeamCount {
		return models.ConfirmResult{Confirmed: true}, nil
	}
	row.team.Reserve = true
	row.team.PromotedAt = nil
	r.s.teamReserve = append(r.s.teamReserve, reserveRow{
		id: r.s.id(), parentID: row.team.TournamentID, memberID: teamID, date: at,
	})
	return models.ConfirmResult{Confirmed: true, Reserve: true}, nil
}

func (r paymentsRepo) RejectTeamPayment(_ context.Context, teamID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.teamPayments[teamID]
	if !ok || !p.Paid || p.PaidConfirm {
		return false, nil
	}
	p.Paid, p.PaidAt = false, nil
	r.s.teamPayments[teamID] = p
	return true, nil
}

func (r paymentsRepo) ListPendingTeamPayments(_ context.Context) ([]models.TournamentPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []models.TournamentPayment
	for _, p := range r.s.teamPayments {
		if p.Paid && !p.PaidConfirm {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Sessions -------------------------------------------------------------------

type sessionsRepo struct{ s *Store }

func (r sessionsRepo) Get(_ context.Context, tgID int64) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[tgID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &session, nil
}

func (r sessionsRepo) Upsert(_ context.Context, session models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session.UpdatedAt = time.Now().UTC()
	r.s.sessions[session.TgID] = session
	return nil
}

func (r sessionsRepo) Delete(_ context.Context, tgID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, tgID)
	return nil
}

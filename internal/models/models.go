package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates absence of a record.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates business rule violation.
	ErrValidation = errors.New("validation error")
	// ErrInactive indicates an event or tournament that no longer accepts changes.
	ErrInactive = errors.New("inactive")
)

type NavigationEntry struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

type Player struct {
	ID        int64     `json:"id"`
	TgID      int64     `json:"tg_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Level     *int      `json:"level,omitempty"`
	Gender    *Gender   `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Player) FullName() string {
	return p.FirstName + " " + p.LastName
}

// LevelValue returns the assigned level or zero when it is not set yet.
func (p Player) LevelValue() int {
	if p.Level == nil {
		return 0
	}
	return *p.Level
}

type PlayerPatch struct {
	Level  *int
	Gender *Gender
}

type Tournament struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	MinTeamCount   int       `json:"min_team_count"`
	MaxTeamCount   int       `json:"max_team_count"`
	MinTeamPlayers int       `json:"min_team_players"`
	MaxTeamPlayers int       `json:"max_team_players"`
	Active         bool      `json:"active"`
	Level          int       `json:"level"`
	Price          int       `json:"price"`
	Reminded       bool      `json:"reminded"`
	CreatedAt      time.Time `json:"created_at"`
}

type Team struct {
	ID           int64      `json:"id"`
	TournamentID int64      `json:"tournament_id"`
	Title        string     `json:"title"`
	LeaderID     int64      `json:"leader_id"`
	LiberoID     *int64     `json:"libero_id,omitempty"`
	Reserve      bool       `json:"reserve"`
	CreatedAt    time.Time  `json:"created_at"`
	PromotedAt   *time.Time `json:"promoted_at,omitempty"`
	Players      []Player   `json:"players"`
}

// HasPlayer reports whether the player is on the roster.
func (t Team) HasPlayer(playerID int64) bool {
	for _, p := range t.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (t Team) IsLibero(playerID int64) bool {
	return t.LiberoID != nil && *t.LiberoID == playerID
}

// Libero returns the designated libero when it is on the roster.
func (t Team) Libero() (Player, bool) {
	if t.LiberoID == nil {
		return Player{}, false
	}
	for _, p := range t.Players {
		if p.ID == *t.LiberoID {
			return p, true
		}
	}
	return Player{}, false
}

// TournamentTeams splits a tournament's teams into the main roster and the
// reserve queue; reserve keeps the storage order.
func TournamentTeams(teams []Team) (main []Team, reserve []Team) {
	for _, team := range teams {
		if team.Reserve {
			reserve = append(reserve, team)
			continue
		}
		main = append(main, team)
	}
	return main, reserve
}

type Event struct {
	ID           int64          `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Date         time.Time      `json:"date"`
	Places       int            `json:"places"`
	MinUserCount int            `json:"min_user_count"`
	Active       bool           `json:"active"`
	Level        int            `json:"level"`
	Price        int            `json:"price"`
	Reminded     bool           `json:"reminded"`
	CreatedAt    time.Time      `json:"created_at"`
	Players      []Player       `json:"players"`
	Reserve      []ReserveEntry `json:"reserve"`
}

func (e Event) HasPlayer(playerID int64) bool {
	for _, p := range e.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (e Event) InReserve(playerID int64) bool {
	for _, r := range e.Reserve {
		if r.Player.ID == playerID {
			return true
		}
	}
	return false
}

type ReserveEntry struct {
	ID      int64     `json:"id"`
	EventID int64     `json:"event_id"`
	Player  Player    `json:"player"`
	Date    time.Time `json:"date"`
}

// EventFilter narrows event and tournament listings; nil fields are ignored.
type EventFilter struct {
	Active *bool
	From   *time.Time
	To     *time.Time
}

type Payment struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	PlayerID    int64      `json:"player_id"`
	Paid        bool       `json:"paid"`
	PaidConfirm bool       `json:"paid_confirm"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

type TournamentPayment struct {
	ID           int64      `json:"id"`
	TournamentID int64      `json:"tournament_id"`
	TeamID       int64      `json:"team_id"`
	Paid         bool       `json:"paid"`
	PaidConfirm  bool       `json:"paid_confirm"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// ConfirmResult reports a conditional payment confirmation. Reserve is set
// when the payer was queued instead of taking a main-roster place.
type ConfirmResult struct {
	Confirmed bool
	Reserve   bool
}

type Pagination struct {
	Limit  int
	Offset int
}

func NewPagination(page, perPage int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	if page < 1 {
		page = 1
	}
	return Pagination{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
}

type Session struct {
	TgID        int64
	CurrentFlow *string
	FlowState   []byte
	UpdatedAt   time.Time
}

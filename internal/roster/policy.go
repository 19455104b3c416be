package roster

import (
	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

// Reason explains why a player cannot join a team.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonAlreadyInTeam Reason = "already_in_team"
	ReasonOtherTeam     Reason = "other_team"
	ReasonTeamFull      Reason = "team_full"
	ReasonOverPointCap  Reason = "over_point_cap"
	ReasonWrongLevel    Reason = "wrong_level"
)

// Message is the user facing text of the rejection.
func (r Reason) Message() string {
	switch r {
	case ReasonAlreadyInTeam:
		return "игрок уже состоит в этой команде"
	case ReasonOtherTeam:
		return "игрок уже состоит в другой команде на этом турнире"
	case ReasonTeamFull:
		return "команда уже заполнена"
	case ReasonOverPointCap:
		return "количество баллов команды будет превышать допустимое"
	case ReasonWrongLevel:
		return "уровень игрока не подходит для этого турнира"
	default:
		return ""
	}
}

// JoinRequest is everything the policy needs to judge one join.
type JoinRequest struct {
	Candidate  models.Player
	Team       models.Team
	Tournament models.Tournament
	// Teams are all teams registered in the tournament, the target included.
	Teams    []models.Team
	AsLibero bool
}

// Change is the roster mutation an eligible decision asks the caller to
// persist. All of its parts must be applied in one transaction.
type Change struct {
	TeamID         int64
	AddPlayerID    *int64
	RemovePlayerID *int64
	SetLiberoID    *int64
}

// Decision is the outcome of a join evaluation.
type Decision struct {
	Eligible bool
	Reason   Reason
	// Points is the team total after the join, Cap the tournament limit.
	Points int
	Cap    int
	// WrongLevel marks a libero whose level would not be allowed for a
	// regular player; the captain is told before accepting.
	WrongLevel bool
	// RemovedLibero is the previous libero dropped from the roster by a swap.
	RemovedLibero *models.Player
	Change        Change
}

type Policy struct {
	scoring Scoring
}

func NewPolicy(scoring Scoring) *Policy {
	return &Policy{scoring: scoring}
}

func (p *Policy) Scoring() Scoring {
	return p.scoring
}

// Evaluate runs the join checks in a fixed order; the first failing check
// gives the reason.
func (p *Policy) Evaluate(req JoinRequest) Decision {
	if req.AsLibero {
		return p.evaluateLibero(req)
	}

	candidate := req.Candidate
	team := req.Team
	limit, capped := p.scoring.Cap(req.Tournament.Level)
	decision := Decision{Cap: limit}

	if team.HasPlayer(candidate.ID) {
		return reject(decision, ReasonAlreadyInTeam)
	}
	if inOtherTeam(req.Teams, team.ID, candidate.ID) {
		return reject(decision, ReasonOtherTeam)
	}
	if len(team.Players)+1 > req.Tournament.MaxTeamPlayers {
		return reject(decision, ReasonTeamFull)
	}

	roster := append(append([]models.Player{}, team.Players...), candidate)
	decision.Points = p.scoring.TeamPoints(roster, team.LiberoID)
	if capped && decision.Points > limit {
		return reject(decision, ReasonOverPointCap)
	}
	if p.wrongLevel(candidate, req.Tournament) {
		return reject(decision, ReasonWrongLevel)
	}

	id := candidate.ID
	decision.Eligible = true
	decision.Change = Change{TeamID: team.ID, AddPlayerID: &id}
	return decision
}

func (p *Policy) evaluateLibero(req JoinRequest) Decision {
	candidate := req.Candidate
	team := req.Team
	limit, capped := p.scoring.Cap(req.Tournament.Level)
	decision := Decision{Cap: limit}

	if team.IsLibero(candidate.ID) {
		return reject(decision, ReasonAlreadyInTeam)
	}
	if inOtherTeam(req.Teams, team.ID, candidate.ID) {
		return reject(decision, ReasonOtherTeam)
	}

	newMember := !team.HasPlayer(candidate.ID)
	roster := append([]models.Player{}, team.Players...)
	if newMember {
		roster = append(roster, candidate)
	}

	// The leader never leaves the roster; a leader holding the libero slot
	// just gives it up.
	var removed *models.Player
	if old, ok := team.Libero(); ok && old.ID != team.LeaderID {
		kept := p.scoring.TeamPoints(roster, &candidate.ID)
		if (capped && kept > limit) || old.LevelValue() > req.Tournament.Level {
			removed = &old
			roster = without(roster, old.ID)
		}
	}

	if newMember && len(roster) > req.Tournament.MaxTeamPlayers {
		return reject(decision, ReasonTeamFull)
	}

	decision.Points = p.scoring.TeamPoints(roster, &candidate.ID)
	if capped && decision.Points > limit {
		return reject(decision, ReasonOverPointCap)
	}

	id := candidate.ID
	decision.Eligible = true
	decision.WrongLevel = p.wrongLevel(candidate, req.Tournament)
	decision.RemovedLibero = removed
	decision.Change = Change{TeamID: team.ID, SetLiberoID: &id}
	if newMember {
		decision.Change.AddPlayerID = &id
	}
	if removed != nil {
		removedID := removed.ID
		decision.Change.RemovePlayerID = &removedID
	}
	return decision
}

// EvaluateLeader checks a player founding a new team: the founder must be
// free in the tournament, alone within the cap and of a suitable level.
func (p *Policy) EvaluateLeader(candidate models.Player, tournament models.Tournament, teams []models.Team) Decision {
	return p.Evaluate(JoinRequest{
		Candidate:  candidate,
		Team:       models.Team{TournamentID: tournament.ID},
		Tournament: tournament,
		Teams:      teams,
	})
}

// Points returns the current total of a team.
func (p *Policy) Points(team models.Team) int {
	return p.scoring.TeamPoints(team.Players, team.LiberoID)
}

func (p *Policy) wrongLevel(candidate models.Player, tournament models.Tournament) bool {
	if candidate.Level == nil {
		return true
	}
	level := *candidate.Level
	return level == p.scoring.FloorLevel() || level > tournament.Level
}

func reject(d Decision, reason Reason) Decision {
	d.Eligible = false
	d.Reason = reason
	return d
}

func inOtherTeam(teams []models.Team, targetID, playerID int64) bool {
	for _, team := range teams {
		if team.ID == targetID {
			continue
		}
		if team.HasPlayer(playerID) {
			return true
		}
	}
	return false
}

func without(players []models.Player, playerID int64) []models.Player {
	out := players[:0:0]
	for _, p := range players {
		if p.ID != playerID {
			out = append(out, p)
		}
	}
	return out
}

package pg

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

// Teams ----------------------------------------------------------------------

type TeamsRepo struct {
	pool *pgxpool.Pool
}

func NewTeamsRepo(pool *pgxpool.Pool) repository.TeamsRepository {
	return &TeamsRepo{pool: pool}
}

var teamColumns = []string{
	"id", "tournament_id", "title", "leader_id", "libero_id", "reserve", "created_at", "promoted_at",
}

func scanTeam(row pgx.Row) (models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID,
		&team.TournamentID,
		&team.Title,
		&team.LeaderID,
		&team.LiberoID,
		&team.Reserve,
		&team.CreatedAt,
		&team.PromotedAt,
	)
	return team, err
}

func listTeams(ctx context.Context, db querier, where sq.Sqlizer) ([]models.Team, error) {
	rows, err := qQuery(ctx, db, psql.Select(teamColumns...).From("teams").Where(where).OrderBy("created_at", "id"))
	if err != nil {
		return nil, err
	}
	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		team.Players = []models.Player{}
		teams = append(teams, team)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return teams, nil
	}

	ids := make([]int64, len(teams))
	index := make(map[int64]int, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
		index[t.ID] = i
	}
	rows, err = qQuery(ctx, db, psql.
		Select(playerColumns, "tu.team_id").
		From("teams_users tu").
		Join("users u ON u.id = tu.user_id").
		Where(sq.Eq{"tu.team_id": ids}).
		OrderBy("tu.id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID int64
		player, err := scanPlayer(rows, &teamID)
		if err != nil {
			return nil, err
		}
		i := index[teamID]
		teams[i].Players = append(teams[i].Players, player)
	}
	return teams, rows.Err()
}

func getTeam(ctx context.Context, db querier, id int64) (*models.Team, error) {
	teams, err := listTeams(ctx, db, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, models.ErrNotFound
	}
	return &teams[0], nil
}

func (r *TeamsRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]models.Team, error) {
	return listTeams(ctx, r.pool, sq.Eq{"tournament_id": tournamentID})
}

func (r *TeamsRepo) Get(ctx context.Context, id int64) (*models.Team, error) {
	return getTeam(ctx, r.pool, id)
}

func (r *TeamsRepo) Create(ctx context.Context, team models.Team) (int64, error) {
	createdAt := team.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var id int64
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO teams (tournament_id, title, leader_id, reserve, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			team.TournamentID,
			team.Title,
			team.LeaderID,
			team.Reserve,
			createdAt,
		).Scan(&id); err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO teams_users (team_id, user_id) VALUES ($1, $2)`, id, team.LeaderID); err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tournament_payments (tournament_id, team_id) VALUES ($1, $2)`,
			team.TournamentID, id); err != nil {
			return mapErr(err)
		}
		if !team.Reserve {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO reserved_tournaments (tournament_id, team_id, date) VALUES ($1, $2, $3)`,
			team.TournamentID, id, createdAt)
		return mapErr(err)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *TeamsRepo) ApplyChange(ctx context.Context, change roster.Change) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `
			SELECT id FROM teams WHERE id=$1 FOR UPDATE`, change.TeamID).Scan(&locked); err != nil {
			return mapErr(err)
		}
		if change.RemovePlayerID != nil {
			if err := removeMember(ctx, tx, change.TeamID, *change.RemovePlayerID); err != nil {
				return err
			}
		}
		if change.AddPlayerID != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO teams_users (team_id, user_id) VALUES ($1, $2)`,
				change.TeamID, *change.AddPlayerID); err != nil {
				return mapErr(err)
			}
		}
		if change.SetLiberoID != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE teams SET libero_id=$2 WHERE id=$1`, change.TeamID, *change.SetLiberoID); err != nil {
				return err
			}
		}
		return nil
	})
}

// removeMember drops the player from the roster and clears the libero slot
// when it was theirs.
func removeMember(ctx context.Context, tx pgx.Tx, teamID, playerID int64) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM teams_users WHERE team_id=$1 AND user_id=$2`, teamID, playerID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE teams SET libero_id=NULL WHERE id=$1 AND libero_id=$2`, teamID, playerID)
	return err
}

func (r *TeamsRepo) RemovePlayer(ctx context.Context, teamID, playerID int64) (bool, error) {
	var removed bool
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM teams_users WHERE team_id=$1 AND user_id=$2`, teamID, playerID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		removed = true
		return removeMember(ctx, tx, teamID, playerID)
	})
	return removed, err
}

func (r *TeamsRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

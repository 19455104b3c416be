package pg

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Tournaments ----------------------------------------------------------------

type TournamentsRepo struct {
	pool *pgxpool.Pool
}

func NewTournamentsRepo(pool *pgxpool.Pool) repository.TournamentsRepository {
	return &TournamentsRepo{pool: pool}
}

var tournamentColumns = []string{
	"id", "type", "title", "date", "min_team_count", "max_team_count",
	"min_team_players", "max_team_players", "active", "level", "price",
	"reminded", "created_at",
}

func scanTournament(row pgx.Row) (models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID,
		&t.Type,
		&t.Title,
		&t.Date,
		&t.MinTeamCount,
		&t.MaxTeamCount,
		&t.MinTeamPlayers,
		&t.MaxTeamPlayers,
		&t.Active,
		&t.Level,
		&t.Price,
		&t.Reminded,
		&t.CreatedAt,
	)
	return t, err
}

func (r *TournamentsRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Tournament, error) {
	rows, err := qQuery(ctx, r.pool, applyFilter(psql.Select(tournamentColumns...).From("tournaments"), filter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *TournamentsRepo) Get(ctx context.Context, id int64) (*models.Tournament, error) {
	query, args, err := psql.Select(tournamentColumns...).From("tournaments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanTournament(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *TournamentsRepo) Create(ctx context.Context, t models.Tournament) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO tournaments (type, title, date, min_team_count, max_team_count,
		                         min_team_players, max_team_players, active, level, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		t.Type,
		t.Title,
		t.Date,
		t.MinTeamCount,
		t.MaxTeamCount,
		t.MinTeamPlayers,
		t.MaxTeamPlayers,
		t.Active,
		t.Level,
		t.Price,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *TournamentsRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tournaments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *TournamentsRepo) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournaments SET active=FALSE WHERE id=$1 AND active=TRUE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TournamentsRepo) MarkReminded(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournaments SET reminded=TRUE WHERE id=$1 AND reminded=FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

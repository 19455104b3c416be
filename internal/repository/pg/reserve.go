package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Reserve --------------------------------------------------------------------

// ReserveRepo moves teams and players out of the reserve queues. Each
// promotion is a single transaction guarded by the current reserve state.
type ReserveRepo struct {
	pool *pgxpool.Pool
}

func NewReserveRepo(pool *pgxpool.Pool) repository.ReserveRepository {
	return &ReserveRepo{pool: pool}
}

func (r *ReserveRepo) CountMainTeams(ctx context.Context, tournamentID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM teams WHERE tournament_id=$1 AND reserve=FALSE`, tournamentID).Scan(&count)
	return count, err
}

func (r *ReserveRepo) OldestReserveTeam(ctx context.Context, tournamentID int64) (*models.Team, error) {
	var teamID int64
	err := r.pool.QueryRow(ctx, `
		SELECT rt.team_id
		FROM reserved_tournaments rt
		JOIN teams t ON t.id = rt.team_id
		WHERE rt.tournament_id=$1 AND t.reserve=TRUE
		ORDER BY rt.date, rt.id
		LIMIT 1`, tournamentID).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return getTeam(ctx, r.pool, teamID)
}

func (r *ReserveRepo) PromoteTeam(ctx context.Context, teamID int64, at time.Time) (bool, error) {
	var promoted bool
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE teams SET reserve=FALSE, promoted_at=$2 WHERE id=$1 AND reserve=TRUE`, teamID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM reserved_tournaments WHERE team_id=$1`, teamID); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	return promoted, err
}

func (r *ReserveRepo) CountEventPlayers(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events_users WHERE event_id=$1`, eventID).Scan(&count)
	return count, err
}

func (r *ReserveRepo) OldestReserveEntry(ctx context.Context, eventID int64) (*models.ReserveEntry, error) {
	var entry models.ReserveEntry
	player, err := scanPlayer(r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+`, r.id, r.event_id, r.date
		FROM reserved r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id=$1
		ORDER BY r.date, r.id
		LIMIT 1`, eventID), &entry.ID, &entry.EventID, &entry.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Player = player
	return &entry, nil
}

func (r *ReserveRepo) PromoteReserveEntry(ctx context.Context, entry models.ReserveEntry) (bool, error) {
	var promoted bool
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var playerID int64
		err := tx.QueryRow(ctx, `
			DELETE FROM reserved WHERE id=$1 RETURNING user_id`, entry.ID).Scan(&playerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO events_users (event_id, user_id) VALUES ($1, $2)
			ON CONFLICT (event_id, user_id) DO NOTHING`, entry.EventID, playerID); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	return promoted, err
}

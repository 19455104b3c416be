package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Players --------------------------------------------------------------------

type PlayersRepo struct {
	pool *pgxpool.Pool
}

func NewPlayersRepo(pool *pgxpool.Pool) repository.PlayersRepository {
	return &PlayersRepo{pool: pool}
}

func (r *PlayersRepo) List(ctx context.Context, pagination models.Pagination) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM users u
		ORDER BY u.lastname, u.id
		LIMIT $1 OFFSET $2`, pagination.Limit, pagination.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, player)
	}
	return items, rows.Err()
}

func (r *PlayersRepo) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PlayersRepo) Get(ctx context.Context, id int64) (*models.Player, error) {
	player, err := scanPlayer(r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM users u WHERE u.id=$1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &player, nil
}

func (r *PlayersRepo) GetByTgID(ctx context.Context, tgID int64) (*models.Player, error) {
	player, err := scanPlayer(r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM users u WHERE u.tg_id=$1`, tgID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &player, nil
}

func (r *PlayersRepo) Create(ctx context.Context, player models.Player) (int64, error) {
	var gender *string
	if player.Gender != nil {
		g := string(*player.Gender)
		gender = &g
	}
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO users (tg_id, username, firstname, lastname, level, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		player.TgID,
		player.Username,
		player.FirstName,
		player.LastName,
		player.Level,
		gender,
	).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *PlayersRepo) Update(ctx context.Context, id int64, patch models.PlayerPatch) error {
	set, args := buildUpdateSet([]column{
		{name: "level", value: patch.Level},
		{name: "gender", value: patch.Gender},
	})
	if len(set) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE users SET %s WHERE id=$%d", set, len(args)+1)
	args = append(args, id)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

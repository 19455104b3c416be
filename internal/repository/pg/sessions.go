package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Sessions -------------------------------------------------------------------

type SessionsRepo struct {
	pool *pgxpool.Pool
}

func NewSessionsRepo(pool *pgxpool.Pool) repository.SessionsRepository {
	return &SessionsRepo{pool: pool}
}

func (r *SessionsRepo) Get(ctx context.Context, tgID int64) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT tg_id, current_flow, flow_state, updated_at
		FROM sessions
		WHERE tg_id = $1`, tgID)
	var session models.Session
	if err := row.Scan(
		&session.TgID,
		&session.CurrentFlow,
		&session.FlowState,
		&session.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &session, nil
}

func (r *SessionsRepo) Upsert(ctx context.Context, session models.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (tg_id, current_flow, flow_state, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tg_id)
		DO UPDATE SET current_flow = EXCLUDED.current_flow,
		              flow_state = EXCLUDED.flow_state,
		              updated_at = NOW()`,
		session.TgID,
		session.CurrentFlow,
		session.FlowState,
	)
	return err
}

func (r *SessionsRepo) Delete(ctx context.Context, tgID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE tg_id = $1`, tgID)
	return err
}

package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Payments -------------------------------------------------------------------

type PaymentsRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentsRepo(pool *pgxpool.Pool) repository.PaymentsRepository {
	return &PaymentsRepo{pool: pool}
}

const paymentColumns = "id, event_id, user_id, paid, paid_confirm, paid_at, confirmed_at"

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.EventID, &p.PlayerID, &p.Paid, &p.PaidConfirm, &p.PaidAt, &p.ConfirmedAt)
	return p, err
}

func (r *PaymentsRepo) GetEventPayment(ctx context.Context, eventID, playerID int64) (*models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE event_id=$1 AND user_id=$2`, eventID, playerID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PaymentsRepo) CreateEventPayment(ctx context.Context, eventID, playerID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (event_id, user_id) VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING`, eventID, playerID)
	return mapErr(err)
}

func (r *PaymentsRepo) ClaimEventPayment(ctx context.Context, eventID, playerID int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET paid=TRUE, paid_at=$3
		WHERE event_id=$1 AND user_id=$2 AND paid=FALSE`, eventID, playerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentsRepo) ConfirmEventPayment(ctx context.Context, eventID, playerID int64, at time.Time) (models.ConfirmResult, error) {
	var result models.ConfirmResult
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var places int
		if err := tx.QueryRow(ctx, `
			SELECT places FROM events WHERE id=$1 FOR UPDATE`, eventID).Scan(&places); err != nil {
			return mapErr(err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE payments SET paid_confirm=TRUE, confirmed_at=$3
			WHERE event_id=$1 AND user_id=$2 AND paid=TRUE AND paid_confirm=FALSE`, eventID, playerID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		result.Confirmed = true

		var taken int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM events_users WHERE event_id=$1`, eventID).Scan(&taken); err != nil {
			return err
		}
		if taken < places {
			_, err := tx.Exec(ctx, `
				INSERT INTO events_users (event_id, user_id) VALUES ($1, $2)`, eventID, playerID)
			return mapErr(err)
		}

		result.Reserve = true
		if _, err := tx.Exec(ctx, `
			INSERT INTO reserved (event_id, user_id, date) VALUES ($1, $2, $3)`, eventID, playerID, at); err != nil {
			return mapErr(err)
		}
		_, err = tx.Exec(ctx, `
			DELETE FROM payments WHERE event_id=$1 AND user_id=$2`, eventID, playerID)
		return err
	})
	if err != nil {
		return models.ConfirmResult{}, err
	}
	return result, nil
}

func (r *PaymentsRepo) RejectEventPayment(ctx context.Context, eventID, playerID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM payments
		WHERE event_id=$1 AND user_id=$2 AND paid=TRUE AND paid_confirm=FALSE`, eventID, playerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentsRepo) DeleteEventPayment(ctx context.Context, eventID, playerID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM payments WHERE event_id=$1 AND user_id=$2`, eventID, playerID)
	return err
}

func (r *PaymentsRepo) ListPendingEventPayments(ctx context.Context) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE paid=TRUE AND paid_confirm=FALSE
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const teamPaymentColumns = "id, tournament_id, team_id, paid, paid_confirm, paid_at, confirmed_at"

func scanTeamPayment(row pgx.Row) (models.TournamentPayment, error) {
	var p models.TournamentPayment
	err := row.Scan(&p.ID, &p.TournamentID, &p.TeamID, &p.Paid, &p.PaidConfirm, &p.PaidAt, &p.ConfirmedAt)
	return p, err
}

func (r *PaymentsRepo) GetTeamPayment(ctx context.Context, teamID int64) (*models.TournamentPayment, error) {
	p, err := scanTeamPayment(r.pool.QueryRow(ctx, `
		SELECT `+teamPaymentColumns+` FROM tournament_payments WHERE team_id=$1`, teamID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PaymentsRepo) ClaimTeamPayment(ctx context.Context, teamID int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournament_payments SET paid=TRUE, paid_at=$2
		WHERE team_id=$1 AND paid=FALSE`, teamID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ConfirmTeamPayment re-checks the main list under the tournament lock. A
// main team confirmed after MaxTeamCount others already were is moved to the
// back of the reserve.
func (r *PaymentsRepo) ConfirmTeamPayment(ctx context.Context, teamID int64, at time.Time) (models.ConfirmResult, error) {
	var result models.ConfirmResult
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			tournamentID int64
			maxTeams     int
			reserve      bool
		)
		if err := tx.QueryRow(ctx, `
			SELECT t.tournament_id, tr.max_team_count, t.reserve
			FROM teams t
			JOIN tournaments tr ON tr.id = t.tournament_id
			WHERE t.id=$1
			FOR UPDATE OF tr, t`, teamID).Scan(&tournamentID, &maxTeams, &reserve); err != nil {
			return mapErr(err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE tournament_payments SET paid_confirm=TRUE, confirmed_at=$2
			WHERE team_id=$1 AND paid=TRUE AND paid_confirm=FALSE`, teamID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		result.Confirmed = true
		if reserve {
			result.Reserve = true
			return nil
		}

		var confirmed int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM teams t
			JOIN tournament_payments p ON p.team_id = t.id
			WHERE t.tournament_id=$1 AND t.reserve=FALSE AND p.paid_confirm=TRUE AND t.id<>$2`,
			tournamentID, teamID).Scan(&confirmed); err != nil {
			return err
		}
		if confirmed < maxTeams {
			return nil
		}

		result.Reserve = true
		if _, err := tx.Exec(ctx, `
			UPDATE teams SET reserve=TRUE, promoted_at=NULL WHERE id=$1`, teamID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO reserved_tournaments (tournament_id, team_id, date) VALUES ($1, $2, $3)`,
			tournamentID, teamID, at)
		return mapErr(err)
	})
	if err != nil {
		return models.ConfirmResult{}, err
	}
	return result, nil
}

func (r *PaymentsRepo) RejectTeamPayment(ctx context.Context, teamID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournament_payments SET paid=FALSE, paid_at=NULL
		WHERE team_id=$1 AND paid=TRUE AND paid_confirm=FALSE`, teamID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentsRepo) ListPendingTeamPayments(ctx context.Context) ([]models.TournamentPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+teamPaymentColumns+`
		FROM tournament_payments
		WHERE paid=TRUE AND paid_confirm=FALSE
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.TournamentPayment
	for rows.Next() {
		p, err := scanTeamPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

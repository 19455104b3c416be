package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func qQuery(ctx context.Context, db querier, q sq.SelectBuilder) (pgx.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, query, args...)
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mapErr converts constraint violations into domain errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", models.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// applyFilter narrows a listing of events or tournaments.
func applyFilter(q sq.SelectBuilder, filter models.EventFilter) sq.SelectBuilder {
	if filter.Active != nil {
		q = q.Where(sq.Eq{"active": *filter.Active})
	}
	if filter.From != nil {
		q = q.Where(sq.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(sq.LtOrEq{"date": *filter.To})
	}
	return q.OrderBy("date", "id")
}

const playerColumns = "u.id, u.tg_id, u.username, u.firstname, u.lastname, u.level, u.gender, u.created_at"

func scanPlayer(row pgx.Row, extra ...any) (models.Player, error) {
	var (
		player models.Player
		gender *string
	)
	dest := append([]any{
		&player.ID,
		&player.TgID,
		&player.Username,
		&player.FirstName,
		&player.LastName,
		&player.Level,
		&gender,
		&player.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return player, err
	}
	if gender != nil {
		g := models.Gender(*gender)
		player.Gender = &g
	}
	return player, nil
}

type column struct {
	name  string
	value any
}

func buildUpdateSet(cols []column) (string, []any) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)
	for _, col := range cols {
		switch v := col.value.(type) {
		case nil:
			continue
		case *string:
			if v == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, *v)
			idx++
		case *bool:
			if v == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, *v)
			idx++
		case *int:
			if v == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, *v)
			idx++
		case *models.Gender:
			if v == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, string(*v))
			idx++
		case *time.Time:
			if v == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, *v)
			idx++
		default:
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col.name, idx))
			args = append(args, v)
			idx++
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	clauses = append(clauses, "updated_at=NOW()")
	return strings.Join(clauses, ", "), args
}

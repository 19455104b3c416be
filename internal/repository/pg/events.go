package pg

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Events ---------------------------------------------------------------------

type EventsRepo struct {
	pool *pgxpool.Pool
}

func NewEventsRepo(pool *pgxpool.Pool) repository.EventsRepository {
	return &EventsRepo{pool: pool}
}

var eventColumns = []string{
	"id", "type", "title", "date", "places", "min_user_count",
	"active", "level", "price", "reminded", "created_at",
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID,
		&event.Type,
		&event.Title,
		&event.Date,
		&event.Places,
		&event.MinUserCount,
		&event.Active,
		&event.Level,
		&event.Price,
		&event.Reminded,
		&event.CreatedAt,
	)
	return event, err
}

func (r *EventsRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	rows, err := qQuery(ctx, r.pool, applyFilter(psql.Select(eventColumns...).From("events"), filter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *EventsRepo) Get(ctx context.Context, id int64) (*models.Event, error) {
	query, args, err := psql.Select(eventColumns...).From("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	event, err := scanEvent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapErr(err)
	}
	items := []models.Event{event}
	if err := r.attach(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// attach loads participants and reserve queues for the given events in two
// queries.
func (r *EventsRepo) attach(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]int64, len(events))
	index := make(map[int64]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
	}

	rows, err := qQuery(ctx, r.pool, psql.
		Select(playerColumns, "eu.event_id").
		From("events_users eu").
		Join("users u ON u.id = eu.user_id").
		Where(sq.Eq{"eu.event_id": ids}).
		OrderBy("eu.id"))
	if err != nil {
		return err
	}
	for rows.Next() {
		var eventID int64
		player, err := scanPlayer(rows, &eventID)
		if err != nil {
			rows.Close()
			return err
		}
		i := index[eventID]
		events[i].Players = append(events[i].Players, player)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = qQuery(ctx, r.pool, psql.
		Select(playerColumns, "r.id", "r.event_id", "r.date").
		From("reserved r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.event_id": ids}).
		OrderBy("r.date", "r.id"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entry models.ReserveEntry
		player, err := scanPlayer(rows, &entry.ID, &entry.EventID, &entry.Date)
		if err != nil {
			return err
		}
		entry.Player = player
		i := index[entry.EventID]
		events[i].Reserve = append(events[i].Reserve, entry)
	}
	return rows.Err()
}

func (r *EventsRepo) Create(ctx context.Context, event models.Event) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO events (type, title, date, places, min_user_count, active, level, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		event.Type,
		event.Title,
		event.Date,
		event.Places,
		event.MinUserCount,
		event.Active,
		event.Level,
		event.Price,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *EventsRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *EventsRepo) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET active=FALSE WHERE id=$1 AND active=TRUE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EventsRepo) MarkReminded(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET reminded=TRUE WHERE id=$1 AND reminded=FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EventsRepo) AddPlayer(ctx context.Context, eventID, playerID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events_users (event_id, user_id) VALUES ($1, $2)`, eventID, playerID)
	return mapErr(err)
}

func (r *EventsRepo) RemovePlayer(ctx context.Context, eventID, playerID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM events_users WHERE event_id=$1 AND user_id=$2`, eventID, playerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EventsRepo) AddReserve(ctx context.Context, eventID, playerID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reserved (event_id, user_id, date) VALUES ($1, $2, $3)`, eventID, playerID, at)
	return mapErr(err)
}

func (r *EventsRepo) RemoveReserve(ctx context.Context, eventID, playerID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM reserved WHERE event_id=$1 AND user_id=$2`, eventID, playerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

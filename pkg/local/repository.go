package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Event is a locally stored room booking for rooms without an external
// calendar. Instants are persisted as Unix milliseconds.
type Event struct {
	Id        int
	RoomId    int
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Organizer string
}

type Repository interface {
	StoreEvent(ctx context.Context, event Event) (Event, error)
	// GetEventsForRange returns the room's events whose start falls within
	// [from, to), ordered by start time ascending.
	GetEventsForRange(ctx context.Context, roomId int, from, to time.Time) ([]Event, error)
	// GetEvent returns nil when no event with the id exists.
	GetEvent(ctx context.Context, id int) (*Event, error)
	UpdateEventEnd(ctx context.Context, id int, end time.Time) error
	// DeleteEvent reports whether a row was actually removed.
	DeleteEvent(ctx context.Context, id int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (Event, error) {
	var organizer *string
	if event.Organizer != "" {
		organizer = &event.Organizer
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO local_events (room_id, title, start_time, end_time, organizer)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		event.RoomId, event.Title, event.StartTime.UnixMilli(), event.EndTime.UnixMilli(), organizer,
	).Scan(&event.Id)
	if err != nil {
		err := fmt.Errorf("could not insert local event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) GetEventsForRange(ctx context.Context, roomId int, from, to time.Time) ([]Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, title, start_time, end_time, organizer
		 FROM local_events
		 WHERE room_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time`,
		roomId, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not query local events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, id int) (*Event, error) {
	row := r.db.QueryRow(ctx,
		"SELECT id, room_id, title, start_time, end_time, organizer FROM local_events WHERE id = $1", id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query local event: %w", err)
	}
	return &event, nil
}

func (r *RepositoryImpl) UpdateEventEnd(ctx context.Context, id int, end time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE local_events SET end_time = $1 WHERE id = $2", end.UnixMilli(), id)
	if err != nil {
		err := fmt.Errorf("could not update local event: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM local_events WHERE id = $1", id)
	if err != nil {
		err := fmt.Errorf("could not delete local event: %w", err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	var startTimeMillis int64
	var endTimeMillis int64
	var organizer *string
	if err := row.Scan(&event.Id, &event.RoomId, &event.Title, &startTimeMillis, &endTimeMillis, &organizer); err != nil {
		return Event{}, err
	}
	event.StartTime = time.UnixMilli(startTimeMillis).UTC()
	event.EndTime = time.UnixMilli(endTimeMillis).UTC()
	if organizer != nil {
		event.Organizer = *organizer
	}
	return event, nil
}

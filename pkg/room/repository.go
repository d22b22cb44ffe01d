package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	GetAll(ctx context.Context) ([]Room, error)
	// Get returns nil when no room with the id exists.
	Get(ctx context.Context, id int) (*Room, error)
	Create(ctx context.Context, room Room) (Room, error)
	Delete(ctx context.Context, id int) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetAll(ctx context.Context) ([]Room, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, name, calendar_id, calendar_provider FROM rooms WHERE is_active = TRUE ORDER BY name")
	if err != nil {
		err := fmt.Errorf("could not query rooms: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	rooms := make([]Room, 0, 10)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (*Room, error) {
	row := r.db.QueryRow(ctx,
		"SELECT id, name, calendar_id, calendar_provider FROM rooms WHERE id = $1", id)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, room Room) (Room, error) {
	var calendarId *string
	if room.CalendarId != "" {
		calendarId = &room.CalendarId
	}
	var provider *string
	if room.Provider != "" {
		provider = &room.Provider
	}

	err := r.db.QueryRow(ctx,
		"INSERT INTO rooms (name, calendar_id, calendar_provider) VALUES ($1, $2, $3) RETURNING id",
		room.Name, calendarId, provider,
	).Scan(&room.Id)
	if err != nil {
		err := fmt.Errorf("could not insert room: %w", err)
		log.Error(err)
		return Room{}, err
	}
	return room, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		err := fmt.Errorf("could not delete room: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func scanRoom(row pgx.Row) (Room, error) {
	var room Room
	var calendarId *string
	var provider *string
	if err := row.Scan(&room.Id, &room.Name, &calendarId, &provider); err != nil {
		return Room{}, err
	}
	if calendarId != nil {
		room.CalendarId = *calendarId
	}
	if provider != nil {
		room.Provider = *provider
	}
	return room, nil
}

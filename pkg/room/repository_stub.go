package room

import "context"

type StubRepository struct {
	Rooms  []Room
	nextId int
}

func (s *StubRepository) GetAll(_ context.Context) ([]Room, error) {
	return s.Rooms, nil
}

func (s *StubRepository) Get(_ context.Context, id int) (*Room, error) {
	for _, r := range s.Rooms {
		if r.Id == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *StubRepository) Create(_ context.Context, room Room) (Room, error) {
	s.nextId++
	room.Id = s.nextId
	s.Rooms = append(s.Rooms, room)
	return room, nil
}

func (s *StubRepository) Delete(_ context.Context, id int) error {
	for i, r := range s.Rooms {
		if r.Id == id {
			s.Rooms = append(s.Rooms[:i], s.Rooms[i+1:]...)
			return nil
		}
	}
	return nil
}

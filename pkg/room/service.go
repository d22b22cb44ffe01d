package room

import (
	"context"
	"fmt"
)

type Service interface {
	GetAll(ctx context.Context) ([]Room, error)
	// Get returns nil when the room is unknown.
	Get(ctx context.Context, id int) (*Room, error)
	Create(ctx context.Context, room Room) (Room, error)
	Delete(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]Room, error) {
	return s.repo.GetAll(ctx)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (*Room, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, room Room) (Room, error) {
	if room.Name == "" {
		return Room{}, fmt.Errorf("room name must not be empty")
	}
	return s.repo.Create(ctx, room)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

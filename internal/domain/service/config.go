package service

import (
	"context"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

// EntryService lists and removes configured hub entries.
type EntryService struct {
	repo    ports.EntryRepository
	manager *Manager
}

func NewEntryService(repo ports.EntryRepository, manager *Manager) *EntryService {
	return &EntryService{
		repo:    repo,
		manager: manager,
	}
}

func (s *EntryService) List(ctx context.Context) ([]*model.HubEntry, error) {
	return s.repo.List(ctx)
}

// Remove tears down the hub's bridge, then deletes the entry.
func (s *EntryService) Remove(ctx context.Context, serial string) error {
	if err := s.manager.StopEntry(ctx, serial); err != nil {
		return err
	}
	return s.repo.Delete(ctx, serial)
}

var _ ports.EntriesPort = (*EntryService)(nil)

package ports

import (
	"context"
	"myhome-bridge/internal/domain/model"
)

// EntryRepository stores configured hub entries keyed by serial.
type EntryRepository interface {
	List(ctx context.Context) ([]*model.HubEntry, error)
	Get(ctx context.Context, serial string) (*model.HubEntry, error)
	Save(ctx context.Context, entry *model.HubEntry) error
	Delete(ctx context.Context, serial string) error
}

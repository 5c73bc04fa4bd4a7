package ports

import (
	"context"
	"myhome-bridge/internal/domain/model"
)

type BridgePort interface {
	Entities() []Entity
	Entity(uniqueID string) (Entity, error)
	RefreshInventory(ctx context.Context) error
}

type SetupPort interface {
	SetupUser(ctx context.Context, input model.SetupInput) model.SetupResult
	SetupDiscovered(ctx context.Context, location string, input model.SetupInput) model.SetupResult
}

// EntriesPort lists and removes configured hub entries.
type EntriesPort interface {
	List(ctx context.Context) ([]*model.HubEntry, error)
	Remove(ctx context.Context, serial string) error
}

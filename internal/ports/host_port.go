package ports

import (
	"context"
	"myhome-bridge/internal/domain/model"
)

// Entity is the controllable light contract exposed to the host platform.
type Entity interface {
	UniqueID() string
	DeviceID() string
	Name() string
	SupportsBrightness() bool
	PlacementHint() (string, bool)
	ExtraAttributes() map[string]string
	State() model.EntityState
	Refresh(ctx context.Context) error
	TurnOn(ctx context.Context, brightness *uint8) error
	TurnOff(ctx context.Context) error
}

// EntityHost registers entities with the host platform and publishes their state.
type EntityHost interface {
	Register(ctx context.Context, hubSerial string, entities []Entity) error
	Unregister(ctx context.Context, entities []Entity) error
	PublishState(ctx context.Context, e Entity) error
}

// Discoverer finds hubs on the local network and returns their description URLs.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

package variant

import (
	"context"
	"errors"

	"myhome-bridge/internal/domain/model"
)

// ErrUnsupportedKind is returned by New for device kinds without a variant.
var ErrUnsupportedKind = errors.New("variant: unsupported device kind")

// Device is the capability surface every hub device variant exposes.
// Commands go through the hub client; a Device is never mutated locally.
type Device interface {
	ID() int
	Name() string
	Placement() (room, zone *model.Place)
	Metadata() map[string]string
	SupportsDimming() bool
	FetchValue(ctx context.Context) (model.DeviceValue, error)
	// TurnOn powers the device on. level is a hub-domain dimmer level and is
	// ignored by variants without dimming.
	TurnOn(ctx context.Context, level *int) error
	TurnOff(ctx context.Context) error
}

// Dimmable is implemented by variants with a brightness control.
type Dimmable interface {
	Device
	SetBrightness(ctx context.Context, level int) error
}

// base holds the identity shared by all variants.
type base struct {
	device model.Device
}

func (b base) ID() int      { return b.device.ID }
func (b base) Name() string { return b.device.Name }

func (b base) Placement() (room, zone *model.Place) {
	return b.device.Room, b.device.Zone
}

func (b base) Metadata() map[string]string {
	return b.device.Info
}

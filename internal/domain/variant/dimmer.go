package variant

import (
	"context"
	"fmt"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

// Dimmer is a light with a 0..100 dimmer level.
type Dimmer struct {
	base
	client ports.HubClient
}

func (d *Dimmer) SupportsDimming() bool { return true }

func (d *Dimmer) FetchValue(ctx context.Context) (model.DeviceValue, error) {
	v, err := d.client.ObjectValue(ctx, d.device.ID)
	if err != nil {
		return model.DeviceValue{}, fmt.Errorf("reading dimmer %d: %w", d.device.ID, err)
	}
	return model.DeviceValue{Kind: model.DeviceKindDimmer, Dimmer: v.Dimmer}, nil
}

func (d *Dimmer) SetBrightness(ctx context.Context, level int) error {
	if err := d.client.SetDimmer(ctx, d.device.ID, level); err != nil {
		return fmt.Errorf("dimming %d to %d: %w", d.device.ID, level, err)
	}
	return nil
}

// TurnOn dims first when a level is given, then switches on. The two calls
// are not atomic: if switching on fails the new level stays applied.
func (d *Dimmer) TurnOn(ctx context.Context, level *int) error {
	if level != nil {
		if err := d.SetBrightness(ctx, *level); err != nil {
			return err
		}
	}
	if err := d.client.SetPower(ctx, d.device.ID, true); err != nil {
		return fmt.Errorf("switching on dimmer %d: %w", d.device.ID, err)
	}
	return nil
}

func (d *Dimmer) TurnOff(ctx context.Context) error {
	if err := d.client.SetPower(ctx, d.device.ID, false); err != nil {
		return fmt.Errorf("switching off dimmer %d: %w", d.device.ID, err)
	}
	return nil
}

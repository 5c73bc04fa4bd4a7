package variant

import (
	"context"
	"fmt"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

// Light is an on/off light without brightness.
type Light struct {
	base
	client ports.HubClient
}

func (l *Light) SupportsDimming() bool { return false }

func (l *Light) FetchValue(ctx context.Context) (model.DeviceValue, error) {
	v, err := l.client.ObjectValue(ctx, l.device.ID)
	if err != nil {
		return model.DeviceValue{}, fmt.Errorf("reading light %d: %w", l.device.ID, err)
	}
	return model.DeviceValue{Kind: model.DeviceKindLight, Power: v.Power}, nil
}

func (l *Light) TurnOn(ctx context.Context, _ *int) error {
	if err := l.client.SetPower(ctx, l.device.ID, true); err != nil {
		return fmt.Errorf("switching on light %d: %w", l.device.ID, err)
	}
	return nil
}

func (l *Light) TurnOff(ctx context.Context) error {
	if err := l.client.SetPower(ctx, l.device.ID, false); err != nil {
		return fmt.Errorf("switching off light %d: %w", l.device.ID, err)
	}
	return nil
}

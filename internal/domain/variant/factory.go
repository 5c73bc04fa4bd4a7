package variant

import (
	"fmt"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

type constructor func(model.Device, ports.HubClient) Device

type Factory struct {
	variants map[model.DeviceKind]constructor
}

func NewFactory() *Factory {
	return &Factory{
		variants: map[model.DeviceKind]constructor{
			model.DeviceKindLight: func(d model.Device, c ports.HubClient) Device {
				return &Light{base: base{device: d}, client: c}
			},
			model.DeviceKindDimmer: func(d model.Device, c ports.HubClient) Device {
				return &Dimmer{base: base{device: d}, client: c}
			},
		},
	}
}

// New wraps a device in the variant for its kind.
func (f *Factory) New(d model.Device, client ports.HubClient) (Device, error) {
	newVariant, ok := f.variants[d.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, d.Kind)
	}
	return newVariant(d, client), nil
}

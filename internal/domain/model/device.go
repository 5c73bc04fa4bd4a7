package model

type DeviceKind string

const (
	DeviceKindLight  DeviceKind = "light"
	DeviceKindDimmer DeviceKind = "dimmer"
)

// IsLight reports whether the kind is exposed to the host as a light entity.
func (k DeviceKind) IsLight() bool {
	return k == DeviceKindLight || k == DeviceKindDimmer
}

// Place is a room or zone as reported by the hub.
type Place struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Device is one object of the hub inventory. Devices are rebuilt on every
// inventory fetch and never mutated after that.
type Device struct {
	ID   int               `json:"id"`
	Name string            `json:"name"`
	Kind DeviceKind        `json:"kind"`
	Room *Place            `json:"room,omitempty"`
	Zone *Place            `json:"zone,omitempty"`
	Info map[string]string `json:"info,omitempty"` // protocol/config attributes
}

// DeviceValue is the live value of a device. Power is meaningful for lights,
// Dimmer (0..100) for dimmers.
type DeviceValue struct {
	Kind   DeviceKind `json:"kind"`
	Power  bool       `json:"power"`
	Dimmer int        `json:"dimmer"`
}

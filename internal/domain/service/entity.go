package service

import (
	"context"
	"strconv"
	"sync"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/domain/translator"
	"myhome-bridge/internal/domain/variant"
)

// LightEntity adapts one hub light or dimmer to the host entity contract.
// Until the first successful Refresh it reports off with unknown state.
type LightEntity struct {
	device  variant.Device
	serial  string
	metrics Metrics

	mu    sync.RWMutex
	value *model.DeviceValue
}

func NewLightEntity(serial string, device variant.Device) *LightEntity {
	return &LightEntity{
		device:  device,
		serial:  serial,
		metrics: noopMetrics{},
	}
}

func (e *LightEntity) SetMetrics(m Metrics) {
	e.metrics = m
}

// UniqueID combines the hub serial and device id, e.g. "SRV123_42".
func (e *LightEntity) UniqueID() string {
	return e.serial + "_" + strconv.Itoa(e.device.ID())
}

// DeviceID identifies the physical device within its hub.
func (e *LightEntity) DeviceID() string {
	return strconv.Itoa(e.device.ID())
}

func (e *LightEntity) Name() string {
	return e.device.Name()
}

func (e *LightEntity) SupportsBrightness() bool {
	return e.device.SupportsDimming()
}

func (e *LightEntity) PlacementHint() (string, bool) {
	room, zone := e.device.Placement()
	return translator.PlacementLabel(zone, room)
}

func (e *LightEntity) ExtraAttributes() map[string]string {
	return translator.ExtraAttributes(e.device.Metadata())
}

// Refresh fetches the live value. On failure the previous value is kept and
// the error is returned to the caller's retry policy.
func (e *LightEntity) Refresh(ctx context.Context) error {
	v, err := e.device.FetchValue(ctx)
	e.metrics.EntityRefreshed(e.UniqueID(), err)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.value = &v
	e.mu.Unlock()
	return nil
}

// adopt takes over the last known value of the entity it replaces, unless
// this entity already has one or the device changed kind.
func (e *LightEntity) adopt(prev *LightEntity) {
	if prev.device.SupportsDimming() != e.device.SupportsDimming() {
		return
	}
	prev.mu.RLock()
	v := prev.value
	prev.mu.RUnlock()
	if v == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value == nil {
		last := *v
		e.value = &last
	}
}

func (e *LightEntity) IsOn() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.value == nil {
		return false
	}
	if e.device.SupportsDimming() {
		return e.value.Dimmer > 0
	}
	return e.value.Power
}

// Brightness reports host-domain brightness. Plain lights always report 0;
// dimmers report nothing until their level is known.
func (e *LightEntity) Brightness() (int, bool) {
	if !e.device.SupportsDimming() {
		return 0, true
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.value == nil {
		return 0, false
	}
	return translator.ToPlatformBrightness(e.value.Dimmer), true
}

// TurnOn switches the device on, dimming it first when a brightness is given
// and the device supports it. Brightness on a plain light is ignored.
func (e *LightEntity) TurnOn(ctx context.Context, brightness *uint8) error {
	var level *int
	if brightness != nil && e.device.SupportsDimming() {
		l := translator.ToHubBrightness(int(*brightness))
		level = &l
	}
	err := e.device.TurnOn(ctx, level)
	e.metrics.CommandSent("turn_on", err)
	return err
}

func (e *LightEntity) TurnOff(ctx context.Context) error {
	err := e.device.TurnOff(ctx)
	e.metrics.CommandSent("turn_off", err)
	return err
}

func (e *LightEntity) State() model.EntityState {
	e.mu.RLock()
	known := e.value != nil
	e.mu.RUnlock()

	st := model.EntityState{
		UniqueID:   e.UniqueID(),
		Name:       e.Name(),
		Known:      known,
		On:         e.IsOn(),
		Dimmable:   e.SupportsBrightness(),
		Attributes: e.ExtraAttributes(),
	}
	if b, ok := e.Brightness(); ok {
		st.Brightness = &b
	}
	if area, ok := e.PlacementHint(); ok {
		st.Area = area
	}
	return st
}

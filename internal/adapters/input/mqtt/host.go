// Package mqtt exposes bridge entities to the host platform through MQTT
// discovery and routes its commands back to them.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"myhome-bridge/internal/ports"
)

var _ ports.EntityHost = (*Host)(nil)

const (
	manufacturer    = "BTicino"
	hubModel        = "MyHOMEServer"
	brightnessScale = 255
)

// StateListener is notified after each state publication.
type StateListener func(e ports.Entity)

// Host implements ports.EntityHost on an MQTT broker.
type Host struct {
	conn   Conn
	topics Topics
	qos    byte
	logger zerolog.Logger

	mu        sync.RWMutex
	ctx       context.Context
	entities  map[string]ports.Entity
	hubs      map[string]string // unique id -> hub serial
	listeners []StateListener
}

func NewHost(conn Conn, topics Topics, qos byte, logger zerolog.Logger) *Host {
	return &Host{
		conn:     conn,
		topics:   topics,
		qos:      qos,
		logger:   logger.With().Str("component", "mqtt_host").Logger(),
		ctx:      context.Background(),
		entities: make(map[string]ports.Entity),
		hubs:     make(map[string]string),
	}
}

// OnState registers a listener for published states.
func (h *Host) OnState(l StateListener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// Start subscribes to entity commands and host restarts. ctx bounds the
// commands executed on behalf of the host.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	if err := h.conn.Publish(h.topics.Availability(), h.qos, true, []byte(payloadOnline)); err != nil {
		return fmt.Errorf("publishing availability: %w", err)
	}
	if err := h.conn.Subscribe(h.topics.CommandWildcard(), h.qos, h.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	if err := h.conn.Subscribe(h.topics.HostStatus(), h.qos, h.handleHostStatus); err != nil {
		return fmt.Errorf("subscribing to host status: %w", err)
	}
	return nil
}

func (h *Host) Register(ctx context.Context, hubSerial string, entities []ports.Entity) error {
	for _, e := range entities {
		h.mu.Lock()
		h.entities[e.UniqueID()] = e
		h.hubs[e.UniqueID()] = hubSerial
		h.mu.Unlock()

		if err := h.announce(hubSerial, e); err != nil {
			return err
		}
		if err := h.PublishState(ctx, e); err != nil {
			return err
		}
	}
	h.logger.Info().Str("hub", hubSerial).Int("entities", len(entities)).Msg("entities registered")
	return nil
}

// Unregister clears the retained discovery config so the host drops the entities.
func (h *Host) Unregister(ctx context.Context, entities []ports.Entity) error {
	for _, e := range entities {
		id := e.UniqueID()
		h.mu.Lock()
		delete(h.entities, id)
		delete(h.hubs, id)
		h.mu.Unlock()

		if err := h.conn.Publish(h.topics.Config(id), h.qos, true, nil); err != nil {
			return fmt.Errorf("removing %s: %w", id, err)
		}
	}
	return nil
}

// PublishState publishes the entity state once it is known.
func (h *Host) PublishState(ctx context.Context, e ports.Entity) error {
	st := e.State()
	if !st.Known {
		return nil
	}

	payload := StatePayload{State: "OFF"}
	if st.On {
		payload.State = "ON"
	}
	if st.Dimmable {
		payload.Brightness = st.Brightness
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := h.conn.Publish(h.topics.State(st.UniqueID), h.qos, true, data); err != nil {
		return fmt.Errorf("publishing state of %s: %w", st.UniqueID, err)
	}

	h.mu.RLock()
	listeners := h.listeners
	h.mu.RUnlock()
	for _, l := range listeners {
		l(e)
	}
	return nil
}

func (h *Host) announce(hubSerial string, e ports.Entity) error {
	id := e.UniqueID()
	cfg := LightConfig{
		Schema:              "json",
		UniqueID:            id,
		ObjectID:            "myhome_" + id,
		CommandTopic:        h.topics.Command(id),
		StateTopic:          h.topics.State(id),
		JSONAttributesTopic: h.topics.Attributes(id),
		Availability: []AvailabilityModel{{
			Topic:               h.topics.Availability(),
			PayloadAvailable:    payloadOnline,
			PayloadNotAvailable: payloadOffline,
		}},
		SupportedColorModes: []string{"onoff"},
		Device: &DeviceModel{
			Identifiers:  []string{"myhome_" + e.DeviceID()},
			Manufacturer: manufacturer,
			Model:        hubModel,
			Name:         e.Name(),
			ViaDevice:    "myhome_" + hubSerial,
		},
	}
	if e.SupportsBrightness() {
		cfg.Brightness = true
		cfg.BrightnessScale = brightnessScale
		cfg.SupportedColorModes = []string{"brightness"}
	}
	if area, ok := e.PlacementHint(); ok {
		cfg.Device.SuggestedArea = area
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := h.conn.Publish(h.topics.Config(id), h.qos, true, data); err != nil {
		return fmt.Errorf("announcing %s: %w", id, err)
	}

	attrs, err := json.Marshal(e.ExtraAttributes())
	if err != nil {
		return err
	}
	if err := h.conn.Publish(h.topics.Attributes(id), h.qos, true, attrs); err != nil {
		return fmt.Errorf("publishing attributes of %s: %w", id, err)
	}
	return nil
}

func (h *Host) handleCommand(topic string, payload []byte) {
	id, ok := h.topics.UniqueIDFromCommand(topic)
	if !ok {
		return
	}
	h.mu.RLock()
	e, ok := h.entities[id]
	ctx := h.ctx
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug().Str("entity", id).Msg("command for unknown entity")
		return
	}

	cmd, err := ParseCommand(payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("entity", id).Msg("invalid command")
		return
	}

	if err := Apply(ctx, e, cmd); err != nil {
		h.logger.Error().Err(err).Str("entity", id).Msg("command failed")
		return
	}
	if err := e.Refresh(ctx); err != nil {
		h.logger.Warn().Err(err).Str("entity", id).Msg("refresh after command failed")
		return
	}
	if err := h.PublishState(ctx, e); err != nil {
		h.logger.Warn().Err(err).Str("entity", id).Msg("publishing state")
	}
}

// handleHostStatus re-announces every entity when the host comes back online.
func (h *Host) handleHostStatus(_ string, payload []byte) {
	if strings.TrimSpace(string(payload)) != payloadOnline {
		return
	}

	h.mu.RLock()
	ctx := h.ctx
	type registered struct {
		serial string
		entity ports.Entity
	}
	all := make([]registered, 0, len(h.entities))
	for id, e := range h.entities {
		all = append(all, registered{serial: h.hubs[id], entity: e})
	}
	h.mu.RUnlock()

	h.logger.Info().Int("entities", len(all)).Msg("host online, re-announcing entities")
	for _, r := range all {
		if err := h.announce(r.serial, r.entity); err != nil {
			h.logger.Warn().Err(err).Msg("re-announcing entity")
			continue
		}
		if err := h.PublishState(ctx, r.entity); err != nil {
			h.logger.Warn().Err(err).Msg("re-publishing state")
		}
	}
}

// ParseCommand decodes a JSON schema command. Brightness is clamped to 0..255.
func ParseCommand(payload []byte) (CommandPayload, error) {
	var cmd CommandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("decoding command: %w", err)
	}
	cmd.State = strings.ToUpper(cmd.State)
	if cmd.State != "ON" && cmd.State != "OFF" {
		return cmd, fmt.Errorf("unknown state %q", cmd.State)
	}
	if cmd.Brightness != nil {
		b := min(max(*cmd.Brightness, 0), brightnessScale)
		cmd.Brightness = &b
	}
	return cmd, nil
}

// Apply runs a parsed command against an entity.
func Apply(ctx context.Context, e ports.Entity, cmd CommandPayload) error {
	if cmd.State == "OFF" {
		return e.TurnOff(ctx)
	}
	var brightness *uint8
	if cmd.Brightness != nil {
		b := uint8(*cmd.Brightness)
		brightness = &b
	}
	return e.TurnOn(ctx, brightness)
}

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/domain/variant"
	"myhome-bridge/internal/ports"
)

// Bridge exposes the lights of one configured hub to the host platform. It
// owns the hub session and hands it to nothing else.
type Bridge struct {
	entry   *model.HubEntry
	session *HubSession
	host    ports.EntityHost
	factory *variant.Factory
	logger  zerolog.Logger
	metrics Metrics

	mu       sync.RWMutex
	serial   string
	entities []*LightEntity
	byID     map[string]*LightEntity
}

func NewBridge(entry *model.HubEntry, session *HubSession, host ports.EntityHost, logger zerolog.Logger) *Bridge {
	return &Bridge{
		entry:   entry,
		session: session,
		host:    host,
		factory: variant.NewFactory(),
		logger:  logger.With().Str("component", "bridge").Str("hub", entry.Serial).Logger(),
		metrics: noopMetrics{},
		byID:    make(map[string]*LightEntity),
	}
}

func (b *Bridge) SetMetrics(m Metrics) {
	b.metrics = m
	b.session.SetMetrics(m)
}

// Start authenticates against the hub and registers one entity per light.
// It returns false when the hub rejects the stored credentials.
func (b *Bridge) Start(ctx context.Context) (bool, error) {
	ok, err := b.session.Authenticate(ctx, b.entry.Username, b.entry.Password)
	if err != nil {
		return false, err
	}
	if !ok {
		b.logger.Warn().Msg("hub rejected stored credentials")
		return false, nil
	}

	serial, ok := b.session.ProbeIdentity(ctx)
	if !ok {
		serial = b.entry.Serial
	}
	b.mu.Lock()
	b.serial = serial
	b.mu.Unlock()

	if err := b.loadEntities(ctx); err != nil {
		return false, err
	}
	entities := b.Entities()
	if len(entities) > 0 {
		if err := b.host.Register(ctx, serial, entities); err != nil {
			return false, fmt.Errorf("registering entities: %w", err)
		}
	}
	b.logger.Info().Int("entities", len(entities)).Msg("bridge started")
	return true, nil
}

func (b *Bridge) loadEntities(ctx context.Context) error {
	lights, err := b.session.Lights(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	entities := make([]*LightEntity, 0, len(lights))
	byID := make(map[string]*LightEntity, len(lights))
	for _, d := range lights {
		v, err := b.factory.New(d, b.session.client)
		if err != nil {
			b.logger.Warn().Err(err).Int("device", d.ID).Msg("skipping device")
			continue
		}
		e := NewLightEntity(b.serial, v)
		e.SetMetrics(b.metrics)
		if prev, ok := b.byID[e.UniqueID()]; ok {
			e.adopt(prev)
		}
		entities = append(entities, e)
		byID[e.UniqueID()] = e
	}
	b.entities = entities
	b.byID = byID
	return nil
}

// RefreshInventory refetches the hub inventory and re-registers the entities.
// Entities that disappeared from the hub are unregistered.
func (b *Bridge) RefreshInventory(ctx context.Context) error {
	old := b.Entities()
	if _, err := b.session.RefreshInventory(ctx); err != nil {
		return err
	}
	if err := b.loadEntities(ctx); err != nil {
		return err
	}

	b.mu.RLock()
	var gone []ports.Entity
	for _, e := range old {
		if _, ok := b.byID[e.UniqueID()]; !ok {
			gone = append(gone, e)
		}
	}
	serial := b.serial
	b.mu.RUnlock()

	if len(gone) > 0 {
		if err := b.host.Unregister(ctx, gone); err != nil {
			return fmt.Errorf("unregistering entities: %w", err)
		}
	}
	return b.host.Register(ctx, serial, b.Entities())
}

func (b *Bridge) Entities() []ports.Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entities := make([]ports.Entity, 0, len(b.entities))
	for _, e := range b.entities {
		entities = append(entities, e)
	}
	return entities
}

func (b *Bridge) Entity(uniqueID string) (ports.Entity, error) {
	b.mu.RLock()
	e, ok := b.byID[uniqueID]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrEntityNotFound, uniqueID)
	}
	return e, nil
}

func (b *Bridge) Serial() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.serial
}

// handOver closes a bridge replaced by next. Entities next still exposes
// share their unique ids and stay registered; the others are unregistered.
func (b *Bridge) handOver(ctx context.Context, next *Bridge) error {
	var gone []ports.Entity
	for _, e := range b.Entities() {
		if _, err := next.Entity(e.UniqueID()); err != nil {
			gone = append(gone, e)
		}
	}
	if len(gone) > 0 {
		if err := b.host.Unregister(ctx, gone); err != nil {
			b.logger.Warn().Err(err).Msg("unregistering entities")
		}
	}
	return b.session.Close()
}

// Stop unregisters the entities and closes the hub connection.
func (b *Bridge) Stop(ctx context.Context) error {
	if entities := b.Entities(); len(entities) > 0 {
		if err := b.host.Unregister(ctx, entities); err != nil {
			b.logger.Warn().Err(err).Msg("unregistering entities")
		}
	}
	return b.session.Close()
}

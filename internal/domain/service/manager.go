package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

// Manager holds one Bridge per configured hub entry.
type Manager struct {
	newClient ports.HubClientFactory
	host      ports.EntityHost
	logger    zerolog.Logger
	metrics   Metrics

	mu      sync.RWMutex
	bridges map[string]*Bridge // by entry serial
}

func NewManager(newClient ports.HubClientFactory, host ports.EntityHost, logger zerolog.Logger) *Manager {
	return &Manager{
		newClient: newClient,
		host:      host,
		logger:    logger,
		metrics:   noopMetrics{},
		bridges:   make(map[string]*Bridge),
	}
}

func (m *Manager) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// StartEntry connects to the hub of entry and registers its lights. It
// returns false when the hub rejects the entry's credentials.
func (m *Manager) StartEntry(ctx context.Context, entry *model.HubEntry) (bool, error) {
	session := NewHubSession(entry.Host, m.newClient(entry.Host), m.logger)
	b := NewBridge(entry, session, m.host, m.logger)
	b.SetMetrics(m.metrics)

	ok, err := b.Start(ctx)
	if err != nil || !ok {
		if cerr := session.Close(); cerr != nil {
			m.logger.Debug().Err(cerr).Msg("closing hub session")
		}
		return ok, err
	}

	m.mu.Lock()
	prev := m.bridges[entry.Serial]
	m.bridges[entry.Serial] = b
	m.mu.Unlock()
	if prev != nil {
		if err := prev.handOver(ctx, b); err != nil {
			m.logger.Warn().Err(err).Str("hub", entry.Serial).Msg("closing replaced bridge")
		}
	}
	return true, nil
}

// StopEntry tears down the bridge of a hub entry.
func (m *Manager) StopEntry(ctx context.Context, serial string) error {
	m.mu.Lock()
	b, ok := m.bridges[serial]
	delete(m.bridges, serial)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return b.Stop(ctx)
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	bridges := m.bridges
	m.bridges = make(map[string]*Bridge)
	m.mu.Unlock()

	var errs []error
	for serial, b := range bridges {
		if err := b.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", serial, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) snapshot() []*Bridge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bridges := make([]*Bridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		bridges = append(bridges, b)
	}
	return bridges
}

func (m *Manager) Entities() []ports.Entity {
	var entities []ports.Entity
	for _, b := range m.snapshot() {
		entities = append(entities, b.Entities()...)
	}
	return entities
}

func (m *Manager) Entity(uniqueID string) (ports.Entity, error) {
	for _, b := range m.snapshot() {
		if e, err := b.Entity(uniqueID); err == nil {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ports.ErrEntityNotFound, uniqueID)
}

// RefreshInventory refetches the inventory of every hub.
func (m *Manager) RefreshInventory(ctx context.Context) error {
	var errs []error
	for _, b := range m.snapshot() {
		if err := b.RefreshInventory(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ ports.BridgePort = (*Manager)(nil)

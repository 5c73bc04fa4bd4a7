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

// HubSession owns the client of one hub and a lazily fetched snapshot of its
// inventory. The snapshot is shared by all callers; treat it as read-only.
type HubSession struct {
	host    string
	client  ports.HubClient
	logger  zerolog.Logger
	metrics Metrics

	mu        sync.RWMutex
	inventory []model.Device
	loaded    bool
}

func NewHubSession(host string, client ports.HubClient, logger zerolog.Logger) *HubSession {
	return &HubSession{
		host:    host,
		client:  client,
		logger:  logger.With().Str("component", "hub").Str("host", host).Logger(),
		metrics: noopMetrics{},
	}
}

func (h *HubSession) SetMetrics(m Metrics) {
	h.metrics = m
}

func (h *HubSession) Host() string {
	return h.host
}

// Inventory returns the cached inventory, fetching it on first use. Callers
// racing on an empty cache wait for a single fetch and share its result.
func (h *HubSession) Inventory(ctx context.Context) ([]model.Device, error) {
	h.mu.RLock()
	if h.loaded {
		inv := h.inventory
		h.mu.RUnlock()
		return inv, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return h.inventory, nil
	}

	devices, err := h.client.Objects(ctx)
	h.metrics.InventoryFetched(h.host, len(devices), err)
	if err != nil {
		return nil, fmt.Errorf("fetching inventory from %s: %w", h.host, err)
	}
	h.inventory = devices
	h.loaded = true
	h.logger.Debug().Int("devices", len(devices)).Msg("inventory fetched")
	return devices, nil
}

// InvalidateInventory drops the snapshot; the next Inventory call refetches.
func (h *HubSession) InvalidateInventory() {
	h.mu.Lock()
	h.inventory = nil
	h.loaded = false
	h.mu.Unlock()
}

func (h *HubSession) RefreshInventory(ctx context.Context) ([]model.Device, error) {
	h.InvalidateInventory()
	return h.Inventory(ctx)
}

// Authenticate logs in to the hub. Rejected credentials and denied remote
// access report false without an error; anything else is returned.
func (h *HubSession) Authenticate(ctx context.Context, username, password string) (bool, error) {
	err := h.client.Login(ctx, username, password)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ports.ErrLoginDenied) || errors.Is(err, ports.ErrRemoteAccessDenied) {
		h.logger.Debug().Str("username", username).Err(err).Msg("login refused")
		return false, nil
	}
	return false, fmt.Errorf("authenticating with %s: %w", h.host, err)
}

// ProbeIdentity returns the hub serial, or false when the hub cannot be reached.
func (h *HubSession) ProbeIdentity(ctx context.Context) (string, bool) {
	serial, err := h.client.ServerSerial(ctx)
	if err != nil {
		h.logger.Debug().Err(err).Msg("ignored client error while retrieving server serial")
		return "", false
	}
	return serial, true
}

// Lights returns the light and dimmer devices of the inventory.
func (h *HubSession) Lights(ctx context.Context) ([]model.Device, error) {
	inv, err := h.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	lights := make([]model.Device, 0, len(inv))
	for _, d := range inv {
		if d.Kind.IsLight() {
			lights = append(lights, d)
		}
	}
	return lights, nil
}

func (h *HubSession) Close() error {
	return h.client.Close()
}

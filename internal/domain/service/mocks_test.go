package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

type MockHubClient struct {
	mock.Mock
}

func (m *MockHubClient) Login(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *MockHubClient) ServerSerial(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockHubClient) Objects(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]model.Device)
	return devices, args.Error(1)
}

func (m *MockHubClient) ObjectValue(ctx context.Context, id int) (model.DeviceValue, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.DeviceValue), args.Error(1)
}

func (m *MockHubClient) SetPower(ctx context.Context, id int, on bool) error {
	return m.Called(ctx, id, on).Error(0)
}

func (m *MockHubClient) SetDimmer(ctx context.Context, id int, level int) error {
	return m.Called(ctx, id, level).Error(0)
}

func (m *MockHubClient) Close() error {
	return m.Called().Error(0)
}

// slowInventoryClient blocks Objects until release is closed and counts fetches.
type slowInventoryClient struct {
	MockHubClient
	release chan struct{}
	fetches atomic.Int32
	devices []model.Device
}

func (c *slowInventoryClient) Objects(ctx context.Context) ([]model.Device, error) {
	c.fetches.Add(1)
	<-c.release
	return c.devices, nil
}

type MockEntityHost struct {
	mock.Mock
}

func (m *MockEntityHost) Register(ctx context.Context, hubSerial string, entities []ports.Entity) error {
	return m.Called(ctx, hubSerial, entities).Error(0)
}

func (m *MockEntityHost) Unregister(ctx context.Context, entities []ports.Entity) error {
	return m.Called(ctx, entities).Error(0)
}

func (m *MockEntityHost) PublishState(ctx context.Context, e ports.Entity) error {
	return m.Called(ctx, e).Error(0)
}

// memoryEntries is an in-memory ports.EntryRepository.
type memoryEntries struct {
	mu      sync.Mutex
	entries map[string]*model.HubEntry
}

func newMemoryEntries(entries ...*model.HubEntry) *memoryEntries {
	m := &memoryEntries{entries: make(map[string]*model.HubEntry)}
	for _, e := range entries {
		m.entries[e.Serial] = e
	}
	return m
}

func (m *memoryEntries) List(ctx context.Context) ([]*model.HubEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.HubEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryEntries) Get(ctx context.Context, serial string) (*model.HubEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[serial]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return e, nil
}

func (m *memoryEntries) Save(ctx context.Context, entry *model.HubEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Serial] = entry
	return nil
}

func (m *memoryEntries) Delete(ctx context.Context, serial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, serial)
	return nil
}

// recordingHost tracks which unique ids are currently registered.
type recordingHost struct {
	mu         sync.Mutex
	registered map[string]string
}

func newRecordingHost() *recordingHost {
	return &recordingHost{registered: make(map[string]string)}
}

func (h *recordingHost) Register(_ context.Context, hubSerial string, entities []ports.Entity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entities {
		h.registered[e.UniqueID()] = hubSerial
	}
	return nil
}

func (h *recordingHost) Unregister(_ context.Context, entities []ports.Entity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entities {
		delete(h.registered, e.UniqueID())
	}
	return nil
}

func (h *recordingHost) PublishState(context.Context, ports.Entity) error {
	return nil
}

func (h *recordingHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.registered)
}

package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

var testEntry = &model.HubEntry{
	Serial:   "SRV001",
	Title:    model.EntryTitle("SRV001"),
	Host:     "10.0.0.2",
	Username: "admin",
	Password: "secret",
}

func newTestBridge(client *MockHubClient, host *MockEntityHost) *Bridge {
	session := NewHubSession(testEntry.Host, client, zerolog.Nop())
	return NewBridge(testEntry, session, host, zerolog.Nop())
}

func TestBridge_Start(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, "SRV001", mock.MatchedBy(func(es []ports.Entity) bool {
		return len(es) == 2
	})).Return(nil).Once()

	b := newTestBridge(client, host)
	ok, err := b.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SRV001", b.Serial())

	entities := b.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, "SRV001_1", entities[0].UniqueID())
	assert.False(t, entities[0].SupportsBrightness())
	assert.True(t, entities[1].SupportsBrightness())

	e, err := b.Entity("SRV001_2")
	require.NoError(t, err)
	assert.Equal(t, "Living", e.Name())

	_, err = b.Entity("SRV001_3")
	assert.ErrorIs(t, err, ports.ErrEntityNotFound)
	host.AssertExpectations(t)
}

func TestBridge_StartRejectedCredentials(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(ports.ErrLoginDenied)

	host := new(MockEntityHost)
	b := newTestBridge(client, host)
	ok, err := b.Start(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	host.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "Objects", mock.Anything)
}

func TestBridge_StartFallsBackToEntrySerial(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("", ports.ErrTransport)
	client.On("Objects", mock.Anything).Return(testDevices[:1], nil)

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, "SRV001", mock.Anything).Return(nil)

	b := newTestBridge(client, host)
	ok, err := b.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SRV001_1", b.Entities()[0].UniqueID())
}

func TestBridge_RefreshInventoryUnregistersRemoved(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil).Once()
	client.On("Objects", mock.Anything).Return(testDevices[1:], nil).Once()

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, "SRV001", mock.Anything).Return(nil)
	host.On("Unregister", mock.Anything, mock.MatchedBy(func(es []ports.Entity) bool {
		return len(es) == 1 && es[0].UniqueID() == "SRV001_1"
	})).Return(nil).Once()

	b := newTestBridge(client, host)
	_, err := b.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.RefreshInventory(context.Background()))
	require.Len(t, b.Entities(), 1)
	assert.Equal(t, "SRV001_2", b.Entities()[0].UniqueID())
	host.AssertExpectations(t)
}

func TestBridge_Stop(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)
	client.On("Close").Return(nil).Once()

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	host.On("Unregister", mock.Anything, mock.Anything).Return(nil).Once()

	b := newTestBridge(client, host)
	_, err := b.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Stop(context.Background()))

	client.AssertExpectations(t)
	host.AssertExpectations(t)
}

func TestManager(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)
	client.On("Close").Return(nil)

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	host.On("Unregister", mock.Anything, mock.Anything).Return(nil)

	var hosts []string
	m := NewManager(func(h string) ports.HubClient {
		hosts = append(hosts, h)
		return client
	}, host, zerolog.Nop())

	ok, err := m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"10.0.0.2"}, hosts)
	assert.Len(t, m.Entities(), 2)

	e, err := m.Entity("SRV001_1")
	require.NoError(t, err)
	assert.Equal(t, "Hall", e.Name())

	require.NoError(t, m.StopEntry(context.Background(), "SRV001"))
	assert.Empty(t, m.Entities())
	_, err = m.Entity("SRV001_1")
	assert.ErrorIs(t, err, ports.ErrEntityNotFound)
}

func TestManager_StartEntryRejected(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(ports.ErrRemoteAccessDenied)
	client.On("Close").Return(nil).Once()

	m := NewManager(func(string) ports.HubClient { return client }, new(MockEntityHost), zerolog.Nop())
	ok, err := m.StartEntry(context.Background(), testEntry)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, m.Entities())
	client.AssertExpectations(t)
}

func TestEntryService_Remove(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)
	client.On("Close").Return(nil)

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	host.On("Unregister", mock.Anything, mock.Anything).Return(nil)

	repo := newMemoryEntries(testEntry)
	m := NewManager(func(string) ports.HubClient { return client }, host, zerolog.Nop())
	_, err := m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)

	s := NewEntryService(repo, m)
	require.NoError(t, s.Remove(context.Background(), "SRV001"))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, m.Entities())
}

func TestBridge_RefreshInventoryKeepsKnownState(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{Dimmer: 60}, nil).Once()

	host := new(MockEntityHost)
	host.On("Register", mock.Anything, "SRV001", mock.Anything).Return(nil)

	b := newTestBridge(client, host)
	_, err := b.Start(context.Background())
	require.NoError(t, err)

	e, err := b.Entity("SRV001_2")
	require.NoError(t, err)
	require.NoError(t, e.Refresh(context.Background()))

	require.NoError(t, b.RefreshInventory(context.Background()))

	reloaded, err := b.Entity("SRV001_2")
	require.NoError(t, err)
	assert.NotSame(t, e, reloaded)
	st := reloaded.State()
	assert.True(t, st.Known)
	assert.True(t, st.On)

	fresh, err := b.Entity("SRV001_1")
	require.NoError(t, err)
	assert.False(t, fresh.State().Known)
}

func TestManager_RestartKeepsEntitiesRegistered(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil)
	client.On("Close").Return(nil)

	host := newRecordingHost()
	m := NewManager(func(string) ports.HubClient { return client }, host, zerolog.Nop())

	_, err := m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)
	ok, err := m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 2, host.count())
	assert.Len(t, m.Entities(), 2)
	client.AssertNumberOfCalls(t, "Close", 1)
}

func TestManager_RestartUnregistersVanishedDevices(t *testing.T) {
	client := new(MockHubClient)
	client.On("Login", mock.Anything, "admin", "secret").Return(nil)
	client.On("ServerSerial", mock.Anything).Return("SRV001", nil)
	client.On("Objects", mock.Anything).Return(testDevices, nil).Once()
	client.On("Objects", mock.Anything).Return(testDevices[1:], nil).Once()
	client.On("Close").Return(nil)

	host := newRecordingHost()
	m := NewManager(func(string) ports.HubClient { return client }, host, zerolog.Nop())

	_, err := m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)
	_, err = m.StartEntry(context.Background(), testEntry)
	require.NoError(t, err)

	assert.Equal(t, 1, host.count())
	_, err = m.Entity("SRV001_1")
	assert.ErrorIs(t, err, ports.ErrEntityNotFound)
}

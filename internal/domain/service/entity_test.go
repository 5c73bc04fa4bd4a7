package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/domain/variant"
)

func newTestEntity(t *testing.T, d model.Device, client *MockHubClient) *LightEntity {
	t.Helper()
	v, err := variant.NewFactory().New(d, client)
	require.NoError(t, err)
	return NewLightEntity("SRV001", v)
}

func TestLightEntity_Identity(t *testing.T) {
	e := newTestEntity(t, model.Device{
		ID:   42,
		Name: "Kitchen spots",
		Kind: model.DeviceKindDimmer,
		Zone: &model.Place{ID: 1, Name: "Ground floor"},
		Room: &model.Place{ID: 2, Name: "Ground floor Kitchen"},
		Info: map[string]string{"protocol_name": "knx", "other": "x"},
	}, new(MockHubClient))

	assert.Equal(t, "SRV001_42", e.UniqueID())
	assert.Equal(t, "42", e.DeviceID())
	assert.Equal(t, "Kitchen spots", e.Name())
	assert.True(t, e.SupportsBrightness())

	area, ok := e.PlacementHint()
	assert.True(t, ok)
	assert.Equal(t, "Ground floor / Kitchen", area)
	assert.Equal(t, map[string]string{"protocol_name": "knx"}, e.ExtraAttributes())
}

func TestLightEntity_NoPlacementWithoutZone(t *testing.T) {
	e := newTestEntity(t, model.Device{ID: 1, Kind: model.DeviceKindLight,
		Room: &model.Place{Name: "Kitchen"}}, new(MockHubClient))
	_, ok := e.PlacementHint()
	assert.False(t, ok)
}

func TestLightEntity_UnknownStateBeforeRefresh(t *testing.T) {
	dimmer := newTestEntity(t, model.Device{ID: 2, Kind: model.DeviceKindDimmer}, new(MockHubClient))
	light := newTestEntity(t, model.Device{ID: 1, Kind: model.DeviceKindLight}, new(MockHubClient))

	assert.False(t, dimmer.IsOn())
	assert.False(t, light.IsOn())

	_, ok := dimmer.Brightness()
	assert.False(t, ok)

	b, ok := light.Brightness()
	assert.True(t, ok)
	assert.Equal(t, 0, b)

	st := dimmer.State()
	assert.False(t, st.Known)
	assert.Nil(t, st.Brightness)
}

func TestLightEntity_DimmerRefresh(t *testing.T) {
	client := new(MockHubClient)
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{Dimmer: 50}, nil).Once()
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{Dimmer: 0}, nil).Once()

	e := newTestEntity(t, model.Device{ID: 2, Kind: model.DeviceKindDimmer}, client)
	require.NoError(t, e.Refresh(context.Background()))
	assert.True(t, e.IsOn())
	b, ok := e.Brightness()
	assert.True(t, ok)
	assert.Equal(t, 127, b)

	require.NoError(t, e.Refresh(context.Background()))
	assert.False(t, e.IsOn())
	b, _ = e.Brightness()
	assert.Equal(t, 0, b)
}

func TestLightEntity_LightRefresh(t *testing.T) {
	client := new(MockHubClient)
	client.On("ObjectValue", mock.Anything, 1).Return(model.DeviceValue{Power: true, Dimmer: 80}, nil)

	e := newTestEntity(t, model.Device{ID: 1, Kind: model.DeviceKindLight}, client)
	require.NoError(t, e.Refresh(context.Background()))
	assert.True(t, e.IsOn())

	// Never a nonzero brightness for a plain light
	b, ok := e.Brightness()
	assert.True(t, ok)
	assert.Equal(t, 0, b)
}

func TestLightEntity_RefreshFailureKeepsLastValue(t *testing.T) {
	client := new(MockHubClient)
	boom := errors.New("boom")
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{Dimmer: 100}, nil).Once()
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{}, boom).Once()

	e := newTestEntity(t, model.Device{ID: 2, Kind: model.DeviceKindDimmer}, client)
	require.NoError(t, e.Refresh(context.Background()))
	assert.ErrorIs(t, e.Refresh(context.Background()), boom)

	assert.True(t, e.IsOn())
	b, _ := e.Brightness()
	assert.Equal(t, 255, b)
}

func TestLightEntity_TurnOnDimmerWithBrightness(t *testing.T) {
	client := new(MockHubClient)
	var calls []string
	client.On("SetDimmer", mock.Anything, 2, 78).Return(nil).Run(func(mock.Arguments) {
		calls = append(calls, "dim")
	})
	client.On("SetPower", mock.Anything, 2, true).Return(nil).Run(func(mock.Arguments) {
		calls = append(calls, "on")
	})

	e := newTestEntity(t, model.Device{ID: 2, Kind: model.DeviceKindDimmer}, client)
	bri := uint8(200)
	require.NoError(t, e.TurnOn(context.Background(), &bri))
	assert.Equal(t, []string{"dim", "on"}, calls)
}

func TestLightEntity_TurnOnDimmerWithoutBrightness(t *testing.T) {
	client := new(MockHubClient)
	client.On("SetPower", mock.Anything, 2, true).Return(nil)

	e := newTestEntity(t, model.Device{ID: 2, Kind: model.DeviceKindDimmer}, client)
	require.NoError(t, e.TurnOn(context.Background(), nil))
	client.AssertNotCalled(t, "SetDimmer", mock.Anything, mock.Anything, mock.Anything)
}

func TestLightEntity_TurnOnLightIgnoresBrightness(t *testing.T) {
	client := new(MockHubClient)
	client.On("SetPower", mock.Anything, 1, true).Return(nil).Once()

	e := newTestEntity(t, model.Device{ID: 1, Kind: model.DeviceKindLight}, client)
	bri := uint8(200)
	require.NoError(t, e.TurnOn(context.Background(), &bri))
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "SetDimmer", mock.Anything, mock.Anything, mock.Anything)
}

func TestLightEntity_TurnOff(t *testing.T) {
	client := new(MockHubClient)
	client.On("SetPower", mock.Anything, 1, false).Return(nil).Once()

	e := newTestEntity(t, model.Device{ID: 1, Kind: model.DeviceKindLight}, client)
	require.NoError(t, e.TurnOff(context.Background()))
	client.AssertExpectations(t)
}

func TestLightEntity_State(t *testing.T) {
	client := new(MockHubClient)
	client.On("ObjectValue", mock.Anything, 2).Return(model.DeviceValue{Dimmer: 100}, nil)

	e := newTestEntity(t, model.Device{ID: 2, Name: "Living", Kind: model.DeviceKindDimmer}, client)
	require.NoError(t, e.Refresh(context.Background()))

	st := e.State()
	assert.Equal(t, "SRV001_2", st.UniqueID)
	assert.Equal(t, "Living", st.Name)
	assert.True(t, st.Known)
	assert.True(t, st.On)
	assert.True(t, st.Dimmable)
	require.NotNil(t, st.Brightness)
	assert.Equal(t, 255, *st.Brightness)
}

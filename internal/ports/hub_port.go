package ports

import (
	"context"
	"myhome-bridge/internal/domain/model"
)

// HubClient is the network client of a MyHOMEServer hub.
type HubClient interface {
	// Login authenticates the client. Rejected credentials return
	// ErrLoginDenied, a hub refusing remote access returns ErrRemoteAccessDenied.
	Login(ctx context.Context, username, password string) error
	ServerSerial(ctx context.Context) (string, error)
	Objects(ctx context.Context) ([]model.Device, error)
	ObjectValue(ctx context.Context, id int) (model.DeviceValue, error)
	SetPower(ctx context.Context, id int, on bool) error
	SetDimmer(ctx context.Context, id int, level int) error
	Close() error
}

// HubClientFactory opens a client for a hub host.
type HubClientFactory func(host string) HubClient

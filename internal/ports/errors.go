package ports

import "errors"

var (
	// ErrLoginDenied is returned by HubClient.Login for rejected credentials.
	ErrLoginDenied = errors.New("myhome: login denied")

	// ErrRemoteAccessDenied is returned by HubClient.Login when the hub refuses the account remotely.
	ErrRemoteAccessDenied = errors.New("myhome: remote access denied")

	// ErrTransport wraps connection, timeout and protocol failures talking to the hub.
	ErrTransport = errors.New("myhome: transport error")

	// ErrEntityNotFound is returned when no entity has the requested unique id.
	ErrEntityNotFound = errors.New("myhome: entity not found")

	// ErrNotFound is returned by repositories for unknown keys.
	ErrNotFound = errors.New("myhome: not found")
)

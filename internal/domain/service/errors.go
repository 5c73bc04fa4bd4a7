package service

import "errors"

var (
	// ErrCannotConnect is returned when the hub does not answer the serial probe.
	ErrCannotConnect = errors.New("myhome: cannot connect")

	// ErrInvalidAuth is returned when the hub rejects the credentials.
	ErrInvalidAuth = errors.New("myhome: invalid authentication")

	// ErrAlreadyConfigured is returned when a hub serial already has an entry.
	ErrAlreadyConfigured = errors.New("myhome: already configured")
)

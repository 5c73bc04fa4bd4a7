package model

// EntityState is the host-facing state of a light entity.
type EntityState struct {
	UniqueID   string            `json:"unique_id"`
	Name       string            `json:"name"`
	Known      bool              `json:"known"`
	On         bool              `json:"on"`
	Brightness *int              `json:"brightness,omitempty"`
	Dimmable   bool              `json:"dimmable"`
	Area       string            `json:"area,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SetupInput is what a user submits to configure a hub.
type SetupInput struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Setup form error codes.
const (
	SetupErrorCannotConnect     = "cannot_connect"
	SetupErrorInvalidAuth       = "invalid_auth"
	SetupErrorUnknown           = "unknown"
	SetupAbortAlreadyConfigured = "already_configured"
)

// SetupResult is the outcome of a setup step. Exactly one of Entry, Error or
// Abort is set.
type SetupResult struct {
	Entry *HubEntry `json:"entry,omitempty"`
	Error string    `json:"error,omitempty"`
	Abort string    `json:"abort,omitempty"`
}

package mqtt

// DeviceModel is the device block of a discovery payload.
type DeviceModel struct {
	Identifiers   []string `json:"identifiers,omitempty"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	Model         string   `json:"model,omitempty"`
	Name          string   `json:"name,omitempty"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
	ViaDevice     string   `json:"via_device,omitempty"`
}

type AvailabilityModel struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// LightConfig is a discovery payload for a light using the JSON schema.
type LightConfig struct {
	Schema              string              `json:"schema"`
	Name                *string             `json:"name"`
	UniqueID            string              `json:"unique_id"`
	ObjectID            string              `json:"object_id,omitempty"`
	CommandTopic        string              `json:"command_topic"`
	StateTopic          string              `json:"state_topic"`
	JSONAttributesTopic string              `json:"json_attributes_topic,omitempty"`
	Availability        []AvailabilityModel `json:"availability,omitempty"`
	Brightness          bool                `json:"brightness"`
	BrightnessScale     int                 `json:"brightness_scale,omitempty"`
	SupportedColorModes []string            `json:"supported_color_modes"`
	Device              *DeviceModel        `json:"device,omitempty"`
}

// StatePayload is published on an entity's state topic.
type StatePayload struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

// CommandPayload is received on an entity's command topic.
type CommandPayload struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

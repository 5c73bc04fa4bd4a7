package translator

import (
	"strings"

	"myhome-bridge/internal/domain/model"
)

// ExtraAttributeKeys are the metadata keys forwarded to the host as entity attributes.
var ExtraAttributeKeys = []string{
	"protocol_name",
	"protocol_config",
	"id_room",
	"id_zone",
}

// ExtraAttributes picks the forwarded keys out of a device's metadata bag.
func ExtraAttributes(info map[string]string) map[string]string {
	attrs := make(map[string]string)
	for _, k := range ExtraAttributeKeys {
		if v, ok := info[k]; ok {
			attrs[k] = v
		}
	}
	return attrs
}

// PlacementLabel builds the suggested area for a device, e.g. zone "Ground
// floor" and room "Ground floor Kitchen" give "Ground floor / Kitchen".
// It returns false unless both zone and room are known.
func PlacementLabel(zone, room *model.Place) (string, bool) {
	if zone == nil || room == nil {
		return "", false
	}
	roomName := strings.TrimSpace(strings.ReplaceAll(room.Name, zone.Name, ""))
	return zone.Name + " / " + roomName, true
}

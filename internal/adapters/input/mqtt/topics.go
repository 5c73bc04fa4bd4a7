package mqtt

import "strings"

// Topics builds the topic names of one bridge node.
type Topics struct {
	DiscoveryPrefix string
	NodeID          string
}

func (t Topics) Config(uniqueID string) string {
	return t.DiscoveryPrefix + "/light/" + t.NodeID + "/" + uniqueID + "/config"
}

func (t Topics) Command(uniqueID string) string {
	return t.NodeID + "/" + uniqueID + "/set"
}

func (t Topics) State(uniqueID string) string {
	return t.NodeID + "/" + uniqueID + "/state"
}

func (t Topics) Attributes(uniqueID string) string {
	return t.NodeID + "/" + uniqueID + "/attributes"
}

func (t Topics) Availability() string {
	return t.NodeID + "/bridge/availability"
}

// CommandWildcard matches the command topic of every entity.
func (t Topics) CommandWildcard() string {
	return t.NodeID + "/+/set"
}

// HostStatus is where the host announces it came online.
func (t Topics) HostStatus() string {
	return t.DiscoveryPrefix + "/status"
}

// UniqueIDFromCommand extracts the entity unique id from a command topic.
func (t Topics) UniqueIDFromCommand(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.NodeID+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

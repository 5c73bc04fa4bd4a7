package model

// HubEntry is a configured hub as stored by the config-entry repository.
// The hub serial is the entry's unique id.
type HubEntry struct {
	Serial   string `json:"serial"`
	Title    string `json:"title"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// EntryTitle is the display title of an entry for the given serial.
func EntryTitle(serial string) string {
	return "MyHomeSERVER (" + serial + ")"
}

// Entries is the persisted set of hub entries.
type Entries struct {
	Hubs []*HubEntry `json:"hubs"` // Ordered slice
}

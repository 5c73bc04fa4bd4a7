package service

// Metrics receives operational events from the hub session, entities and poller.
type Metrics interface {
	InventoryFetched(host string, devices int, err error)
	EntityRefreshed(uniqueID string, err error)
	CommandSent(command string, err error)
}

type noopMetrics struct{}

func (noopMetrics) InventoryFetched(string, int, error) {}
func (noopMetrics) EntityRefreshed(string, error)       {}
func (noopMetrics) CommandSent(string, error)           {}

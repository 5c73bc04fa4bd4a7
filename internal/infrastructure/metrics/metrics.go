// Package metrics exports bridge activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "myhome"

// Recorder implements service.Metrics on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	inventoryFetches *prometheus.CounterVec
	inventoryDevices *prometheus.GaugeVec
	refreshes        *prometheus.CounterVec
	commands         *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		inventoryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_fetches_total",
			Help:      "Inventory fetches from a hub, by result.",
		}, []string{"host", "result"}),
		inventoryDevices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_devices",
			Help:      "Devices in the last fetched inventory of a hub.",
		}, []string{"host"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "refreshes_total",
			Help:      "Entity state refreshes, by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "commands_total",
			Help:      "Commands sent to hub devices, by command and result.",
		}, []string{"command", "result"}),
	}

	r.reg.MustRegister(collectors.NewBuildInfoCollector())
	r.reg.MustRegister(collectors.NewGoCollector())
	r.reg.MustRegister(r.inventoryFetches, r.inventoryDevices, r.refreshes, r.commands)
	return r
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) InventoryFetched(host string, devices int, err error) {
	r.inventoryFetches.WithLabelValues(host, result(err)).Inc()
	if err == nil {
		r.inventoryDevices.WithLabelValues(host).Set(float64(devices))
	}
}

// EntityRefreshed is not labelled by entity to keep cardinality bounded.
func (r *Recorder) EntityRefreshed(_ string, err error) {
	r.refreshes.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) CommandSent(command string, err error) {
	r.commands.WithLabelValues(command, result(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

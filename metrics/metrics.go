// Package metrics exports cover states and event counts to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"coverctl/cover"
)

var _ prometheus.Collector = &Collector{}

// Collector implements cover.Publisher and cover.Recorder, and exposes what it receives as
// Prometheus metrics.
type Collector struct {
	lock   sync.RWMutex
	states map[string]cover.State

	coverPosition  *prometheus.Desc
	coverOperation *prometheus.Desc
	coverEvents    *prometheus.CounterVec
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{
		states: make(map[string]cover.State),
		coverPosition: prometheus.NewDesc(
			prometheus.BuildFQName("coverctl", "cover", "position"),
			"Estimated position of the cover, 0 is closed and 1 is open",
			[]string{"cover"},
			nil,
		),
		coverOperation: prometheus.NewDesc(
			prometheus.BuildFQName("coverctl", "cover", "operation"),
			"Current operation of the cover. 1 for the active operation",
			[]string{"cover", "operation"},
			nil,
		),
		coverEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("coverctl", "cover", "events_total"),
			Help: "Number of notable events per cover and kind",
		}, []string{"cover", "kind"}),
	}
}

// Publish implements cover.Publisher.
func (c *Collector) Publish(s cover.State) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.states[s.Name] = s
}

// Record implements cover.Recorder.
func (c *Collector) Record(e cover.Event) {
	c.coverEvents.WithLabelValues(e.Cover, string(e.Kind)).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.coverPosition
	ch <- c.coverOperation
	c.coverEvents.Describe(ch)
}

var operations = []cover.Operation{cover.OperationIdle, cover.OperationOpening, cover.OperationClosing}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for name, s := range c.states {
		ch <- prometheus.MustNewConstMetric(c.coverPosition, prometheus.GaugeValue, s.Position, name)
		for _, op := range operations {
			value := 0.0
			if s.Operation == op {
				value = 1
			}
			ch <- prometheus.MustNewConstMetric(c.coverOperation, prometheus.GaugeValue, value, name, op.String())
		}
	}
	c.coverEvents.Collect(ch)
}

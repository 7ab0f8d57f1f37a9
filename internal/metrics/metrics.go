// Package metrics exposes prometheus counters for the command surface and
// the background sweeps.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	commands       *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	sweeps         *prometheus.CounterVec
	subscribers    *prometheus.CounterVec
	pruned         *prometheus.CounterVec
	expiredUsers   prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_commands_total",
			Help: "Interactive commands handled, by operation.",
		}, []string{"op"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_upstream_errors_total",
			Help: "Classified upstream failures, by kind.",
		}, []string{"kind"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_sweeps_total",
			Help: "Scheduler sweeps executed, by kind.",
		}, []string{"kind"}),
		subscribers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_sweep_subscribers_total",
			Help: "Subscribers processed during sweeps, by kind.",
		}, []string{"kind"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_subscriptions_pruned_total",
			Help: "Subscriptions removed by the scheduler, by reason.",
		}, []string{"reason"}),
		expiredUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assistant_expired_users_total",
			Help: "Users removed by the data-retention sweep.",
		}),
	}
	c.registry.MustRegister(c.commands, c.upstreamErrors, c.sweeps, c.subscribers, c.pruned, c.expiredUsers)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordCommand(op string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(op).Inc()
}

func (c *Collector) RecordUpstreamError(kind string) {
	if c == nil {
		return
	}
	c.upstreamErrors.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordSweep(kind string) {
	if c == nil {
		return
	}
	c.sweeps.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordSubscriber(kind string) {
	if c == nil {
		return
	}
	c.subscribers.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordPrune(reason string) {
	if c == nil {
		return
	}
	c.pruned.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordExpiredUser() {
	if c == nil {
		return
	}
	c.expiredUsers.Inc()
}

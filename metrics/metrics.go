package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SuccessLabel = "success"
	namespace    = "htlc"
)

// Collector holds the service metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	events     *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

var _ htlc.OpRecorder = (*Collector)(nil)

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Mutating escrow calls segmented by operation and result class.",
		}, []string{"op", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed escrow events segmented by kind.",
		}, []string{"kind"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests segmented by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	c.registry.MustRegister(
		c.operations,
		c.events,
		c.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// RecordOp counts a call under its error class, SuccessLabel when err is nil.
func (c *Collector) RecordOp(op string, err error) {
	label := SuccessLabel
	if err != nil {
		label = htlc.ErrorKind(err)
	}
	c.operations.WithLabelValues(op, label).Inc()
}

func (c *Collector) ObserveEvent(ev *htlc.Event) {
	c.events.WithLabelValues(string(ev.Kind)).Inc()
}

func (c *Collector) ObserveRequest(method, route, status string, elapsed time.Duration) {
	c.requests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// Run counts the events arriving on ch until ctx is done.
func (c *Collector) Run(ctx context.Context, ch <-chan *htlc.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-ch:
			c.ObserveEvent(ev)
		}
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

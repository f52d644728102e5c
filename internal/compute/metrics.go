// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "vix"
	metricsSubsystem = "compute"
)

const (
	resultSuccess     = "success"
	resultError       = "error"
	resultUnsupported = "unsupported"
)

// Collector is a prometheus.Collector for driver operations.
type Collector struct {
	operations *prometheus.CounterVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "operations_total",
				Help:      "The number of driver operations by outcome.",
			}, []string{"operation", "result"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
}

func (c *Collector) observe(operation string, err error) {
	result := resultSuccess
	if _, ok := IsUnsupported(err); ok {
		result = resultUnsupported
	} else if err != nil {
		result = resultError
	}
	c.operations.WithLabelValues(operation, result).Inc()
}

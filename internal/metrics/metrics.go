// Package metrics counts class resolutions and artifact downloads.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/git-pkgs/pluginverifier/fetch"
	"github.com/git-pkgs/pluginverifier/resolver"
)

var (
	_ resolver.Observer      = (*Metrics)(nil)
	_ fetch.DownloadObserver = (*Metrics)(nil)
)

// Metrics implements resolver.Observer and fetch.DownloadObserver.
type Metrics struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	downloads   *prometheus.CounterVec
}

// New registers the counters on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginverifier_class_resolutions_total",
				Help: "Number of class lookups by result.",
			},
			[]string{"result"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginverifier_downloads_total",
				Help: "Number of plugin downloads by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.resolutions, m.downloads)
	return m
}

func (m *Metrics) ObserveResolution(kind string) {
	m.resolutions.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDownload(outcome string) {
	m.downloads.WithLabelValues(outcome).Inc()
}

// Registry exposes the counters, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Package metric provides Prometheus metrics management for AdapterKit.
//
// # Overview
//
// The package wraps a private prometheus.Registry with a keyed registration
// API so components cannot collide on metric names, pre-registers the core
// SDK metrics (feature dispatch, subscription fan-out, adapter lifecycle),
// and adds the Go runtime collectors.
//
// # Usage
//
// Create one registry per host process and hand it to the components that
// want metrics:
//
//	reg := metric.NewMetricsRegistry()
//
//	calls := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "csv_rows_read_total",
//	    Help: "Rows read from the backing CSV file",
//	})
//	if err := reg.RegisterCounter("csv-adapter", "rows_read", calls); err != nil { ... }
//
// Core metrics are always available via CoreMetrics(); the wrapper layer and
// subscription managers record into them when given a registry.
//
// Hosts that want a scrape endpoint mount Handler():
//
//	mux.Handle("/metrics", reg.Handler())
//
// Exposing the endpoint (port, TLS, auth) is the hosting layer's concern;
// this package only supplies the handler.
package metric

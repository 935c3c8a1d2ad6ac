// Package metrics provides observability hooks for document parsing, bundle
// creation and the HTTP service.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics stay optional:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	parser := document.NewParser(document.WithRecorder(recorder))
//
// The HTTP service exposes the registry through HTTPHandler when metrics are
// enabled in the configuration.
package metrics

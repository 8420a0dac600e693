// Package metrics records build metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs a nil check:
//
//	svc := build.NewService(build.WithRecorder(metrics.NewPrometheusRecorder(nil)))
//
// A PrometheusRecorder keeps its own registry. A build that runs from the CLI
// exits right after it finishes, so its metrics are exported with
// WriteTextfile for node_exporter's textfile collector rather than scraped.
package metrics

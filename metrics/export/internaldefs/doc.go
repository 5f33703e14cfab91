// Package internaldefs holds the shared metric definitions used by the
// Prometheus and OpenTelemetry exporters. It is not part of the public API.
package internaldefs

// Package otel exports agentauth flow metrics through an OpenTelemetry
// meter using observable instruments.
package otel

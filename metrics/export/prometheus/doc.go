// Package prometheus exports agentauth flow metrics in Prometheus text
// exposition format, either rendered directly or served via an http.Handler.
package prometheus

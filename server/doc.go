// Package server exposes the voice analysis pipeline over HTTP.
//
// It serves the upload page at "/", the form target "/process", a JSON
// endpoint at "/api/v1/classify", a liveness probe at "/healthz" and
// Prometheus metrics at "/metrics".
package server

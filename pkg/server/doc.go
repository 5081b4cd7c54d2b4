// Package server runs live document sessions over WebSocket.
//
// Each connected client gets a Session holding its own bound copy of
// the page. Events flow in as binary frames, run through the document
// on the session's event loop, and the resulting patches flush back as
// one sequenced frame per event. The Manager caps concurrent sessions
// and evicts idle ones; Prometheus metrics and OpenTelemetry event
// spans hang off both.
package server

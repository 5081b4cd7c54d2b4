// Package protocol defines the binary wire format between a petal server
// and its thin clients.
//
// All traffic flows over a single WebSocket connection as frames. Each
// frame is a 4-byte header (type, flags, big-endian payload length)
// followed by a typed payload:
//
//   - Event frames (client to server) carry a DOM event: the binding ID
//     of the target element, the event name, and the current input value
//     for two-way bindings.
//   - Patches frames (server to client) carry an ordered list of DOM
//     operations produced by binding effects: set-text, set-attribute,
//     show/hide, insert/remove/replace of rendered HTML fragments.
//   - Control frames carry ping/pong keepalives.
//
// Payload primitives are varints (LEB128, ZigZag for signed values) and
// length-prefixed UTF-8 strings. Decoding enforces allocation limits so
// a malicious peer cannot OOM the server with forged length prefixes.
package protocol

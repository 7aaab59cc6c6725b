// Package server implements the HTTP and WebSocket gateway for livechat.
//
// The gateway owns sockets and nothing else: every connection, registration,
// chat line and disconnect is handed to the coordinator as an intent, and
// every coordinator event is written back as a JSON frame. Files are split by
// concern: configuration, origin policy, wire frames, per-connection pumps,
// handlers, routing and the HTTP server lifecycle.
package server

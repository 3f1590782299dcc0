// Package server implements the transport gateway for the disclone presence
// relay.
//
// The gateway owns everything connection-shaped: the gin HTTP layer that
// upgrades requests, the hub tracking live clients by connection id, and the
// per-client read/write pumps. Protocol semantics live in internal/relay; the
// gateway's job is to turn WebSocket frames into relay events and relay
// broadcasts back into WebSocket frames.
package server

// Package session implements the typed bidirectional message engine shared
// by both peers of a duplex protocol.
//
// Ownership boundary:
// - session lifecycle (unbound -> bound -> closing -> closed)
// - sequence allocation and request/response correlation
// - the pending-request table and the handler registry
// - the single receive loop and the serialized write path
//
// Framing, body serialization and typed message binding are owned by
// protocol/frame, protocol/codec and protocol/schema respectively; this
// package only composes them.
package session

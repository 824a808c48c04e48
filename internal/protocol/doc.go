// Package protocol defines the message envelope exchanged between two bound
// session peers.
//
// Ownership boundary:
// - the three message kinds (request, response, event)
// - correlation metadata (seq, request_seq, success, message)
// - envelope <-> dynamic value conversion
//
// Byte-level concerns live elsewhere: framing in protocol/frame, body
// serialization in protocol/codec, typed message binding in protocol/schema.
package protocol

// Package message defines the ISO 15118-20 messages exchanged between the
// charging station and the vehicle, and the binary codec that carries them
// inside V2GTP frames.
//
// # Variant
//
// Every message implements Message and reports its Type. The set of types is
// closed: Decode knows exactly one constructor per Type and rejects anything
// else. Requests embed RequestBase, responses embed ResponseBase so generic
// code (sequence errors, session id checks) can reach the header and response
// code without a type switch.
//
// # Encoding
//
// Payloads are deterministic CBOR (RFC 8949) with integer keys:
//
//	{
//	  1: type,   // uint16 message type
//	  2: body    // message fields, integer keyed
//	}
//
// The payload type of the enclosing V2GTP frame selects the namespace (SAP,
// common, AC, DC); a message type outside that namespace is a decode error.
// Encoding is deterministic, so decode(encode(m)) == m for every valid m.
package message

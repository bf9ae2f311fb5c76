package throttle

import "fmt"

// Message is the throttle-relevant slice of a serialized job payload.
// It is reconstructed from the raw payload on every throttle check and
// never stored.
//
// Wrapped carries the real class name when the payload was produced by
// an adapter that wraps jobs in a generic envelope class; ClassName
// prefers it over Class.
type Message struct {
	Class   string `json:"class" msgpack:"class"`
	Wrapped string `json:"wrapped,omitempty" msgpack:"wrapped,omitempty"`
	JID     string `json:"jid" msgpack:"jid"`
	Args    []any  `json:"args" msgpack:"args"`
}

// ClassName returns the effective job class of the message.
func (m *Message) ClassName() string {
	if m.Wrapped != "" {
		return m.Wrapped
	}
	return m.Class
}

// DecodeMessage decodes a raw payload with the given codec (JSON when
// codec is nil) and validates that it carries enough identity for a
// throttle decision. A payload that cannot be decoded, or that lacks a
// class or jid, yields an error wrapping ErrMalformedPayload.
func DecodeMessage(codec Codec, payload []byte) (*Message, error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	m, err := codec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if m.ClassName() == "" {
		return nil, fmt.Errorf("%w: missing class", ErrMalformedPayload)
	}
	if m.JID == "" {
		return nil, fmt.Errorf("%w: missing jid", ErrMalformedPayload)
	}
	return m, nil
}

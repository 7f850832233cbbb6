package eventstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrEventNotRegistered = errors.New("event type is not registered with the codec")
	ErrEventTypeMismatch  = errors.New("decoded event does not satisfy the codec event type")
)

// Codec translates domain events to and from persisted record payloads.
// Marshal yields the type name stored on the Record plus its payload;
// Unmarshal reverses it.
type Codec[E any] interface {
	Marshal(event E) (eventType string, payload json.RawMessage, err error)
	Unmarshal(eventType string, payload json.RawMessage) (E, error)
}

// JSONCodec is a registry-backed Codec that serializes events as JSON and
// keys them by their qualified struct name. Register every concrete event
// type with RegisterEvent before decoding streams that contain it.
type JSONCodec[E any] struct {
	mu       sync.RWMutex
	decoders map[string]func(payload json.RawMessage) (E, error)
}

// NewJSONCodec creates an empty JSONCodec.
func NewJSONCodec[E any]() *JSONCodec[E] {
	return &JSONCodec[E]{
		decoders: make(map[string]func(payload json.RawMessage) (E, error)),
	}
}

// RegisterEvent makes the concrete event type T decodable by the codec. T
// must be assignable to the codec's event type E, which is checked at decode
// time. Registering the same type twice replaces the previous entry.
func RegisterEvent[T, E any](c *JSONCodec[E]) {
	var v T
	name := qualifiedStructName(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders[name] = func(payload json.RawMessage) (E, error) {
		var t T
		var zero E
		if err := json.Unmarshal(payload, &t); err != nil {
			return zero, err
		}
		e, ok := any(t).(E)
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrEventTypeMismatch, name)
		}
		return e, nil
	}
}

// Marshal implements Codec.
func (c *JSONCodec[E]) Marshal(event E) (string, json.RawMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, err
	}
	return qualifiedStructName(event), payload, nil
}

// Unmarshal implements Codec.
func (c *JSONCodec[E]) Unmarshal(eventType string, payload json.RawMessage) (E, error) {
	c.mu.RLock()
	decode, ok := c.decoders[eventType]
	c.mu.RUnlock()

	if !ok {
		var zero E
		return zero, fmt.Errorf("%w: %s", ErrEventNotRegistered, eventType)
	}
	return decode(payload)
}

func qualifiedStructName(v any) string {
	s := fmt.Sprintf("%T", v)
	s = strings.TrimLeft(s, "*")

	return s
}

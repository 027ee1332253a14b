package plan

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNotObject = errors.New("not a JSON object")

// object is a decoded JSON object whose values are kept verbatim.
type object map[string]json.RawMessage

func decodeObject(data []byte) (object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errNotObject
	}
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	if o == nil {
		o = object{}
	}
	return o, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isStructured reports whether raw holds an object or an array.
func isStructured(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '[')
}

// takePtr moves key out of o when its value decodes into T. Values that do
// not fit stay in o and end up in the owner's Extra map.
func takePtr[T any](o object, key string) *T {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	delete(o, key)
	return &v
}

// takeList is takePtr for arrays. A present list is never nil.
func takeList[T any](o object, key string) []T {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v []T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	delete(o, key)
	if v == nil {
		v = []T{}
	}
	return v
}

func takeRaw(o object, key string) json.RawMessage {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	delete(o, key)
	return raw
}

func extraOrNil(o object) map[string]json.RawMessage {
	if len(o) == 0 {
		return nil
	}
	return o
}

// builder assembles an object for encoding. Map keys are sorted by
// encoding/json, so output is deterministic.
type builder struct {
	o   object
	err error
}

func newBuilder() *builder { return &builder{o: object{}} }

func (b *builder) set(key string, v any) {
	if b.err != nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return
	}
	b.o[key] = raw
}

func setPtr[T any](b *builder, key string, v *T) {
	if v != nil {
		b.set(key, v)
	}
}

func setList[T any](b *builder, key string, v []T) {
	if v != nil {
		b.set(key, v)
	}
}

func (b *builder) setRaw(key string, raw json.RawMessage) {
	if len(raw) > 0 {
		b.o[key] = raw
	}
}

func (b *builder) finish(extra map[string]json.RawMessage) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	for k, v := range extra {
		if _, typed := b.o[k]; !typed {
			b.o[k] = v
		}
	}
	return json.Marshal(map[string]json.RawMessage(b.o))
}

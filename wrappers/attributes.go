package wrappers

import "go.opentelemetry.io/otel/attribute"

// AttributesBuilder accumulates span attributes contributed by a sequence
// of extractors. Writing a key that is already present replaces its value,
// so the last writer wins. Build returns the attributes in the order their
// keys were first written.
//
// The zero value is ready to use. An AttributesBuilder is not safe for
// concurrent use; the wrapper creates one per hook invocation.
type AttributesBuilder struct {
	keys   []attribute.Key
	values map[attribute.Key]attribute.Value
}

// Put adds kvs to the builder. Invalid key-values are ignored.
func (b *AttributesBuilder) Put(kvs ...attribute.KeyValue) *AttributesBuilder {
	if b.values == nil {
		b.values = make(map[attribute.Key]attribute.Value, len(kvs))
	}
	for _, kv := range kvs {
		if !kv.Valid() {
			continue
		}
		if _, ok := b.values[kv.Key]; !ok {
			b.keys = append(b.keys, kv.Key)
		}
		b.values[kv.Key] = kv.Value
	}
	return b
}

// Get returns the value currently held for key.
func (b *AttributesBuilder) Get(key attribute.Key) (attribute.Value, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (b *AttributesBuilder) Len() int {
	return len(b.keys)
}

// Build returns the accumulated attributes.
func (b *AttributesBuilder) Build() []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(b.keys))
	for _, k := range b.keys {
		kvs = append(kvs, attribute.KeyValue{Key: k, Value: b.values[k]})
	}
	return kvs
}

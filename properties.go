package cambium

import (
	"bytes"
	"encoding/gob"
)

// Well-known keys with semantic meaning across the core.
const (
	// KeyFormat names the data's format (e.g. "json", "png").
	KeyFormat = "format"
	// KeyPath optionally names a filesystem path associated with the data.
	KeyPath = "path"
)

// Properties is an ordered string-keyed mapping to PropertyValue.
// Insertion order is preserved for deterministic display and hashing.
// The zero value is an empty, usable Properties.
type Properties struct {
	keys   []string
	values map[string]PropertyValue
}

// NewProperties returns an empty Properties bag.
func NewProperties() Properties {
	return Properties{values: make(map[string]PropertyValue)}
}

// PropertiesOf builds a Properties bag from key/value pairs in the order
// given, a convenience for tests and small call sites.
func PropertiesOf(pairs ...KV) Properties {
	p := NewProperties()
	for _, kv := range pairs {
		p = p.Set(kv.Key, kv.Value)
	}
	return p
}

// KV is a single key/value pair, used by PropertiesOf.
type KV struct {
	Key   string
	Value PropertyValue
}

// Kv constructs a KV pair.
func Kv(key string, value PropertyValue) KV { return KV{Key: key, Value: value} }

// Get looks up key, returning its value and whether it is present.
func (p Properties) Get(key string) (PropertyValue, bool) {
	if p.values == nil {
		return PropertyValue{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p Properties) Has(key string) bool {
	if p.values == nil {
		return false
	}
	_, ok := p.values[key]
	return ok
}

// Len reports the number of entries.
func (p Properties) Len() int { return len(p.keys) }

// Keys returns the keys in insertion order. The returned slice is owned
// by the caller.
func (p Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Set returns a new Properties with key set to value, preserving the
// original's insertion order for existing keys and appending key if new.
// Properties is treated as immutable once handed to the planner; Set
// never mutates the receiver's backing storage.
func (p Properties) Set(key string, value PropertyValue) Properties {
	next := p.clone()
	if _, exists := next.values[key]; !exists {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

// Remove returns a new Properties with key absent.
func (p Properties) Remove(key string) Properties {
	if !p.Has(key) {
		return p
	}
	next := p.clone()
	delete(next.values, key)
	for i, k := range next.keys {
		if k == key {
			next.keys = append(next.keys[:i], next.keys[i+1:]...)
			break
		}
	}
	return next
}

// clone makes a cheap-enough copy to pass across plan steps: bags are
// expected to stay small (well under a hundred entries).
func (p Properties) clone() Properties {
	next := Properties{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]PropertyValue, len(p.values)+1),
	}
	copy(next.keys, p.keys)
	for k, v := range p.values {
		next.values[k] = v
	}
	return next
}

// Format returns the well-known "format" key, if present.
func (p Properties) Format() (string, bool) {
	v, ok := p.Get(KeyFormat)
	if !ok {
		return "", false
	}
	s, ok := v.AsString()
	return s, ok
}

// gobKV is the exported pair shape Properties (un)marshals through, since
// encoding/gob cannot see unexported struct fields directly. Used by
// overlay/planstore to persist plans across runs.
type gobKV struct {
	Key   string
	Value PropertyValue
}

// GobEncode implements gob.GobEncoder, preserving insertion order.
func (p Properties) GobEncode() ([]byte, error) {
	pairs := make([]gobKV, 0, len(p.keys))
	for _, k := range p.keys {
		pairs = append(pairs, gobKV{Key: k, Value: p.values[k]})
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(pairs)
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (p *Properties) GobDecode(data []byte) error {
	var pairs []gobKV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pairs); err != nil {
		return err
	}
	np := NewProperties()
	for _, kv := range pairs {
		np = np.Set(kv.Key, kv.Value)
	}
	*p = np
	return nil
}

// Equal reports whether p and other hold the same key/value pairs,
// irrespective of insertion order.
func (p Properties) Equal(other Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	for k, v := range p.values {
		ov, ok := other.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

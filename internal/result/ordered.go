package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ordered is a JSON object that remembers the order in which its members
// appeared on the wire. A repeated member keeps its first position and takes
// the last value.
type Ordered[V any] struct {
	keys   []string
	values map[string]V
}

// Set adds or replaces a member
func (o *Ordered[V]) Set(key string, v V) {
	if o.values == nil {
		o.values = make(map[string]V)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value of a member
func (o Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether the member exists
func (o Ordered[V]) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns member names in insertion order
func (o Ordered[V]) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of members
func (o Ordered[V]) Len() int {
	return len(o.keys)
}

// At returns the i-th member in insertion order
func (o Ordered[V]) At(i int) (string, V) {
	k := o.keys[i]
	return k, o.values[k]
}

// UnmarshalJSON decodes an object token by token. null yields an empty value.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	o.keys = nil
	o.values = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
		o.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes members in insertion order
func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the flat feature vector sent to the prediction service.
// It only accepts registered keys and marshals in wire order.
type Payload struct {
	reg    *Registry
	values map[Key]float64
}

// NewPayload returns an empty payload bound to the registry
func (r *Registry) NewPayload() *Payload {
	return &Payload{reg: r, values: make(map[Key]float64, len(r.fields))}
}

// Set stores a value. Unknown keys are rejected.
func (p *Payload) Set(k Key, v float64) error {
	if !p.reg.Has(k) {
		return fmt.Errorf("unknown schema key %q", k)
	}
	p.values[k] = v
	return nil
}

// Get returns the value stored for k
func (p *Payload) Get(k Key) (float64, bool) {
	v, ok := p.values[k]
	return v, ok
}

// Len returns how many keys have been set
func (p *Payload) Len() int {
	return len(p.values)
}

// Missing lists registered keys that have not been set, in wire order
func (p *Payload) Missing() []Key {
	var missing []Key
	for _, f := range p.reg.fields {
		if _, ok := p.values[f.Key]; !ok {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// Complete reports whether every registered key has a value
func (p *Payload) Complete() bool {
	return len(p.values) == len(p.reg.fields)
}

// Map returns a copy of the payload as plain strings
func (p *Payload) Map() map[string]float64 {
	out := make(map[string]float64, len(p.values))
	for k, v := range p.values {
		out[string(k)] = v
	}
	return out
}

// MarshalJSON writes the payload as a flat object in wire order
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range p.reg.fields {
		v, ok := p.values[f.Key]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(string(f.Key))
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", f.Key, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

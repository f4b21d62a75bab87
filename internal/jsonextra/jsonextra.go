// Package jsonextra keeps JSON object members that a typed schema does not
// recognize so that a load followed by a save reproduces them unchanged, in
// the order they were first observed. Manifests and test-case documents
// both rely on this to satisfy the forward-compatibility requirement: a
// package written by a newer schema version must round-trip through an
// older implementation without losing data.
package jsonextra

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object decoded while preserving member order.
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

// Decode parses a JSON object, recording the order its members appeared in.
func Decode(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return Object{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Object{}, fmt.Errorf("jsonextra: expected JSON object, got %v", tok)
	}
	obj := Object{values: make(map[string]json.RawMessage)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Object{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Object{}, fmt.Errorf("jsonextra: expected string key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Object{}, err
		}
		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}
	return obj, nil
}

// Take removes and returns the raw value stored under key, if present. Known
// schema fields are claimed this way as they are parsed into a typed model.
func (o *Object) Take(key string) (json.RawMessage, bool) {
	raw, ok := o.values[key]
	if !ok {
		return nil, false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return raw, true
}

// Remaining returns everything not claimed via Take, as a Bag to keep
// alongside the typed model and re-emit verbatim on save.
func (o Object) Remaining() Bag {
	bag := Bag{values: make(map[string]json.RawMessage, len(o.keys))}
	bag.keys = append(bag.keys, o.keys...)
	for _, k := range o.keys {
		bag.values[k] = o.values[k]
	}
	return bag
}

// Bag is an ordered set of JSON object members that a typed model does not
// understand but must preserve across a load/save cycle.
type Bag struct {
	keys   []string
	values map[string]json.RawMessage
}

// Entry is one member of a Bag, exposed for callers that need to decode
// every member themselves (e.g. into a map keyed by a schema-defined ID)
// while still walking them in the order they appeared on the wire.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Entries returns the bag's members in declaration order.
func (b Bag) Entries() []Entry {
	entries := make([]Entry, 0, len(b.keys))
	for _, k := range b.keys {
		entries = append(entries, Entry{Key: k, Value: b.values[k]})
	}
	return entries
}

// Len reports how many unrecognized members are kept.
func (b Bag) Len() int {
	return len(b.keys)
}

// Has reports whether key is present in the bag.
func (b Bag) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Extend appends the bag's members, in their original order, to a JSON
// object already encoded by a typed struct (known, ending in `}`), and
// returns the combined object. It is the counterpart to Decode/Take/
// Remaining: known fields are encoded normally by encoding/json, then the
// leftovers are spliced back in before the closing brace.
func (b Bag) Extend(known []byte) ([]byte, error) {
	if len(known) == 0 || known[len(known)-1] != '}' {
		return nil, fmt.Errorf("jsonextra: expected a JSON object to extend")
	}
	if b.Len() == 0 {
		return known, nil
	}
	buf := bytes.NewBuffer(nil)
	buf.Write(known[:len(known)-1])
	for _, k := range b.keys {
		buf.WriteByte(',')
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(b.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

package clinic

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a string-keyed collection that remembers insertion order and
// keeps that order when encoded as a JSON object.
type Table[V any] struct {
	keys []string
	vals map[string]V
}

func (t *Table[V]) Get(key string) (V, bool) {
	v, ok := t.vals[key]
	return v, ok
}

func (t *Table[V]) Has(key string) bool {
	_, ok := t.vals[key]
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their
// original position.
func (t *Table[V]) Set(key string, v V) {
	if t.vals == nil {
		t.vals = make(map[string]V)
	}
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
}

func (t *Table[V]) Len() int { return len(t.keys) }

// Keys returns the keys in insertion order.
func (t *Table[V]) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Values returns the values in insertion order.
func (t *Table[V]) Values() []V {
	out := make([]V, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.vals[k])
	}
	return out
}

func (t Table[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(t.vals[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Table[V]) UnmarshalJSON(data []byte) error {
	*t = Table[V]{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return err
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
		if t.Has(key) {
			return fmt.Errorf("duplicate key %q", key)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		t.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package meta implements the per-observation metadata store: an
// ordered-insertion, thread-safe map from string keys to typed values
// (string, signed/unsigned int, double, boolean, or a nested Meta tree).
// Grounded on collectd's meta_data_t, extended with nested maps.
package meta

import (
	"fmt"
	"sync"
)

// Type identifies the value kind stored under a key.
type Type int

const (
	TypeNone Type = iota
	TypeString
	TypeSignedInt
	TypeUnsignedInt
	TypeDouble
	TypeBoolean
	TypeNested
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeSignedInt:
		return "signed_int"
	case TypeUnsignedInt:
		return "unsigned_int"
	case TypeDouble:
		return "double"
	case TypeBoolean:
		return "boolean"
	case TypeNested:
		return "nested"
	default:
		return "none"
	}
}

type entry struct {
	typ    Type
	str    string
	sint   int64
	uint   uint64
	dbl    float64
	boolv  bool
	nested *Meta
}

// Meta is a thread-safe, ordered-insertion map of typed metadata. The zero
// value is not usable; construct with New.
type Meta struct {
	mu     sync.Mutex
	order  []string
	values map[string]entry
}

// New returns an empty metadata store.
func New() *Meta {
	return &Meta{values: make(map[string]entry)}
}

// Clone returns a deep copy. The clone shares no internal state with the
// original, including nested maps.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := New()
	for _, k := range m.order {
		e := m.values[k]
		if e.typ == TypeNested && e.nested != nil {
			e.nested = e.nested.Clone()
		}
		c.order = append(c.order, k)
		c.values[k] = e
	}
	return c
}

// MergeClone copies every key from src into m (dst), overwriting any
// existing key. It is the metadata-store analogue of "set all these keys".
func (m *Meta) MergeClone(src *Meta) {
	if src == nil {
		return
	}
	src.mu.Lock()
	keys := append([]string(nil), src.order...)
	snapshot := make(map[string]entry, len(keys))
	for _, k := range keys {
		e := src.values[k]
		if e.typ == TypeNested && e.nested != nil {
			e.nested = e.nested.Clone()
		}
		snapshot[k] = e
	}
	src.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if _, exists := m.values[k]; !exists {
			m.order = append(m.order, k)
		}
		m.values[k] = snapshot[k]
	}
}

// Exists reports whether key is present.
func (m *Meta) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// TypeOf returns the type stored under key, or TypeNone if absent.
func (m *Meta) TypeOf(key string) Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key].typ
}

// TOC ("table of contents") returns the keys in insertion order.
func (m *Meta) TOC() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Delete removes key. It reports whether the key was present.
func (m *Meta) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Meta) set(key string, e entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = e
}

// SetString sets key to a string value, replacing any existing entry
// regardless of its prior type.
func (m *Meta) SetString(key, value string) { m.set(key, entry{typ: TypeString, str: value}) }

// SetSignedInt sets key to a signed 64-bit integer value.
func (m *Meta) SetSignedInt(key string, value int64) { m.set(key, entry{typ: TypeSignedInt, sint: value}) }

// SetUnsignedInt sets key to an unsigned 64-bit integer value.
func (m *Meta) SetUnsignedInt(key string, value uint64) {
	m.set(key, entry{typ: TypeUnsignedInt, uint: value})
}

// SetDouble sets key to a floating point value.
func (m *Meta) SetDouble(key string, value float64) { m.set(key, entry{typ: TypeDouble, dbl: value}) }

// SetBoolean sets key to a boolean value.
func (m *Meta) SetBoolean(key string, value bool) { m.set(key, entry{typ: TypeBoolean, boolv: value}) }

// SetNested attaches nested itself (not a copy) under key. AppendNested
// instead creates the nested tree inside m and returns it.
func (m *Meta) SetNested(key string, nested *Meta) { m.set(key, entry{typ: TypeNested, nested: nested}) }

// AppendNested ensures key holds a nested Meta tree (creating one if
// absent or of a different type) and returns it for further mutation.
func (m *Meta) AppendNested(key string) *Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if ok && e.typ == TypeNested && e.nested != nil {
		return e.nested
	}
	nested := New()
	if !ok {
		m.order = append(m.order, key)
	}
	m.values[key] = entry{typ: TypeNested, nested: nested}
	return nested
}

var errAbsent = fmt.Errorf("meta: key absent")
var errTypeMismatch = fmt.Errorf("meta: type mismatch")

// GetString returns the string stored under key.
func (m *Meta) GetString(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return "", errAbsent
	}
	if e.typ != TypeString {
		return "", errTypeMismatch
	}
	return e.str, nil
}

// GetSignedInt returns the signed int stored under key.
func (m *Meta) GetSignedInt(key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return 0, errAbsent
	}
	if e.typ != TypeSignedInt {
		return 0, errTypeMismatch
	}
	return e.sint, nil
}

// GetUnsignedInt returns the unsigned int stored under key.
func (m *Meta) GetUnsignedInt(key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return 0, errAbsent
	}
	if e.typ != TypeUnsignedInt {
		return 0, errTypeMismatch
	}
	return e.uint, nil
}

// GetDouble returns the double stored under key.
func (m *Meta) GetDouble(key string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return 0, errAbsent
	}
	if e.typ != TypeDouble {
		return 0, errTypeMismatch
	}
	return e.dbl, nil
}

// GetBoolean returns the boolean stored under key.
func (m *Meta) GetBoolean(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return false, errAbsent
	}
	if e.typ != TypeBoolean {
		return false, errTypeMismatch
	}
	return e.boolv, nil
}

// GetNested returns the nested Meta tree stored under key. The returned
// tree is the store's own internal tree, not a copy — callers that need
// isolation should Clone() it.
func (m *Meta) GetNested(key string) (*Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return nil, errAbsent
	}
	if e.typ != TypeNested {
		return nil, errTypeMismatch
	}
	return e.nested, nil
}

// AsString stringifies the value under key regardless of its type:
// decimal for ints, "%.15g" for doubles, "true"/"false" for booleans, the
// literal string for strings, and a "{nested:N keys}" placeholder for
// nested maps.
func (m *Meta) AsString(key string) (string, error) {
	m.mu.Lock()
	e, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return "", errAbsent
	}
	switch e.typ {
	case TypeString:
		return e.str, nil
	case TypeSignedInt:
		return fmt.Sprintf("%d", e.sint), nil
	case TypeUnsignedInt:
		return fmt.Sprintf("%d", e.uint), nil
	case TypeDouble:
		return fmt.Sprintf("%.15g", e.dbl), nil
	case TypeBoolean:
		if e.boolv {
			return "true", nil
		}
		return "false", nil
	case TypeNested:
		return fmt.Sprintf("{nested:%d keys}", len(e.nested.TOC())), nil
	default:
		return "", errTypeMismatch
	}
}

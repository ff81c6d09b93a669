package flow

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"sync"
)

// Store is the shared state document threaded through every run of one session.
//
// Missing keys read as zero values. Individual reads and writes are guarded so
// that observers may take a Snapshot while a run is in flight; the engine does
// not serialize runs, so only one run may write to a Store at a time.
// Values handed to Set should be treated as immutable afterwards.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStore creates a Store seeded with a copy of initial.
func NewStore(initial map[string]any) *Store {
	data := make(map[string]any, len(initial))
	maps.Copy(data, initial)
	return &Store{data: data}
}

// Get returns the raw value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// SetDefault stores value under key only if the key is absent.
func (s *Store) SetDefault(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		s.data[key] = value
	}
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Has reports whether key holds a non-zero value.
func (s *Store) Has(key string) bool {
	v, ok := s.Get(key)
	return ok && !isZero(v)
}

// Update applies fn to the current value of key and stores the result atomically.
func (s *Store) Update(key string, fn func(old any) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fn(s.data[key])
}

// Append adds value to the list stored under key.
func (s *Store) Append(key string, value any) {
	s.Update(key, func(old any) any {
		return append(slices.Clip(toSlice(old)), value)
	})
}

// Incr adds delta to the integer stored under key and returns the new value.
func (s *Store) Incr(key string, delta int) int {
	var n int
	s.Update(key, func(old any) any {
		n = toInt(old) + delta
		return n
	})
	return n
}

// String returns the value under key as a string.
func (s *Store) String(key string) string {
	v, _ := s.Get(key)
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Int returns the value under key as an int.
func (s *Store) Int(key string) int {
	v, _ := s.Get(key)
	return toInt(v)
}

// Bool returns the value under key as a bool.
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key)
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// Strings returns the value under key as a string slice.
func (s *Store) Strings(key string) []string {
	v, _ := s.Get(key)
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// List returns the value under key as a generic slice copy.
func (s *Store) List(key string) []any {
	v, _ := s.Get(key)
	return append([]any(nil), toSlice(v)...)
}

// Map returns a shallow copy of the map stored under key.
func (s *Store) Map(key string) map[string]any {
	v, _ := s.Get(key)
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return maps.Clone(m)
}

// Snapshot returns a shallow copy of the whole document.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// MarshalJSON encodes the document.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.data)
}

// UnmarshalJSON replaces the document with the decoded payload.
func (s *Store) UnmarshalJSON(b []byte) error {
	data := map[string]any{}
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case float32:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

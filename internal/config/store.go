package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/jackzampolin/folio/internal/store"
)

// ErrInvalidKey is returned when a setting key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ValidateKey checks if a setting key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Store holds runtime setting overrides. Values set here win over the file
// config for the keys listed by DefaultEntries.
type Store interface {
	// Get returns a single override, or nil when the key is not overridden.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set creates or updates an override.
	Set(ctx context.Context, key string, value any, description string) error

	// GetAll returns every override.
	GetAll(ctx context.Context) (map[string]Entry, error)

	// GetByPrefix returns overrides whose key starts with prefix.
	GetByPrefix(ctx context.Context, prefix string) (map[string]Entry, error)

	// Delete removes an override. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Entry represents a single setting.
type Entry struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// BackendStore implements Store as one JSON object under store.KeySettings.
type BackendStore struct {
	backend store.Backend
	mu      sync.Mutex
}

// NewStore creates a settings store over b.
func NewStore(b store.Backend) *BackendStore {
	return &BackendStore{backend: b}
}

func (s *BackendStore) load(ctx context.Context) (map[string]Entry, error) {
	data, err := s.backend.Load(ctx, store.KeySettings)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	entries := map[string]Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return entries, nil
}

func (s *BackendStore) save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.backend.Save(ctx, store.KeySettings, data)
}

// Get returns a single override by key.
func (s *BackendStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Set creates or updates an override. The value is coerced to the type of
// the key's default.
func (s *BackendStore) Set(ctx context.Context, key string, value any, description string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	coerced, err := coerce(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	entries[key] = Entry{Key: key, Value: coerced, Description: description}
	return s.save(ctx, entries)
}

// GetAll returns all overrides.
func (s *BackendStore) GetAll(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// GetByPrefix returns overrides matching the prefix.
func (s *BackendStore) GetByPrefix(ctx context.Context, prefix string) (map[string]Entry, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Entry)
	for key, entry := range all {
		if strings.HasPrefix(key, prefix) {
			result[key] = entry
		}
	}
	return result, nil
}

// Delete removes an override by key.
func (s *BackendStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(ctx, entries)
}

// coerce converts a decoded JSON value to the Go type of the key's default.
func coerce(key string, value any) (any, error) {
	def := GetDefault(key, nil)
	if def == nil {
		return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	switch def.Value.(type) {
	case float64:
		if f, ok := asFloat(value); ok {
			return f, nil
		}
	case int:
		if f, ok := asFloat(value); ok && f == float64(int(f)) {
			return int(f), nil
		}
	case bool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case string:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q expects %T, got %T", ErrInvalidValue, key, def.Value, value)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package store

import (
	"context"
	"time"

	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/prompts"
)

// Storage keys.
const (
	KeyProducts       = "folio:products"
	KeyConfigurations = "folio:configurations"
	KeyDebugLogs      = "folio:debug_logs"
	KeySettings       = "folio:settings"
)

// Configuration is a saved generation setup that can be re-run.
type Configuration struct {
	ID           string                         `json:"id"`
	Name         string                         `json:"name"`
	OutputType   string                         `json:"outputType"`
	Context      map[string]string              `json:"context"`
	Drivers      []prompts.Driver               `json:"drivers,omitempty"`
	Directives   []prompts.InstructionDirective `json:"directives,omitempty"`
	SectionLabel string                         `json:"sectionLabel,omitempty"`
	CreatedAt    time.Time                      `json:"createdAt"`
}

// Limits caps each collection.
type Limits struct {
	MaxProducts       int
	MaxConfigurations int
	MaxDebugLogs      int
}

// DefaultLimits are used for zero fields.
var DefaultLimits = Limits{
	MaxProducts:       50,
	MaxConfigurations: 50,
	MaxDebugLogs:      100,
}

// Store groups the collections over one backend.
type Store struct {
	backend Backend

	Products       *Collection[content.Product]
	Configurations *Collection[Configuration]
	DebugLogs      *Collection[llmcall.Call]
}

// New creates a Store.
func New(b Backend, limits Limits) *Store {
	if limits.MaxProducts <= 0 {
		limits.MaxProducts = DefaultLimits.MaxProducts
	}
	if limits.MaxConfigurations <= 0 {
		limits.MaxConfigurations = DefaultLimits.MaxConfigurations
	}
	if limits.MaxDebugLogs <= 0 {
		limits.MaxDebugLogs = DefaultLimits.MaxDebugLogs
	}
	return &Store{
		backend:        b,
		Products:       NewCollection(b, KeyProducts, limits.MaxProducts, func(p content.Product) string { return p.ID }),
		Configurations: NewCollection(b, KeyConfigurations, limits.MaxConfigurations, func(c Configuration) string { return c.ID }),
		DebugLogs:      NewCollection(b, KeyDebugLogs, limits.MaxDebugLogs, func(c llmcall.Call) string { return c.ID }),
	}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

// Close closes the backend.
func (s *Store) Close() error { return s.backend.Close() }

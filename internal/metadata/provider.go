package metadata

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/erni27/imcache"

	"github.com/roach88/crmbdd/internal/crm"
)

// Provider answers "describe entity/attribute shape" questions.
type Provider interface {
	Entity(ctx context.Context, logicalName string) (*EntityMetadata, error)
	Attribute(ctx context.Context, entity, attribute string) (*AttributeMetadata, error)
}

// Source fetches entity metadata from wherever it lives. Fetches may be
// expensive; wrap a Source in Cached.
type Source interface {
	FetchEntity(ctx context.Context, logicalName string) (*EntityMetadata, error)
}

// Static is an in-memory Source holding a fixed set of entities.
type Static struct {
	entities map[string]*EntityMetadata
}

// NewStatic creates a Static source from the given entities.
func NewStatic(entities ...*EntityMetadata) *Static {
	s := &Static{entities: make(map[string]*EntityMetadata, len(entities))}
	for _, e := range entities {
		s.entities[e.LogicalName] = e
	}
	return s
}

// FetchEntity returns the entity or a SchemaError when unknown.
func (s *Static) FetchEntity(_ context.Context, logicalName string) (*EntityMetadata, error) {
	e, ok := s.entities[logicalName]
	if !ok {
		return nil, &crm.SchemaError{
			Code:    crm.ErrCodeUnknownEntity,
			Entity:  logicalName,
			Message: "entity not described by metadata",
		}
	}
	return e, nil
}

// EntityNames returns all entity logical names in sorted order.
func (s *Static) EntityNames() []string {
	names := make([]string, 0, len(s.entities))
	for n := range s.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Cached is the process-wide metadata Provider. Entities are fetched lazily
// from the Source on first use and kept for the process lifetime.
//
// Thread-safety: Cached is safe for concurrent use; metadata is read only.
type Cached struct {
	source  Source
	cache   *imcache.Cache[string, *EntityMetadata]
	fetches atomic.Int64
}

// NewCached wraps a Source with a never-expiring cache.
func NewCached(source Source) *Cached {
	return &Cached{
		source: source,
		cache:  imcache.New[string, *EntityMetadata](),
	}
}

// Entity returns the entity metadata, fetching it on first use.
func (c *Cached) Entity(ctx context.Context, logicalName string) (*EntityMetadata, error) {
	if e, ok := c.cache.Get(logicalName); ok {
		return e, nil
	}
	c.fetches.Add(1)
	e, err := c.source.FetchEntity(ctx, logicalName)
	if err != nil {
		return nil, err
	}
	c.cache.Set(logicalName, e, imcache.WithNoExpiration())
	return e, nil
}

// Attribute returns the attribute metadata or a SchemaError when the
// attribute is not part of the entity.
func (c *Cached) Attribute(ctx context.Context, entity, attribute string) (*AttributeMetadata, error) {
	e, err := c.Entity(ctx, entity)
	if err != nil {
		return nil, err
	}
	a, ok := e.Attribute(attribute)
	if !ok {
		return nil, &crm.SchemaError{
			Code:      crm.ErrCodeUnknownAttribute,
			Entity:    entity,
			Attribute: attribute,
			Message:   "attribute not described by metadata",
		}
	}
	return a, nil
}

// Fetches returns how many times the Source was consulted.
func (c *Cached) Fetches() int64 {
	return c.fetches.Load()
}

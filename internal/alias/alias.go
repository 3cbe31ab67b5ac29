// Package alias maps human-assigned names to record references for the
// duration of one scenario.
//
// A Cache is owned by exactly one scenario context and is never shared
// between scenarios. It is not safe for concurrent use; scenarios run their
// steps sequentially.
package alias

import (
	"fmt"
	"sort"

	"github.com/roach88/crmbdd/internal/crm"
)

// UnboundError is returned by Get when no record was registered under the alias.
type UnboundError struct {
	Alias string
	Known []string
}

func (e *UnboundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("alias %q is not bound (no aliases registered)", e.Alias)
	}
	return fmt.Sprintf("alias %q is not bound (known: %v)", e.Alias, e.Known)
}

// Cache is the alias table of one scenario.
type Cache struct {
	refs map[string]crm.EntityReference
}

// New creates an empty alias table.
func New() *Cache {
	return &Cache{refs: make(map[string]crm.EntityReference)}
}

// Add binds alias to ref. A later Add for the same alias overwrites.
func (c *Cache) Add(alias string, ref crm.EntityReference) {
	c.refs[alias] = ref
}

// Get returns the reference bound to alias or an *UnboundError.
func (c *Cache) Get(alias string) (crm.EntityReference, error) {
	ref, ok := c.refs[alias]
	if !ok {
		return crm.EntityReference{}, &UnboundError{Alias: alias, Known: c.Names()}
	}
	return ref, nil
}

// GetOrNil returns the reference bound to alias, or nil. It never fails.
func (c *Cache) GetOrNil(alias string) *crm.EntityReference {
	ref, ok := c.refs[alias]
	if !ok {
		return nil
	}
	return &ref
}

// Names returns every bound alias in sorted order.
func (c *Cache) Names() []string {
	names := make([]string, 0, len(c.refs))
	for n := range c.refs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bound aliases.
func (c *Cache) Len() int {
	return len(c.refs)
}

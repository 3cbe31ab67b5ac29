package command

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/crmbdd/internal/alias"
	"github.com/roach88/crmbdd/internal/config"
	"github.com/roach88/crmbdd/internal/convert"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/store"
	"github.com/roach88/crmbdd/internal/ui"
)

// Context is the per-scenario state commands run against.
type Context struct {
	Aliases   *alias.Cache
	Converter *convert.Converter
	Metadata  metadata.Provider
	Records   store.Service
	Forms     ui.Verifier

	// AsyncPollInterval and AsyncTimeout bound WaitForAsyncJobs.
	AsyncPollInterval time.Duration
	AsyncTimeout      time.Duration
}

// NewContext creates a scenario context with a fresh alias table. A nil
// verifier means form notifications cannot be checked.
func NewContext(meta metadata.Provider, records store.Service, forms ui.Verifier, cfg config.Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := convert.OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("converter options: %w", err)
	}
	if forms == nil {
		forms = ui.Unavailable{}
	}
	aliases := alias.New()
	return &Context{
		Aliases:           aliases,
		Converter:         convert.New(meta, records, aliases, opts),
		Metadata:          meta,
		Records:           records,
		Forms:             forms,
		AsyncPollInterval: cfg.AsyncPollInterval,
		AsyncTimeout:      cfg.AsyncTimeout,
	}, nil
}

// entity returns the metadata of the aliased record's entity.
func (c *Context) entity(ctx context.Context, ref crm.EntityReference) (*metadata.EntityMetadata, error) {
	em, err := c.Metadata.Entity(ctx, ref.LogicalName)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", ref.LogicalName, err)
	}
	return em, nil
}

// resolve looks up an alias.
func (c *Context) resolve(name string) (crm.EntityReference, error) {
	return c.Aliases.Get(name)
}

package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"github.com/roach88/crmbdd/internal/alias"
	"github.com/roach88/crmbdd/internal/config"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/queryir"
)

// Mode selects the form of converted values.
type Mode int

const (
	// Rich values are written to records.
	Rich Mode = iota
	// Primitive values are used in query filters.
	Primitive
)

func (m Mode) String() string {
	if m == Primitive {
		return "primitive"
	}
	return "rich"
}

// Querier is the part of the record store the converter needs.
type Querier interface {
	RetrieveMultiple(ctx context.Context, query queryir.Select) ([]crm.Entity, error)
}

// Options tune text matching.
type Options struct {
	LanguageCode int
	OptionMatch  config.OptionMatch
	Location     *time.Location
}

// OptionsFromConfig derives converter options from the run configuration.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		LanguageCode: cfg.LanguageCode,
		OptionMatch:  cfg.OptionMatch,
		Location:     loc,
	}, nil
}

// Converter converts step text for one scenario. It shares the scenario's
// alias table and is not safe for concurrent use.
type Converter struct {
	meta    metadata.Provider
	records Querier
	aliases *alias.Cache
	opts    Options
}

// New creates a converter. Zero option fields fall back to the configuration
// defaults.
func New(meta metadata.Provider, records Querier, aliases *alias.Cache, opts Options) *Converter {
	def := config.Default()
	if opts.LanguageCode == 0 {
		opts.LanguageCode = def.LanguageCode
	}
	if opts.OptionMatch == "" {
		opts.OptionMatch = def.OptionMatch
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Converter{meta: meta, records: records, aliases: aliases, opts: opts}
}

// Metadata returns the provider the converter reads schemas from.
func (c *Converter) Metadata() metadata.Provider {
	return c.meta
}

// Convert converts raw text for entity.attribute.
func (c *Converter) Convert(ctx context.Context, entity, attribute, raw string, mode Mode) (any, error) {
	attr, err := c.meta.Attribute(ctx, entity, attribute)
	if err != nil {
		return nil, err
	}
	return c.ConvertAttribute(ctx, attr, raw, mode)
}

// ConvertAttribute converts raw text for an attribute already looked up.
func (c *Converter) ConvertAttribute(ctx context.Context, attr *metadata.AttributeMetadata, raw string, mode Mode) (any, error) {
	switch attr.Type {
	case metadata.TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		return b, nil

	case metadata.TypeDateTime:
		t, err := dateparse.ParseIn(strings.TrimSpace(raw), c.opts.Location, dateparse.PreferMonthFirst(true))
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		return t, nil

	case metadata.TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, parseError(attr, raw, errNonFinite)
		}
		return f, nil

	case metadata.TypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		return d, nil

	case metadata.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		return n, nil

	case metadata.TypeString, metadata.TypeMemo:
		return raw, nil

	case metadata.TypeMoney:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, parseError(attr, raw, err)
		}
		if mode == Primitive {
			return d, nil
		}
		return crm.Money{Value: d}, nil

	case metadata.TypePicklist, metadata.TypeState, metadata.TypeStatus:
		opt, err := c.resolveOption(attr, raw)
		if err != nil {
			return nil, err
		}
		if mode == Primitive {
			return opt.Value, nil
		}
		return opt, nil

	case metadata.TypeLookup, metadata.TypeCustomer, metadata.TypeOwner:
		ref, err := c.ResolveLookup(ctx, attr, raw)
		if err != nil {
			return nil, err
		}
		if mode == Primitive {
			return ref.ID, nil
		}
		return ref, nil

	default:
		return nil, &crm.SchemaError{
			Code:      crm.ErrCodeUnknownAttributeType,
			Entity:    attr.EntityLogicalName,
			Attribute: attr.LogicalName,
			Message:   fmt.Sprintf("no conversion for attribute type %q", attr.Type),
		}
	}
}

var errNonFinite = errors.New("value is not a finite number")

func parseError(attr *metadata.AttributeMetadata, raw string, err error) error {
	return &crm.ParseError{
		Entity:    attr.EntityLogicalName,
		Attribute: attr.LogicalName,
		Value:     raw,
		Type:      string(attr.Type),
		Err:       err,
	}
}

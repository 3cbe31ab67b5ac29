package convert

import (
	"golang.org/x/text/cases"

	"github.com/roach88/crmbdd/internal/config"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
)

// resolveOption finds the option whose label in the configured language
// matches raw. Options without a label in that language never match.
func (c *Converter) resolveOption(attr *metadata.AttributeMetadata, raw string) (crm.OptionSetValue, error) {
	opt, label, err := c.findOption(attr, raw)
	if err != nil {
		return crm.OptionSetValue{}, err
	}
	return crm.OptionSetValue{Value: *opt.Value, Label: label}, nil
}

func (c *Converter) findOption(attr *metadata.AttributeMetadata, raw string) (metadata.Option, string, error) {
	var available []string
	for _, opt := range attr.Options {
		if label, ok := opt.LabelFor(c.opts.LanguageCode); ok {
			available = append(available, label)
		}
	}

	for _, opt := range attr.Options {
		label, ok := opt.LabelFor(c.opts.LanguageCode)
		if !ok || !c.labelsMatch(label, raw) {
			continue
		}
		if opt.Value == nil {
			return metadata.Option{}, "", &crm.OptionNotFoundError{
				Entity:    attr.EntityLogicalName,
				Attribute: attr.LogicalName,
				Label:     raw,
				Available: available,
				Reason:    "option has no value",
			}
		}
		return opt, label, nil
	}
	return metadata.Option{}, "", &crm.OptionNotFoundError{
		Entity:    attr.EntityLogicalName,
		Attribute: attr.LogicalName,
		Label:     raw,
		Available: available,
	}
}

func (c *Converter) labelsMatch(label, raw string) bool {
	if c.opts.OptionMatch == config.MatchFold {
		fold := cases.Fold()
		return fold.String(label) == fold.String(raw)
	}
	return label == raw
}

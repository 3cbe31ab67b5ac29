package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/crmbdd/internal/metadata"
)

// EntityDescription is the describe output for one entity.
type EntityDescription struct {
	*metadata.EntityMetadata
	// OptionLabels holds, per option set attribute, "value=label" entries in
	// the configured language.
	OptionLabels map[string][]string `json:"option_labels,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <schema-file-or-dir> [entity]",
		Short: "Show entity metadata from a schema",
		Long: `Show what a schema declares.

Without an entity, lists every entity. With one, shows its attributes with
their types, option labels in the configured language, lookup targets,
business process stages and many-to-many relationships.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := ""
			if len(args) == 2 {
				entity = args[1]
			}
			return runDescribe(rootOpts, args[0], entity, cmd)
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, schemaPath, entity string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	schema, err := LoadSchema(schemaPath)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	if entity == "" {
		names := schema.Source.EntityNames()
		if formatter.IsJSON() {
			return formatter.Success(map[string]any{"entities": names})
		}
		for _, n := range names {
			fmt.Fprintln(formatter.Writer, n)
		}
		return nil
	}

	em, err := metadata.NewCached(schema.Source).Entity(cmd.Context(), entity)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknown, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown entity", err)
	}

	desc := describeEntity(em, opts.runConfig().LanguageCode)
	if formatter.IsJSON() {
		return formatter.Success(desc)
	}
	writeEntity(formatter.Writer, desc)
	return nil
}

func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

func describeEntity(em *metadata.EntityMetadata, languageCode int) EntityDescription {
	desc := EntityDescription{EntityMetadata: em, OptionLabels: map[string][]string{}}
	for _, name := range em.AttributeNames() {
		attr := em.Attributes[name]
		if !attr.Type.IsOptionSet() {
			continue
		}
		for _, opt := range attr.Options {
			label, ok := opt.LabelFor(languageCode)
			if !ok {
				label = "-"
			}
			value := "?"
			if opt.Value != nil {
				value = strconv.FormatInt(*opt.Value, 10)
			}
			desc.OptionLabels[name] = append(desc.OptionLabels[name], value+"="+label)
		}
	}
	return desc
}

// writeEntity renders an entity as aligned text.
func writeEntity(w io.Writer, desc EntityDescription) {
	em := desc.EntityMetadata
	fmt.Fprintf(w, "Entity: %s\n", em.LogicalName)
	if em.PrimaryIDAttribute != "" {
		fmt.Fprintf(w, "Primary id: %s\n", em.PrimaryIDAttribute)
	}
	if em.PrimaryNameAttribute != "" {
		fmt.Fprintf(w, "Primary name: %s\n", em.PrimaryNameAttribute)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tTYPE\tDETAILS")
	for _, name := range em.AttributeNames() {
		attr := em.Attributes[name]
		details := ""
		switch {
		case attr.Type.IsOptionSet():
			details = strings.Join(desc.OptionLabels[name], ", ")
		case attr.Type.IsReference():
			details = "-> " + strings.Join(attr.Targets, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, attr.Type, details)
	}
	tw.Flush()

	if em.Process != nil {
		fmt.Fprintf(w, "\nProcess: %s\n  %s\n", em.Process.Name, strings.Join(em.Process.Stages, " > "))
	}
	if len(em.ManyToMany) > 0 {
		fmt.Fprintln(w, "\nRelationships:")
		for _, r := range em.ManyToMany {
			other, _ := r.Other(em.LogicalName)
			fmt.Fprintf(w, "  %s (%s)\n", r.SchemaName, other)
		}
	}
}

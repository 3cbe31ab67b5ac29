package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// DefaultLanguageCode is used for the `label` shorthand in schema files.
const DefaultLanguageCode = 1033

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDir compiles every .cue file in dir (non-recursive) into a Static source.
func LoadDir(dir string) (*Static, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}
	return LoadFiles(paths...)
}

// LoadFiles compiles the given CUE files into a Static source.
// Files are unified, so an entity may be spread over several files.
func LoadFiles(paths ...string) (*Static, error) {
	ctx := cuecontext.New()
	var merged cue.Value
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			merged = v
		} else {
			merged = merged.Unify(v)
		}
	}
	if err := merged.Validate(); err != nil {
		return nil, formatCUEError(err)
	}
	entities, err := Compile(merged)
	if err != nil {
		return nil, err
	}
	return NewStatic(entities...), nil
}

// CompileCUE compiles schema source held in memory.
func CompileCUE(src string) (*Static, error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	entities, err := Compile(v)
	if err != nil {
		return nil, err
	}
	return NewStatic(entities...), nil
}

// Compile parses the top-level `entity` and `relationship` structs of a
// schema value:
//
//	entity: contact: {
//		primary_id:   "contactid"
//		primary_name: "fullname"
//		attributes: {
//			fullname: type: "string"
//			gendercode: {
//				type: "picklist"
//				options: [{value: 1, label: "Male"}, {value: 2, labels: [{language: 1043, label: "Vrouw"}]}]
//			}
//			parentcustomerid: {type: "customer", targets: ["account", "contact"]}
//		}
//		process: {name: "Contact Onboarding", stages: ["Qualify", "Develop", "Close"]}
//	}
//	relationship: contact_account_nn: {entity1: "contact", entity2: "account"}
//
// Entities are returned in label order.
func Compile(v cue.Value) ([]*EntityMetadata, error) {
	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return nil, &CompileError{Field: "entity", Message: "at least one entity is required", Pos: v.Pos()}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	byName := make(map[string]*EntityMetadata)
	var names []string
	for iter.Next() {
		e, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		byName[e.LogicalName] = e
		names = append(names, e.LogicalName)
	}

	relVal := v.LookupPath(cue.ParsePath("relationship"))
	if relVal.Exists() {
		if err := compileRelationships(relVal, byName); err != nil {
			return nil, err
		}
	}

	sort.Strings(names)
	entities := make([]*EntityMetadata, 0, len(names))
	for _, n := range names {
		entities = append(entities, byName[n])
	}
	return entities, nil
}

func compileEntity(name string, v cue.Value) (*EntityMetadata, error) {
	e := &EntityMetadata{
		LogicalName: name,
		Attributes:  make(map[string]*AttributeMetadata),
	}

	var err error
	if e.PrimaryIDAttribute, err = optionalString(v, "primary_id"); err != nil {
		return nil, err
	}
	if e.PrimaryIDAttribute == "" {
		e.PrimaryIDAttribute = name + "id"
	}

	primaryName, err := optionalString(v, "primary_name")
	if err != nil {
		return nil, err
	}
	if primaryName == "" {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.primary_name", name),
			Message: "primary_name is required",
			Pos:     v.Pos(),
		}
	}
	e.PrimaryNameAttribute = primaryName

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if attrsVal.Exists() {
		attrIter, err := attrsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for attrIter.Next() {
			a, err := compileAttribute(name, attrIter.Label(), attrIter.Value())
			if err != nil {
				return nil, err
			}
			e.Attributes[a.LogicalName] = a
		}
	}

	if _, ok := e.Attributes[e.PrimaryIDAttribute]; !ok {
		e.Attributes[e.PrimaryIDAttribute] = &AttributeMetadata{
			LogicalName:       e.PrimaryIDAttribute,
			EntityLogicalName: name,
			Type:              TypeUniqueIdentifier,
		}
	}

	pn, ok := e.Attributes[primaryName]
	if !ok || (pn.Type != TypeString && pn.Type != TypeMemo) {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.primary_name", name),
			Message: fmt.Sprintf("primary name %q must be a string attribute", primaryName),
			Pos:     v.Pos(),
		}
	}

	processVal := v.LookupPath(cue.ParsePath("process"))
	if processVal.Exists() {
		p, err := compileProcess(name, processVal)
		if err != nil {
			return nil, err
		}
		e.Process = p
	}

	return e, nil
}

func compileAttribute(entity, name string, v cue.Value) (*AttributeMetadata, error) {
	field := fmt.Sprintf("entity.%s.attributes.%s", entity, name)

	typeName, err := optionalString(v, "type")
	if err != nil {
		return nil, err
	}
	t := AttributeType(typeName)
	if !ValidTypes[t] {
		return nil, &CompileError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unknown attribute type %q", typeName),
			Pos:     v.Pos(),
		}
	}

	a := &AttributeMetadata{
		LogicalName:       name,
		EntityLogicalName: entity,
		Type:              t,
	}

	if t.IsOptionSet() {
		a.Options, err = compileOptions(field, v)
		if err != nil {
			return nil, err
		}
		if len(a.Options) == 0 {
			return nil, &CompileError{Field: field + ".options", Message: "option set attributes require options", Pos: v.Pos()}
		}
	}

	if t.IsReference() {
		a.Targets, err = stringList(v.LookupPath(cue.ParsePath("targets")))
		if err != nil {
			return nil, err
		}
		if len(a.Targets) == 0 {
			return nil, &CompileError{Field: field + ".targets", Message: "reference attributes require targets", Pos: v.Pos()}
		}
	}

	return a, nil
}

func compileOptions(field string, v cue.Value) ([]Option, error) {
	optsVal := v.LookupPath(cue.ParsePath("options"))
	if !optsVal.Exists() {
		return nil, nil
	}
	iter, err := optsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var options []Option
	for iter.Next() {
		ov := iter.Value()
		var opt Option

		if valueVal := ov.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
			n, err := valueVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opt.Value = &n
		}
		if stateVal := ov.LookupPath(cue.ParsePath("state")); stateVal.Exists() {
			n, err := stateVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opt.State = &n
		}

		label, err := optionalString(ov, "label")
		if err != nil {
			return nil, err
		}
		if label != "" {
			opt.Labels = append(opt.Labels, Label{LanguageCode: DefaultLanguageCode, Label: label})
		}

		if labelsVal := ov.LookupPath(cue.ParsePath("labels")); labelsVal.Exists() {
			labelIter, err := labelsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for labelIter.Next() {
				lv := labelIter.Value()
				lang, err := lv.LookupPath(cue.ParsePath("language")).Int64()
				if err != nil {
					return nil, formatCUEError(err)
				}
				text, err := lv.LookupPath(cue.ParsePath("label")).String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				opt.Labels = append(opt.Labels, Label{LanguageCode: int(lang), Label: text})
			}
		}

		if len(opt.Labels) == 0 {
			return nil, &CompileError{Field: field + ".options", Message: "every option needs a label", Pos: ov.Pos()}
		}
		options = append(options, opt)
	}
	return options, nil
}

func compileProcess(entity string, v cue.Value) (*ProcessDefinition, error) {
	name, err := optionalString(v, "name")
	if err != nil {
		return nil, err
	}
	stages, err := stringList(v.LookupPath(cue.ParsePath("stages")))
	if err != nil {
		return nil, err
	}
	if name == "" || len(stages) == 0 {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.process", entity),
			Message: "process requires a name and at least one stage",
			Pos:     v.Pos(),
		}
	}
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if seen[s] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("entity.%s.process.stages", entity),
				Message: fmt.Sprintf("duplicate stage %q", s),
				Pos:     v.Pos(),
			}
		}
		seen[s] = true
	}
	return &ProcessDefinition{Name: name, Stages: stages}, nil
}

func compileRelationships(v cue.Value, entities map[string]*EntityMetadata) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		rv := iter.Value()
		field := "relationship." + iter.Label()
		e1, err := optionalString(rv, "entity1")
		if err != nil {
			return err
		}
		e2, err := optionalString(rv, "entity2")
		if err != nil {
			return err
		}
		left, lok := entities[e1]
		right, rok := entities[e2]
		if !lok || !rok {
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("relationship entities %q and %q must both be defined", e1, e2),
				Pos:     rv.Pos(),
			}
		}
		r := ManyToManyRelationship{SchemaName: iter.Label(), Entity1: e1, Entity2: e2}
		left.ManyToMany = append(left.ManyToMany, r)
		if right != left {
			right.ManyToMany = append(right.ManyToMany, r)
		}
	}
	return nil
}

// optionalString reads a string field, returning "" when absent.
func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return strings.TrimSpace(s), nil
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

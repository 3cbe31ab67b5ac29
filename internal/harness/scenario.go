package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/criteria"
)

// Scenario is one behaviour scenario: a sequence of steps run against a
// fresh record store, followed by assertions on the command trace and the
// final records.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema lists CUE schema files describing the entities. Paths are
	// relative to the scenario file.
	Schema []string `yaml:"schema"`

	// Forms lists the notifications each aliased record's form shows.
	Forms map[string][]crm.FormNotification `yaml:"forms,omitempty"`

	// Steps run in order; the first failing step aborts the scenario.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final records.
	// Supported types: trace_contains, trace_order, trace_count, record_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario step. Exactly one of the kind keys (create,
// create_related, exists, update, delete, assign, assert, set_status,
// move_stage, next_stage, assert_stage, associate, assert_associated, merge,
// wait_async, assert_notifications) must be set; the remaining fields are
// its parameters.
type Step struct {
	Create              string `yaml:"create,omitempty"`         // entity
	CreateRelated       string `yaml:"create_related,omitempty"` // entity
	Exists              string `yaml:"exists,omitempty"`         // entity
	Update              string `yaml:"update,omitempty"`
	Delete              string `yaml:"delete,omitempty"`
	Assign              string `yaml:"assign,omitempty"`
	Assert              string `yaml:"assert,omitempty"`
	SetStatus           string `yaml:"set_status,omitempty"`
	MoveStage           string `yaml:"move_stage,omitempty"`
	NextStage           string `yaml:"next_stage,omitempty"`
	AssertStage         string `yaml:"assert_stage,omitempty"`
	Associate           string `yaml:"associate,omitempty"`
	AssertAssociated    string `yaml:"assert_associated,omitempty"`
	Merge               string `yaml:"merge,omitempty"` // subordinate alias
	WaitAsync           string `yaml:"wait_async,omitempty"`
	AssertNotifications string `yaml:"assert_notifications,omitempty"`

	Alias         string                 `yaml:"alias,omitempty"`
	Parent        string                 `yaml:"parent,omitempty"`
	To            string                 `yaml:"to,omitempty"`
	Into          string                 `yaml:"into,omitempty"`
	Status        string                 `yaml:"status,omitempty"`
	Stage         string                 `yaml:"stage,omitempty"`
	Related       string                 `yaml:"related,omitempty"`
	Records       []string               `yaml:"records,omitempty"`
	Values        criteria.Table         `yaml:"values,omitempty"`
	Notifications []crm.FormNotification `yaml:"notifications,omitempty"`

	// ExpectError, when set, requires the step to fail with an error of this
	// kind (see command.ErrorKind). The scenario then continues.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step kinds.
const (
	StepCreate              = "create"
	StepCreateRelated       = "create_related"
	StepExists              = "exists"
	StepUpdate              = "update"
	StepDelete              = "delete"
	StepAssign              = "assign"
	StepAssert              = "assert"
	StepSetStatus           = "set_status"
	StepMoveStage           = "move_stage"
	StepNextStage           = "next_stage"
	StepAssertStage         = "assert_stage"
	StepAssociate           = "associate"
	StepAssertAssociated    = "assert_associated"
	StepMerge               = "merge"
	StepWaitAsync           = "wait_async"
	StepAssertNotifications = "assert_notifications"
)

// kinds returns every kind key set on the step with its subject.
func (s Step) kinds() map[string]string {
	all := map[string]string{
		StepCreate:              s.Create,
		StepCreateRelated:       s.CreateRelated,
		StepExists:              s.Exists,
		StepUpdate:              s.Update,
		StepDelete:              s.Delete,
		StepAssign:              s.Assign,
		StepAssert:              s.Assert,
		StepSetStatus:           s.SetStatus,
		StepMoveStage:           s.MoveStage,
		StepNextStage:           s.NextStage,
		StepAssertStage:         s.AssertStage,
		StepAssociate:           s.Associate,
		StepAssertAssociated:    s.AssertAssociated,
		StepMerge:               s.Merge,
		StepWaitAsync:           s.WaitAsync,
		StepAssertNotifications: s.AssertNotifications,
	}
	set := make(map[string]string)
	for k, v := range all {
		if v != "" {
			set[k] = v
		}
	}
	return set
}

// Kind returns the step kind and its subject (entity or alias).
func (s Step) Kind() (string, string) {
	for k, v := range s.kinds() {
		return k, v
	}
	return "", ""
}

// Assertion validates the trace or the final records.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, record_count.
	Type string `yaml:"type"`

	// Action is a command name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are expected command arguments (trace_contains). Subset match.
	Args map[string]any `yaml:"args,omitempty"`

	// Actions is the expected command order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Entity and Where select records (record_count).
	Entity string         `yaml:"entity,omitempty"`
	Where  criteria.Table `yaml:"where,omitempty"`

	// Count is the expected number of commands or records.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRecordCount   = "record_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving schema paths
// relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// schema paths relative to basePath. Unknown fields are rejected so typos
// fail loudly.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, schemaPath := range scenario.Schema {
		if !filepath.IsAbs(schemaPath) && basePath != "" {
			scenario.Schema[i] = filepath.Join(basePath, schemaPath)
		}
	}

	if err := validateScenario(scenario, true); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario from YAML without checking that schema
// files exist.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario, false); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario, checkFiles bool) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Schema) == 0 {
		return fmt.Errorf("schema list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if checkFiles {
		for _, schemaPath := range s.Schema {
			if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
				return fmt.Errorf("schema file not found: %s", schemaPath)
			}
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that exactly one kind is set and that the kind's
// required parameters are present.
func validateStep(index int, s Step) error {
	kinds := s.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: no step kind set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: %d step kinds set, expected exactly one", index, len(kinds))
	}

	kind, _ := s.Kind()
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, kind)
		}
		return nil
	}

	switch kind {
	case StepCreateRelated:
		return require("parent", s.Parent)
	case StepAssign:
		return require("to", s.To)
	case StepSetStatus:
		return require("status", s.Status)
	case StepMoveStage, StepAssertStage:
		return require("stage", s.Stage)
	case StepAssociate, StepAssertAssociated:
		return require("related", s.Related)
	case StepMerge:
		return require("into", s.Into)
	case StepUpdate, StepAssert:
		if len(s.Values) == 0 {
			return fmt.Errorf("steps[%d]: values are required for %s", index, kind)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRecordCount:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for record_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

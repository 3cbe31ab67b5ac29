package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/crmbdd/internal/metadata"
)

// SchemaResult contains a compiled schema and the files it came from.
type SchemaResult struct {
	Source *metadata.Static
	Files  []string
}

// LoadError represents an error that occurred while loading a schema or
// scenario.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the 1-based source line, or 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadSchema compiles the CUE schema at path. A directory contributes every
// .cue file below it; files are unified, so an entity may span several.
func LoadSchema(path string) (*SchemaResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema path: %v", err)}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	src, err := metadata.LoadFiles(files...)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &SchemaResult{Source: src, Files: files}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a schema compile error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var compileErr *metadata.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // Scenario load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoEntities  = "E007" // Schema declares no entities

	// Schema validation errors
	ErrCodeCUE           = "E100" // CUE syntax or unification error
	ErrCodeEntity        = "E101" // Invalid entity declaration
	ErrCodeAttributeType = "E102" // Unknown attribute type
	ErrCodeOptions       = "E103" // Invalid option set
	ErrCodeTargets       = "E104" // Reference without targets
	ErrCodeProcess       = "E105" // Invalid business process
	ErrCodeRelationship  = "E106" // Invalid many-to-many relationship

	// Test errors
	ErrCodeTestFailed = "E200" // One or more scenarios failed
	ErrCodeUnknown    = "E201" // Unknown entity in describe
)

// MapFieldToErrorCode maps a schema compile error field, a dotted path
// such as "entity.contact.gendercode.options", to an error code.
func MapFieldToErrorCode(field string) string {
	if field == "entity" {
		return ErrCodeNoEntities
	}
	if strings.HasPrefix(field, "relationship.") {
		return ErrCodeRelationship
	}
	switch field[strings.LastIndex(field, ".")+1:] {
	case "cue":
		return ErrCodeCUE
	case "primary_id", "primary_name":
		return ErrCodeEntity
	case "type":
		return ErrCodeAttributeType
	case "options":
		return ErrCodeOptions
	case "targets":
		return ErrCodeTargets
	case "process", "stages":
		return ErrCodeProcess
	default:
		return ErrCodeGeneric
	}
}

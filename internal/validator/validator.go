package validator

// Every JSON document sigtrace emits is checked against schema.cue before it
// is written, and every config file before it is used. A mismatch is an
// error, never a warning.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

// Schema definitions.
const (
	Report    = "#Report"
	Discovery = "#Discovery"
	Catalogue = "#Catalogue"
	Failure   = "#ResolutionFailure"
	Config    = "#Config"
)

// Validator validates documents against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate checks that data, marshaled to JSON, satisfies definition.
func (v *Validator) Validate(definition string, data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(definition, jsonBytes)
}

// ValidateJSON validates JSON bytes directly against definition.
func (v *Validator) ValidateJSON(definition string, jsonBytes []byte) error {
	unified, err := v.unify(definition, jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", definition, err)
	}
	return nil
}

// ValidationErrors returns one message per violation, or nil.
func (v *Validator) ValidationErrors(definition string, data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	unified, err := v.unify(definition, jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(definition string, jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}
	return def.Unify(dataValue), nil
}

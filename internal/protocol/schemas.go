package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://anthill.game/schemas/"

// Schema names accepted by Validate.
const (
	SchemaState  = "state.schema.json"
	SchemaHello  = "hello.schema.json"
	SchemaAction = "action.schema.json"
	SchemaTick   = "tick.schema.json"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// SchemaIssue is one failed constraint.
type SchemaIssue struct {
	InstanceLocation string `json:"instance_location"`
	Message          string `json:"message"`
}

// SchemaError lists every constraint a document failed.
type SchemaError struct {
	Schema string
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return e.Schema + ": invalid"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		loc := is.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		parts = append(parts, loc+": "+is.Message)
	}
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(parts, "; "))
}

// SchemaSource returns the raw embedded schema document.
func SchemaSource(name string) ([]byte, error) {
	return schemaFS.ReadFile("schemas/" + name)
}

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		names := []string{SchemaAction, SchemaState, SchemaHello, SchemaTick}
		for _, n := range names {
			b, err := SchemaSource(n)
			if err != nil {
				compileErr = err
				return
			}
			if err := c.AddResource(schemaBase+n, bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", n, err)
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(names))
		for _, n := range names {
			s, err := c.Compile(schemaBase + n)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", n, err)
				return
			}
			out[n] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Validate checks a JSON document against one of the embedded schemas. A
// document that is not JSON at all returns the decode error; constraint
// failures return a *SchemaError.
func Validate(name string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	s, ok := all[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after JSON document")
	}

	if err := s.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		return toSchemaError(name, ve)
	}
	return nil
}

// ValidateState checks snapshot JSON before it reaches the decoder.
func ValidateState(data []byte) error { return Validate(SchemaState, data) }

func toSchemaError(name string, ve *jsonschema.ValidationError) *SchemaError {
	se := &SchemaError{Schema: name}
	for _, be := range ve.BasicOutput().Errors {
		// Wrapper entries only say "doesn't validate with ..."; the leaves
		// carry the useful message.
		if strings.HasPrefix(be.Error, "doesn't validate with") {
			continue
		}
		se.Issues = append(se.Issues, SchemaIssue{InstanceLocation: be.InstanceLocation, Message: be.Error})
	}
	if len(se.Issues) == 0 {
		se.Issues = append(se.Issues, SchemaIssue{InstanceLocation: ve.InstanceLocation, Message: ve.Message})
	}
	return se
}

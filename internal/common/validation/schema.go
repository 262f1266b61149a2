package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Contract is a compiled JSON schema for a collaborator payload.
type Contract struct {
	name   string
	schema *gojsonschema.Schema
}

// ValidationError describes one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ContractError is returned when a document violates its contract.
type ContractError struct {
	Contract string
	Errors   []ValidationError
}

func (e *ContractError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	}
	return fmt.Sprintf("%s contract violated: %s", e.Contract, strings.Join(msgs, "; "))
}

// NewContract compiles schemaJSON. It fails on an invalid schema.
func NewContract(name, schemaJSON string) (*Contract, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Contract{name: name, schema: schema}, nil
}

// MustContract is NewContract for package-level schemas.
func MustContract(name, schemaJSON string) *Contract {
	c, err := NewContract(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return c
}

// ValidateBytes validates a raw JSON document.
func (c *Contract) ValidateBytes(doc []byte) error {
	return c.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates an already decoded Go value.
func (c *Contract) ValidateValue(v interface{}) error {
	return c.validate(gojsonschema.NewGoLoader(v))
}

func (c *Contract) validate(loader gojsonschema.JSONLoader) error {
	result, err := c.schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("%s: invalid document: %w", c.name, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = ValidationError{Field: desc.Field(), Message: desc.Description()}
	}
	return &ContractError{Contract: c.name, Errors: errs}
}

package fncengine

// Validatable is implemented by argument structs that need business validation.
// Called after schema validation and binding.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value. *jsonschema.Resolved implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs Layer 1 validation on an already decoded argument value.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ArgumentError{Reason: err.Error(), Err: ErrInvalidArguments}
	}
	return nil
}

// validateCustom runs Layer 2 (Validatable) if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateDocument checks the structural requirements of an imported
// document and returns the first violation as an *InvalidSchemaError.
func (c *Codec) validateDocument(doc *Document) error {
	if err := c.validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &InvalidSchemaError{Message: err.Error()}
		}
		return schemaError(verrs[0])
	}

	seen := make(map[string]bool)
	for _, s := range doc.stages() {
		if seen[s.Name] {
			return &InvalidSchemaError{Field: "config", Message: fmt.Sprintf("Duplicate stage name %q.", s.Name)}
		}
		seen[s.Name] = true
	}
	for i, conn := range doc.Config.Connections {
		field := fmt.Sprintf("config.connections[%d]", i)
		switch {
		case conn.From == conn.To:
			return &InvalidSchemaError{Field: field, Message: fmt.Sprintf("Connection from %q to itself is not allowed.", conn.From)}
		case !seen[conn.From]:
			return &InvalidSchemaError{Field: field, Message: fmt.Sprintf("Connection references unknown stage %q.", conn.From)}
		case !seen[conn.To]:
			return &InvalidSchemaError{Field: field, Message: fmt.Sprintf("Connection references unknown stage %q.", conn.To)}
		}
	}
	return nil
}

// schemaError renders a validator failure with its JSON path.
func schemaError(fe validator.FieldError) *InvalidSchemaError {
	// Namespace is "Document.config.source"; drop the root type name.
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("Missing required field '%s'.", field)
	case "min":
		msg = fmt.Sprintf("Field '%s' must contain at least %s entry.", field, fe.Param())
	default:
		msg = fmt.Sprintf("Field '%s' is invalid (%s).", field, fe.Tag())
	}
	return &InvalidSchemaError{Field: field, Message: msg}
}

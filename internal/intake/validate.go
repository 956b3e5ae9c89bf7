package intake

import (
	"strings"
)

// ErrRequiredFields is the message shown for any failed draft check.
const ErrRequiredFields = "all fields are required"

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field that failed. Error returns the single
// generic line the form shows.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string { return ErrRequiredFields }

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks the required fields after trimming. It returns nil or a
// *ValidationError.
func Validate(d Draft) error {
	var errs []FieldError
	required := []struct{ field, value string }{
		{"title", d.Title},
		{"description", d.Description},
		{"category", d.EffectiveCategory()},
		{"tags", d.Tags},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: r.field + " is required"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

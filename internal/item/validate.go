package item

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and converts its field errors
// into a *ValidationError.
type Validator struct {
	v *validator.Validate
}

var defaultValidator = NewValidator()

// NewValidator returns a validator that reports fields by their JSON names
// and understands the notblank tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Validate checks s and returns nil or a *ValidationError.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, violationFor(fe))
	}
	return out
}

func violationFor(fe validator.FieldError) Violation {
	// Namespace is "Type.field.sub"; drop the type name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required", "notblank":
		return Violation{Field: field, Reason: ReasonRequired, Message: field + " is required"}
	default:
		return Violation{Field: field, Reason: ReasonInvalid, Message: field + " is invalid"}
	}
}

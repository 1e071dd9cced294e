package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

// requestValidator plugs go-playground/validator into Echo and reports the
// first failing field as a bad_request AppError.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return errorbank.BadRequest("invalid "+field,
		errorbank.WithDetail("field", field),
		errorbank.WithDetail("reason", fe.Tag()),
		errorbank.WithCause(err),
	)
}

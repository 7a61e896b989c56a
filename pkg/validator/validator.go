package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
)

// TagName matches gin's binding tag so request structs and stored
// documents share one set of rules.
const TagName = "binding"

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

// FieldError describes one failed rule in JSON field terms.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return fmt.Sprintf("%s is required", f.Field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", f.Field)
	case "labnumber":
		return fmt.Sprintf("%s is not a valid lab number", f.Field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Field, f.Param)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f.Field, f.Param)
	}
	return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
}

// Error is returned by Validate when one or more rules fail.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.String())
	}
	return strings.Join(msgs, "; ")
}

type structValidator struct {
	v *validator.Validate
}

var (
	defaultOnce sync.Once
	defaultVal  Validator
)

// New returns a validator reading `binding` tags with the project's custom
// rules registered.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(TagName)
	Configure(v)
	return &structValidator{v: v}
}

// Default returns a shared validator instance.
func Default() Validator {
	defaultOnce.Do(func() { defaultVal = New() })
	return defaultVal
}

// Configure registers JSON field naming and custom rules on v. It is also
// applied to gin's binding engine.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("labnumber", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || labnumber.Valid(s)
	})
}

func (s *structValidator) Validate(obj interface{}) error {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return FromValidationErrors(verrs)
}

// FromValidationErrors converts validator output to *Error.
func FromValidationErrors(verrs validator.ValidationErrors) *Error {
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

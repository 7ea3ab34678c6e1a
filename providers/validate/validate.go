// Package validate couples the structtag model kind with struct
// validation: decoded domain values are checked against validate tags
// before they reach the handler.
//
//	type Person struct {
//	    Name  string `json:"name" validate:"required"`
//	    Email string `json:"email" validate:"required,email"`
//	    Age   int    `json:"age" validate:"gte=0,lte=150"`
//	}
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit"
	"github.com/dtokit/dtokit/providers/structtag"
)

// Provider is a structtag introspector that also implements
// dtokit.Validator. Install both with WithIntrospector and WithValidator.
type Provider struct {
	*structtag.Introspector
	validate *validator.Validate
}

// New returns a validating provider.
func New() *Provider {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their wire-facing json names, not Go names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Provider{Introspector: structtag.New(), validate: v}
}

// ValidateDecoded implements dtokit.Validator. Collections are checked
// element-wise; failures accumulate per field path.
func (p *Provider) ValidateDecoded(v any) error {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}

	var errs errsx.Map
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			p.collect(rv.Index(i).Interface(), fmt.Sprintf("%d", i), &errs)
		}
	case reflect.Struct:
		p.collect(rv.Interface(), "", &errs)
	default:
		return nil
	}
	return errs.AsError()
}

func (p *Provider) collect(v any, prefix string, errs *errsx.Map) {
	err := p.validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		key := prefix
		if key == "" {
			key = "body"
		}
		errs.Set(key, err)
		return
	}
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		if prefix != "" {
			path = prefix + "." + path
		}
		errs.Set(path, fmt.Errorf("failed on the %q rule", fe.Tag()))
	}
}

// fieldPath strips the root struct name from the validator namespace:
// "Person.address.city" becomes "address.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

var _ dtokit.Introspector = (*Provider)(nil)
var _ dtokit.Validator = (*Provider)(nil)

// Package sqltag provides the database-tag model kind for dtokit.
//
// It behaves like the structtag kind but takes logical field names from
// db tags, so transfer schemas line up with column names produced by
// database scanning:
//
//	type Account struct {
//	    ID      int64  `db:"id" dto:"read-only"`
//	    Email   string `db:"email"`
//	    Scratch string `db:"-"`
//	}
package sqltag

import (
	"fmt"
	"reflect"

	"github.com/dtokit/dtokit"
	"github.com/dtokit/dtokit/providers/structtag"
)

// Introspector resolves db-tagged struct models into field definitions.
type Introspector struct {
	inner *structtag.Introspector
}

// New returns an introspector for db-tagged models.
func New() *Introspector {
	return &Introspector{inner: structtag.New()}
}

// RegisterUnion declares the model alternatives of an interface-typed
// field, as in the structtag kind.
func (in *Introspector) RegisterUnion(iface reflect.Type, alternatives ...reflect.Type) error {
	return in.inner.RegisterUnion(iface, alternatives...)
}

// FieldDefinitions implements dtokit.Introspector. Fields tagged db:"-"
// are dropped from the model's public shape.
func (in *Introspector) FieldDefinitions(model reflect.Type) ([]dtokit.FieldDefinition, error) {
	defs, err := in.inner.FieldDefinitions(model)
	if err != nil {
		return nil, err
	}

	out := make([]dtokit.FieldDefinition, 0, len(defs))
	for _, def := range defs {
		field, ok := model.FieldByName(def.GoField)
		if !ok {
			return nil, fmt.Errorf("model %s: field %q vanished during introspection", model.Name(), def.GoField)
		}
		switch tag := field.Tag.Get("db"); tag {
		case "-":
			continue
		case "":
		default:
			def.Name = tag
		}
		out = append(out, def)
	}
	return out, nil
}

// DetectNested implements dtokit.Introspector.
func (in *Introspector) DetectNested(t reflect.Type) bool {
	return in.inner.DetectNested(t)
}

var _ dtokit.Introspector = (*Introspector)(nil)

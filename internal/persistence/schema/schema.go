// Package schema validates persisted documents against a CUE description of
// the events and resources layouts before they are imported into a data
// directory.
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/example/resource-calendar/internal/persistence"
)

const documents = `
#Date: =~"^[0-9]{2}/[0-9]{2}/[0-9]{4}$"

#Event: {
	name:       string & !=""
	start:      #Date
	end:        #Date
	resources?: [...string]
}

#Events: [...#Event]

#Resources: {
	disponibles?: [...string]
	usados?: {[string]: [...string]}
}
`

// Validator checks document bytes against the compiled schema. A Validator is
// not safe for concurrent use.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the document schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(documents, cue.Filename("documents.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: value}, nil
}

// Validate checks data as the document named file. Unknown file names are
// accepted without inspection.
func (v *Validator) Validate(file string, data []byte) error {
	var definition string
	switch file {
	case persistence.EventsFile:
		definition = "#Events"
	case persistence.ResourcesFile:
		definition = "#Resources"
	default:
		return nil
	}

	expr, err := cuejson.Extract(file, data)
	if err != nil {
		return &persistence.DocumentError{File: file, Details: err.Error()}
	}
	value := v.ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return &persistence.DocumentError{File: file, Details: cueerrors.Details(err, nil)}
	}

	unified := v.schema.LookupPath(cue.ParsePath(definition)).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &persistence.DocumentError{File: file, Details: cueerrors.Details(err, nil)}
	}
	return nil
}

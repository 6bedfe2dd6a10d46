// Package schema checks a raw trip source against the columns the cleaning
// pipeline depends on and builds the read projection.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"nyc-taxi-lab/internal/domain"
)

// ErrMissingColumns is matched by every MissingColumnsError.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError names the required columns absent from a source.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Columns, ", "))
}

// Is lets errors.Is(err, ErrMissingColumns) match.
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// Column is one entry of a read projection.
type Column struct {
	Name     string // canonical name
	Source   string // spelling in the source file
	Required bool
}

// Projection is the ordered list of columns to read from the source.
type Projection []Column

// Names returns the source spellings in projection order.
func (p Projection) Names() []string {
	names := make([]string, len(p))
	for i, c := range p {
		names[i] = c.Source
	}
	return names
}

// Validate returns a *MissingColumnsError when any required column is absent.
// Required columns match exactly.
func Validate(columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	var missing []string
	for _, req := range domain.RequiredColumns {
		if _, ok := present[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// Resolve validates the source columns and returns the projection:
// every required column followed by each optional column the source has.
// Optional columns match exactly first, then case-insensitively.
func Resolve(columns []string) (Projection, error) {
	if err := Validate(columns); err != nil {
		return nil, err
	}

	proj := make(Projection, 0, len(domain.RequiredColumns)+len(domain.OptionalColumns))
	for _, req := range domain.RequiredColumns {
		proj = append(proj, Column{Name: req, Source: req, Required: true})
	}

	for _, opt := range domain.OptionalColumns {
		if src, ok := lookup(columns, opt); ok {
			proj = append(proj, Column{Name: opt, Source: src})
		}
	}
	return proj, nil
}

func lookup(columns []string, name string) (string, bool) {
	for _, c := range columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

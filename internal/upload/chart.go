package upload

import (
	"errors"
	"fmt"
)

// Kind is a chart type.
type Kind string

const (
	Bar       Kind = "Bar"
	Line      Kind = "Line"
	Scatter   Kind = "Scatter"
	Histogram Kind = "Histogram"
	Box       Kind = "Box"
)

// Kinds lists the supported chart types in menu order.
var Kinds = []Kind{Bar, Line, Scatter, Histogram, Box}

var ErrUnknownKind = errors.New("unknown chart kind")

// RenderError is returned when a chart cannot be built from the request.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "couldn't render chart: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// ChartRequest picks the axes and type of an ad-hoc chart. Empty X and Y
// fall back to DefaultAxes; an empty Color draws a single trace.
type ChartRequest struct {
	Kind  Kind   `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y"`
	Color string `json:"color,omitempty"`
}

// Trace is one colour group of a chart. Y is empty for histograms.
type Trace struct {
	Name string `json:"name,omitempty"`
	X    []any  `json:"x"`
	Y    []any  `json:"y,omitempty"`
}

// Chart is a chart dataset ready for a plotting client.
type Chart struct {
	Kind   Kind    `json:"kind"`
	Title  string  `json:"title"`
	X      string  `json:"x"`
	Y      string  `json:"y,omitempty"`
	Color  string  `json:"color,omitempty"`
	Traces []Trace `json:"traces"`
}

// DefaultAxes returns the preselected axes: the first column for X and, for
// Y, the second numeric column when there are several, the only numeric
// column when there is one, and the first column otherwise.
func (d *Dataset) DefaultAxes() (x, y string) {
	names := d.df.Names()
	x = names[0]
	numeric := d.NumericColumns()
	if len(numeric) == 0 {
		return x, names[0]
	}
	i := 1
	if len(numeric)-1 < i {
		i = len(numeric) - 1
	}
	return x, numeric[i]
}

// BuildChart assembles the dataset for req. Failures are *RenderError.
func (d *Dataset) BuildChart(req ChartRequest) (Chart, error) {
	dx, dy := d.DefaultAxes()
	if req.X == "" {
		req.X = dx
	}
	if req.Y == "" {
		req.Y = dy
	}
	title, err := chartTitle(req)
	if err != nil {
		return Chart{}, &RenderError{Err: err}
	}
	for _, c := range []string{req.X, req.Y, req.Color} {
		if c != "" && !d.has(c) {
			return Chart{}, &RenderError{Err: fmt.Errorf("%w: %s", ErrUnknownColumn, c)}
		}
	}

	ch := Chart{Kind: req.Kind, Title: title, X: req.X, Color: req.Color}
	xs := values(d.df.Col(req.X))
	var ys []any
	if req.Kind != Histogram {
		ch.Y = req.Y
		ys = values(d.df.Col(req.Y))
	}

	if req.Color == "" {
		ch.Traces = []Trace{{X: xs, Y: ys}}
		return ch, nil
	}

	groups := d.df.Col(req.Color).Records()
	index := make(map[string]int)
	for i, g := range groups {
		t, ok := index[g]
		if !ok {
			t = len(ch.Traces)
			index[g] = t
			ch.Traces = append(ch.Traces, Trace{Name: g})
		}
		ch.Traces[t].X = append(ch.Traces[t].X, xs[i])
		if ys != nil {
			ch.Traces[t].Y = append(ch.Traces[t].Y, ys[i])
		}
	}
	return ch, nil
}

func chartTitle(req ChartRequest) (string, error) {
	switch req.Kind {
	case Bar, Box:
		return fmt.Sprintf("%s by %s", req.Y, req.X), nil
	case Line:
		return fmt.Sprintf("%s over %s", req.Y, req.X), nil
	case Scatter:
		return fmt.Sprintf("%s vs %s", req.Y, req.X), nil
	case Histogram:
		return fmt.Sprintf("Distribution of %s", req.X), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

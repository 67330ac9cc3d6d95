// Package oreerr defines the platform's typed error taxonomy:
// ConfigError, ParseError, TypeError, BoundsError, RequireFailure,
// ModelError, IOError, AggregationError. Each carries an optional source
// location and an underlying cause, and is matched via errors.As against
// its concrete type rather than string comparison.
package oreerr

import "fmt"

// Location is a printable source position, populated for script-engine
// errors that originate from a specific AST node.
type Location struct {
	Line, Col int
}

func (l Location) String() string {
	if l.Line == 0 && l.Col == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

// Located is implemented by every taxonomy member except IOError and
// AggregationError (which carry no location), so the top-level script
// engine `run` call can stamp a source location uniformly.
type Located interface {
	error
	WithLocation(loc Location) error
	Location() Location
}

func formatErr(category string, loc Location, msg string) string {
	if loc.Line == 0 && loc.Col == 0 {
		return fmt.Sprintf("%s: %s", category, msg)
	}
	return fmt.Sprintf("%s: %s at %s", category, msg, loc)
}

// ConfigError signals a missing required key, malformed XML, or invalid
// enum value in the configuration.
type ConfigError struct {
	Loc   Location
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string                   { return formatErr("ConfigError", e.Loc, e.Msg) }
func (e *ConfigError) Unwrap() error                   { return e.Cause }
func (e *ConfigError) Location() Location              { return e.Loc }
func (e *ConfigError) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// ParseError signals an AST parser failure; Loc is always populated.
type ParseError struct {
	Loc Location
	Msg string
}

func (e *ParseError) Error() string                   { return formatErr("ParseError", e.Loc, e.Msg) }
func (e *ParseError) Location() Location              { return e.Loc }
func (e *ParseError) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// TypeError signals the value stack carrying a variant a node cannot
// accept.
type TypeError struct {
	Loc Location
	Msg string
}

func (e *TypeError) Error() string                   { return formatErr("TypeError", e.Loc, e.Msg) }
func (e *TypeError) Location() Location              { return e.Loc }
func (e *TypeError) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// BoundsError signals an out-of-range subscript or loop bound.
type BoundsError struct {
	Loc Location
	Msg string
}

func (e *BoundsError) Error() string                   { return formatErr("BoundsError", e.Loc, e.Msg) }
func (e *BoundsError) Location() Location              { return e.Loc }
func (e *BoundsError) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// RequireFailure signals a REQUIRE predicate not universally true under
// the active mask.
type RequireFailure struct {
	Loc Location
	Msg string
}

func (e *RequireFailure) Error() string                   { return formatErr("RequireFailure", e.Loc, e.Msg) }
func (e *RequireFailure) Location() Location              { return e.Loc }
func (e *RequireFailure) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// ModelError signals the pricing model rejecting an input.
type ModelError struct {
	Loc   Location
	Msg   string
	Cause error
}

func (e *ModelError) Error() string                   { return formatErr("ModelError", e.Loc, e.Msg) }
func (e *ModelError) Unwrap() error                   { return e.Cause }
func (e *ModelError) Location() Location              { return e.Loc }
func (e *ModelError) WithLocation(loc Location) error { cp := *e; cp.Loc = loc; return &cp }

// IOError signals a cube/scenario file read/write failure.
type IOError struct {
	Msg   string
	Cause error
}

func (e *IOError) Error() string { return formatErr("IOError", Location{}, e.Msg) }
func (e *IOError) Unwrap() error { return e.Cause }

// AggregationError signals a dimension mismatch, unknown netting set, or
// divide-by-zero in allocation.
type AggregationError struct {
	Msg string
}

func (e *AggregationError) Error() string { return formatErr("AggregationError", Location{}, e.Msg) }

// Constructors.

func NewConfig(cause error, format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...), Cause: cause}
}
func NewParse(loc Location, format string, args ...any) *ParseError {
	return &ParseError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
func NewType(loc Location, format string, args ...any) *TypeError {
	return &TypeError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
func NewBounds(loc Location, format string, args ...any) *BoundsError {
	return &BoundsError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
func NewRequire(loc Location, format string, args ...any) *RequireFailure {
	return &RequireFailure{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
func NewModel(loc Location, cause error, format string, args ...any) *ModelError {
	return &ModelError{Loc: loc, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
func NewIO(cause error, format string, args ...any) *IOError {
	return &IOError{Msg: fmt.Sprintf(format, args...), Cause: cause}
}
func NewAggregation(format string, args ...any) *AggregationError {
	return &AggregationError{Msg: fmt.Sprintf(format, args...)}
}

// Locate stamps loc onto err if err implements Located (i.e. originates
// from the script engine's typed taxonomy), leaving any other error
// unchanged. Used by the top-level `run` call.
func Locate(err error, loc Location) error {
	if le, ok := err.(Located); ok {
		return le.WithLocation(loc)
	}
	return err
}

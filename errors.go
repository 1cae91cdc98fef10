package props

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProperty indicates a read, write or interception targeting a
	// name the container's schema does not declare.
	ErrUnknownProperty = errors.New("props: unknown property")
	// ErrInvalidContext indicates a construction context that does not match
	// the roles the schema expects.
	ErrInvalidContext = errors.New("props: invalid context")
	// ErrInvalidSchema indicates a malformed schema declaration.
	ErrInvalidSchema = errors.New("props: invalid schema")
	// ErrTypeMismatch indicates a typed accessor found a value of another type.
	ErrTypeMismatch = errors.New("props: type mismatch")
	// ErrMalformedRepresentation indicates input that is not a serialised
	// container object.
	ErrMalformedRepresentation = errors.New("props: malformed representation")
	// ErrUnknownSchema indicates a registry lookup for an unregistered name.
	ErrUnknownSchema = errors.New("props: unknown schema")
	// ErrDuplicateSchema indicates a second registration under the same name.
	ErrDuplicateSchema = errors.New("props: schema already registered")
	// ErrNoEvaluator indicates no expression evaluator could be resolved.
	ErrNoEvaluator = errors.New("props: evaluator not configured")
)

var errNilInterceptor = errors.New("props: interceptor is nil")

// PropertyError reports a failed operation on a single property.
type PropertyError struct {
	Op       string
	Schema   string
	Property string
	Err      error
}

func (e *PropertyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: %s %s.%s: %v", e.Op, e.Schema, e.Property, trimPrefix(e.Err))
}

func (e *PropertyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ContextError reports a construction context the schema cannot accept.
type ContextError struct {
	Schema string
	Role   string
	Reason string
}

func (e *ContextError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Role == "" {
		return fmt.Sprintf("props: invalid context for %s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("props: invalid context %q for %s: %s", e.Role, e.Schema, e.Reason)
}

func (e *ContextError) Unwrap() error {
	return ErrInvalidContext
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Schema string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: %s evaluator %s schema=%s: %v", e.Engine, describeExpression(e.Expr), e.Schema, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func unknownProperty(op, schema, name string) error {
	return &PropertyError{Op: op, Schema: schema, Property: name, Err: ErrUnknownProperty}
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "props:") {
		return err
	}
	return fmt.Errorf("props: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, schema string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Schema == "" {
			evalErr.Schema = schema
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Schema: schema,
		Err:    err,
	}
}

func trimPrefix(err error) string {
	if err == nil {
		return "<nil>"
	}
	return strings.TrimPrefix(err.Error(), "props: ")
}

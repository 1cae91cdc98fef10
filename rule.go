package props

import (
	"context"
	"errors"
	"time"
)

// OnSetRule registers an interceptor whose replacement value is the result
// of expression. The expression sees the container's own properties, each
// bound context under its role, and the write as `property` and `value`.
func (c *Container) OnSetRule(spec Spec, once, propagate bool, expression string) (*Registration, error) {
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), expression, c.schema.Name(), err)
	}
	engine := evaluatorEngineName(evaluator)
	return c.OnSet(spec, once, propagate, func(ctx context.Context, change Change) (any, error) {
		target := change.Container
		env := target.ruleEnvironment()
		env["property"] = change.Property
		env["value"] = change.Value
		env["previous"] = change.Previous
		ruleCtx := RuleContext{Snapshot: env, Schema: target.schema.Name()}.withDefaults()
		start := time.Now()
		result, evalErr := rule.Evaluate(ruleCtx)
		evalErr = wrapEvaluationError(engine, expression, ruleCtx.schemaLabel(), evalErr)
		target.log(LogEvent{Op: OpEvaluate, Property: change.Property, Duration: time.Since(start), Err: evalErr})
		return result, evalErr
	})
}

// Evaluate runs a read-only expression over the container's properties and
// bound contexts.
func (c *Container) Evaluate(expr string) (any, error) {
	return c.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr with ctx, using the container's environment when
// ctx.Snapshot is nil.
func (c *Container) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, errors.New("props: expression must not be empty")
	}
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = c.ruleEnvironment()
	}
	if ctx.Schema == "" {
		ctx.Schema = c.schema.Name()
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.schemaLabel(), evalErr)
	c.log(LogEvent{Op: OpEvaluate, Duration: time.Since(start), Err: evalErr})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (c *Container) ruleEnvironment() map[string]any {
	return c.Structure()
}

func (c *Container) resolveEvaluator() (Evaluator, error) {
	if c.cfg.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return c.cfg.evaluator, nil
}

// engineNamer is implemented by the bundled evaluators.
type engineNamer interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engine()
	}
	return "custom"
}

package props

import (
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/goliatone/go-props/pkg/identity"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator describes the serialised shape of a container schema. All
// implementations MUST be safe for concurrent use and handle a nil schema by
// returning an empty document.
type SchemaGenerator interface {
	Generate(schema *Schema) (SchemaDocument, error)
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Schema   string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) schemaLabel() string {
	if ctx.Schema != "" {
		return ctx.Schema
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures a Container at construction.
type Option func(*containerConfig)

// containerConfig holds both the settings a container keeps for its lifetime
// and the construction-only arguments (bindings, values) that are dropped
// once the container exists.
type containerConfig struct {
	idGen           identity.Generator
	logger          Logger
	hooks           activity.Hooks
	activity        *activity.Config
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	schemaGenerator SchemaGenerator
	defaults        DefaultsLoader

	bindings   []Binding
	contextMap map[string]*Container
	values     map[string]any
}

func applyOptions(opts []Option) containerConfig {
	cfg := containerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// inherit fills unset settings from a parent configuration. Construction
// arguments are never inherited.
func (cfg containerConfig) inherit(parent containerConfig) containerConfig {
	if cfg.idGen == nil {
		cfg.idGen = parent.idGen
	}
	if cfg.logger == nil {
		cfg.logger = parent.logger
	}
	if cfg.hooks == nil {
		cfg.hooks = parent.hooks.Clone()
	}
	if cfg.activity == nil && parent.activity != nil {
		copied := *parent.activity
		cfg.activity = &copied
	}
	if cfg.evaluator == nil {
		cfg.evaluator = parent.evaluator
	}
	if cfg.programCache == nil {
		cfg.programCache = parent.programCache
	}
	if cfg.functions == nil {
		cfg.functions = parent.functions
	}
	if cfg.schemaGenerator == nil {
		cfg.schemaGenerator = parent.schemaGenerator
	}
	if cfg.defaults == nil {
		cfg.defaults = parent.defaults
	}
	return cfg
}

func (cfg containerConfig) withDefaults() containerConfig {
	if cfg.idGen == nil {
		cfg.idGen = identity.Default()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.evaluator == nil {
		cfg.evaluator = cfg.defaultEvaluator()
	}
	return cfg
}

func (cfg containerConfig) defaultEvaluator() Evaluator {
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	return NewExprEvaluator(exprOpts...)
}

// settings returns the configuration without construction arguments.
func (cfg containerConfig) settings() containerConfig {
	cfg.bindings = nil
	cfg.contextMap = nil
	cfg.values = nil
	return cfg
}

func (cfg containerConfig) activityConfig() activity.Config {
	if cfg.activity != nil {
		return *cfg.activity
	}
	return activity.Config{Enabled: true, Channel: activity.DefaultChannel}
}

// WithIDGenerator configures the identity source for the container.
func WithIDGenerator(gen identity.Generator) Option {
	return func(cfg *containerConfig) {
		cfg.idGen = gen
	}
}

// WithValues supplies construction arguments applied on top of the schema
// defaults. Values are cloned.
func WithValues(values map[string]any) Option {
	return func(cfg *containerConfig) {
		if len(values) == 0 {
			return
		}
		if cfg.values == nil {
			cfg.values = make(map[string]any, len(values))
		}
		for key, value := range values {
			cfg.values[key] = value
		}
	}
}

// WithEvaluator configures the evaluator used by expression rules.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *containerConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *containerConfig) {
		cfg.programCache = cache
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *containerConfig) {
		cfg.schemaGenerator = generator
	}
}

// WithDefaultsLoader configures the source of default construction values
// consulted during deserialisation.
func WithDefaultsLoader(loader DefaultsLoader) Option {
	return func(cfg *containerConfig) {
		cfg.defaults = loader
	}
}

// WithActivityHooks attaches activity hooks to the container. Hooks are
// cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *containerConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityConfig overrides the emission defaults (enabled, channel
// "props").
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *containerConfig) {
		copied := config
		cfg.activity = &copied
	}
}

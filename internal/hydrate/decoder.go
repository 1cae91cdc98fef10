// Package hydrate turns a container's nested structure into a typed value.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-props/layering"
)

// Context identifies the container a structure was taken from.
type Context struct {
	Schema      string
	ContainerID string
}

func (c Context) label() string {
	if c.ContainerID == "" {
		return c.Schema
	}
	return c.Schema + "/" + c.ContainerID
}

// PreHook rewrites the structure before it is decoded. Returning nil keeps
// the structure it was given.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding entirely.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder hydrates container structures into T. A zero Decoder decodes with
// encoding/json field rules and no hooks.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	configure []func(*json.Decoder)
	custom    CustomDecoder[T]
}

// WithPreHook appends hook to the pre-decode chain.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook appends hook to the post-decode chain.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber keeps numbers as json.Number when T leaves them untyped.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).UseNumber)
}

// WithDisallowUnknownFields rejects structure keys T has no field for.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).DisallowUnknownFields)
}

// WithDecoderConfig hands the json.Decoder to configure before decoding.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configure = append(d.configure, configure)
		}
	}
}

// WithCustomDecoder replaces JSON decoding with decoder.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder builds a Decoder from opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode hydrates structure into T. Hooks receive a deep copy, so the
// caller's structure is never modified.
func (d *Decoder[T]) Decode(ctx Context, structure map[string]any) (T, error) {
	var zero T
	if structure == nil {
		return zero, fmt.Errorf("hydrate: structure is nil for %q", ctx.label())
	}

	current := layering.CloneSnapshot(structure)
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, err
	}

	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, structure map[string]any) (T, error) {
	var result T
	if d.custom != nil {
		result, err := d.custom(ctx, structure)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.label(), err)
		}
		return result, nil
	}

	buffer, err := json.Marshal(structure)
	if err != nil {
		return result, fmt.Errorf("hydrate: encode %q: %w", ctx.label(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configure {
		configure(dec)
	}
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
	}
	return result, nil
}

package props

import (
	"encoding/json"
	"errors"

	"github.com/goliatone/go-props/internal/hydrate"
)

// IntoSource names the container being hydrated. Hooks receive it so they
// can report or branch on where a structure came from.
type IntoSource = hydrate.Context

// IntoOption configures a single Into call.
type IntoOption[T any] func(*intoSettings[T])

type intoSettings[T any] struct {
	decoder []hydrate.DecoderOption[T]
}

// IntoWithPreHook rewrites the structure before it is decoded. Hooks run in
// registration order and see a copy of the container's structure.
func IntoWithPreHook[T any](hook func(IntoSource, map[string]any) (map[string]any, error)) IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithPreHook[T](hook))
	}
}

// IntoWithPostHook adjusts or validates the decoded value.
func IntoWithPostHook[T any](hook func(IntoSource, *T) error) IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithPostHook[T](hook))
	}
}

// IntoWithUseNumber keeps untyped numbers as json.Number.
func IntoWithUseNumber[T any]() IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithUseNumber[T]())
	}
}

// IntoWithDisallowUnknownFields fails when the structure has keys T does not
// declare.
func IntoWithDisallowUnknownFields[T any]() IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithDisallowUnknownFields[T]())
	}
}

// IntoWithDecoderConfig exposes the json.Decoder before decoding.
func IntoWithDecoderConfig[T any](configure func(*json.Decoder)) IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithDecoderConfig[T](configure))
	}
}

// IntoWithCustomDecoder replaces JSON decoding with decode.
func IntoWithCustomDecoder[T any](decode func(IntoSource, map[string]any) (T, error)) IntoOption[T] {
	return func(s *intoSettings[T]) {
		s.decoder = append(s.decoder, hydrate.WithCustomDecoder[T](decode))
	}
}

// Into decodes the container's structure, bound contexts included, into T
// using encoding/json field rules unless opts say otherwise.
func Into[T any](c *Container, opts ...IntoOption[T]) (T, error) {
	var zero T
	if c == nil {
		return zero, errors.New("props: container is nil")
	}
	settings := &intoSettings[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}
	decoder := hydrate.NewDecoder[T](settings.decoder...)
	return decoder.Decode(IntoSource{
		Schema:      c.schema.Name(),
		ContainerID: c.ID(),
	}, c.Structure())
}

// Package identity provides the identifier sources used to stamp property
// containers. Generators are injected into containers explicitly so tests can
// swap the random default for a deterministic sequence.
package identity

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces identifiers that are unique with overwhelming
// probability across calls within a process.
type Generator interface {
	Generate() string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() string

// Generate implements Generator.
func (f GeneratorFunc) Generate() string {
	if f == nil {
		return ""
	}
	return f()
}

// UUID returns a generator of random (version 4) UUID strings.
func UUID() Generator {
	return GeneratorFunc(uuid.NewString)
}

// ULID returns a generator of lexicographically sortable ULID strings.
func ULID() Generator {
	return GeneratorFunc(func() string {
		return ulid.Make().String()
	})
}

// Default returns the generator used when none is configured.
func Default() Generator {
	return UUID()
}

// Sequence returns a deterministic generator yielding prefix-1, prefix-2, ...
// It is safe for concurrent use.
func Sequence(prefix string) Generator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "id"
	}
	var counter atomic.Uint64
	return GeneratorFunc(func() string {
		return fmt.Sprintf("%s-%d", prefix, counter.Add(1))
	})
}

// Package state defines persistence-facing contracts for loading and saving
// per-scope default snapshots of container schemas, plus a resolver that
// merges them with props.Stack.
//
// Data flow:
//
//	Store -> Resolver -> props.NewStack(...).Merge() -> *props.Defaults
//
// A Resolver with Scopes set is a props.DefaultsLoader, so containers
// decoded with props.WithDefaultsLoader(resolver) fall back to stored
// defaults before schema defaults. Resolver.Capture goes the other way and
// stores a container's current values (identity excluded) for a scope.
//
// Ref.Identifier() provides a canonical storage key based on the
// system/tenant/org/team/user scope names.
package state

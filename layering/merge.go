// Package layering merges property snapshots ordered from strongest to
// weakest and deep-clones the values held in them.
package layering

import "reflect"

// MergeSnapshots composes snapshots ordered from strongest to weakest. Keys
// present in a stronger snapshot win; nested maps are merged key by key so a
// stronger layer only overrides what it sets. The result never aliases the
// inputs.
func MergeSnapshots(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		out = mergeInto(out, layers[i])
	}
	return out
}

func mergeInto(weak, strong map[string]any) map[string]any {
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := weak[key].(map[string]any)
		if strongIsMap && weakIsMap {
			weak[key] = mergeInto(CloneSnapshot(weakMap), strongMap)
			continue
		}
		weak[key] = Clone(value)
	}
	return weak
}

// CloneSnapshot returns a deep copy of snapshot. A nil snapshot yields nil.
func CloneSnapshot(snapshot map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	out := make(map[string]any, len(snapshot))
	for key, value := range snapshot {
		out[key] = Clone(value)
	}
	return out
}

// Clone deep-copies maps, slices, arrays, pointers and structs reachable from
// value. Scalars are returned as-is.
func Clone[T any](value T) T {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return value
	}
	switch typed := any(value).(type) {
	case map[string]any:
		return any(CloneSnapshot(typed)).(T)
	case []any:
		if typed == nil {
			return value
		}
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = Clone(typed[i])
		}
		return any(out).(T)
	}
	cloned := cloneValue(rv)
	if result, ok := cloned.Interface().(T); ok {
		return result
	}
	return value
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}

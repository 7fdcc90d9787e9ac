package gate

import "reflect"

// Equaler is implemented by values that define their own equality.
type Equaler interface {
	Equal(other any) bool
}

type emptyMarker struct{}

// Empty is an explicit "no state" marker a host may pass instead of a
// snapshot. [Normalize] turns it into an empty Snapshot.
var Empty any = emptyMarker{}

// Equal reports value equality between a and b. Maps, slices and structs
// are compared deeply; values implementing [Equaler] decide for themselves.
// Identity is never required.
func Equal(a, b any) bool {
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	if eq, ok := b.(Equaler); ok {
		return eq.Equal(a)
	}
	if isFunc(a) || isFunc(b) {
		// Funcs compare by code pointer.
		return funcPointer(a) == funcPointer(b)
	}
	return reflect.DeepEqual(a, b)
}

// Normalize converts the encodings a host may use for "no state" (nil,
// false, [Empty], an empty map) and plain string-keyed maps into a
// Snapshot. Anything else is wrapped under the empty key so that it still
// participates in comparisons.
func Normalize(v any) Snapshot {
	switch val := v.(type) {
	case nil:
		return Snapshot{}
	case Snapshot:
		if val == nil {
			return Snapshot{}
		}
		return val
	case map[string]any:
		if val == nil {
			return Snapshot{}
		}
		return Snapshot(val)
	case bool:
		if !val {
			return Snapshot{}
		}
	case emptyMarker:
		return Snapshot{}
	}
	return Snapshot{"": v}
}

// IsAbsent reports whether s carries no keys.
func IsAbsent(s Snapshot) bool {
	return len(s) == 0
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func funcPointer(v any) uintptr {
	if !isFunc(v) {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.IsNil() {
		return 0
	}
	return rv.Pointer()
}

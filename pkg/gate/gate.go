// Package gate decides whether a pending props/state transition warrants a
// re-render.
//
// The decision is a pure function of the previous and next snapshots. Hosts
// may call it speculatively and as often as they like:
//
//	if gate.ShouldUpdate(prevProps, nextProps, prevState, nextState) {
//	    // commit the render
//	}
//
// A reserved sentinel key, [ForceUpdateKey], forces an update whenever its
// value differs between the two state snapshots, regardless of any other
// comparison.
package gate

// ForceUpdateKey is the reserved state key carrying the commit timestamp.
// Two state snapshots whose sentinel values differ always update.
const ForceUpdateKey = "***_state_updated_at-***"

// Snapshot is an immutable view of a component's props or state.
// A nil Snapshot and an empty Snapshot are equivalent.
type Snapshot map[string]any

// Len returns the number of keys in the snapshot.
func (s Snapshot) Len() int { return len(s) }

// Has reports whether key is present.
func (s Snapshot) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Clone returns a shallow copy. Cloning a nil snapshot returns nil.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Transition pairs the previous and next props/state of one pending update.
type Transition struct {
	PrevProps Snapshot
	NextProps Snapshot
	PrevState Snapshot
	NextState Snapshot
}

// PropsChanged reports whether the props differ in key set or values.
func (t Transition) PropsChanged() bool {
	return Changed(t.PrevProps, t.NextProps)
}

// StateChanged reports whether the state differs. A differing sentinel
// counts as a change even when every other key matches.
func (t Transition) StateChanged() bool {
	if sentinelChanged(t.PrevState, t.NextState) {
		return true
	}
	return Changed(t.PrevState, t.NextState)
}

// ShouldUpdate applies the full gate to the transition.
func (t Transition) ShouldUpdate() bool {
	// The sentinel is checked before props so that it wins regardless of
	// the other comparisons.
	if sentinelChanged(t.PrevState, t.NextState) {
		return true
	}
	if Changed(t.PrevProps, t.NextProps) {
		return true
	}
	return Changed(t.PrevState, t.NextState)
}

// ShouldUpdate reports whether moving from the previous to the next
// snapshots requires a re-render.
func ShouldUpdate(prevProps, nextProps, prevState, nextState Snapshot) bool {
	return Transition{
		PrevProps: prevProps,
		NextProps: nextProps,
		PrevState: prevState,
		NextState: nextState,
	}.ShouldUpdate()
}

// Changed reports whether next differs from prev: a key was added or
// removed, or a shared key's value differs under [Equal]. Absent snapshots
// compare as empty.
func Changed(prev, next Snapshot) bool {
	if len(prev) != len(next) {
		return true
	}
	for k, pv := range prev {
		nv, ok := next[k]
		if !ok {
			return true
		}
		if !Equal(pv, nv) {
			return true
		}
	}
	return false
}

func sentinelChanged(prev, next Snapshot) bool {
	pv, pok := prev[ForceUpdateKey]
	nv, nok := next[ForceUpdateKey]
	if !pok && !nok {
		return false
	}
	if pok != nok {
		return true
	}
	return !Equal(pv, nv)
}

// Merge returns a new snapshot holding base overlaid with patch.
// Neither input is modified.
func Merge(base, patch Snapshot) Snapshot {
	out := make(Snapshot, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

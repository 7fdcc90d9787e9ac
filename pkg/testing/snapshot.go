package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/gate"
)

// UpdateSnapshotsEnv names the environment variable that makes MatchesFile
// rewrite golden files instead of comparing.
const UpdateSnapshotsEnv = "REACTBIND_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the mounted component tree.
type Snapshot struct {
	Components []*ComponentNode `json:"components"`
}

// ComponentNode is one serialized component.
type ComponentNode struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Lifecycle string           `json:"lifecycle"`
	Renders   int              `json:"renders"`
	Output    any              `json:"output,omitempty"`
	Props     map[string]any   `json:"props,omitempty"`
	State     map[string]any   `json:"state,omitempty"`
	Children  []*ComponentNode `json:"children,omitempty"`
}

// CaptureSnapshot captures every live component, roots first, children in
// mount order. IDs are stable across runs ("Counter#0", "Counter#1"), and
// the sentinel stamp is left out.
func (h *Harness) CaptureSnapshot() *Snapshot {
	counter := &typeCounter{}
	snap := &Snapshot{}
	for _, c := range h.mounted {
		if c.Parent() == nil {
			snap.Components = append(snap.Components, h.captureNode(c, counter))
		}
	}
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// REACTBIND_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between other (expected) and this snapshot.
// Returns empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(other)
	b, _ := marshalSnapshot(s)
	if bytes.Equal(a, b) {
		return ""
	}
	return LineDiff(string(a), string(b))
}

// LineDiff renders the changed lines between expected and actual, prefixed
// with "-" and "+".
func LineDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	ea, aa, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ea, aa, false), lines)

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(strings.TrimSuffix(line, "\n"))
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// --- Internal ---

// typeCounter assigns stable IDs like "Counter#0", "Counter#1".
type typeCounter struct {
	counts map[string]int
}

func (c *typeCounter) next(typeName string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	n := c.counts[typeName]
	c.counts[typeName] = n + 1
	return fmt.Sprintf("%s#%d", typeName, n)
}

func (h *Harness) captureNode(c *core.Component, counter *typeCounter) *ComponentNode {
	name := c.Type().Name()
	node := &ComponentNode{
		ID:        counter.next(name),
		Type:      name,
		Lifecycle: c.Lifecycle().String(),
		Renders:   h.RenderCount(c),
		Output:    serializeValue(h.Output(c)),
		Props:     serializeSnapshot(h.Props(c)),
		State:     serializeSnapshot(c.Store().Snapshot()),
	}
	for _, child := range h.mounted {
		if child.Parent() == c {
			node.Children = append(node.Children, h.captureNode(child, counter))
		}
	}
	return node
}

func serializeSnapshot(s gate.Snapshot) map[string]any {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		if k == gate.ForceUpdateKey {
			continue
		}
		out[k] = serializeValue(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// serializeValue makes v JSON-safe. Funcs become "<func>"; values that do
// not marshal are formatted with %v.
func serializeValue(v any) any {
	if v == nil {
		return nil
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "<func>"
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

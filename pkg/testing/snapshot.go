package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
)

// TestingT is the subset of *testing.T used by the helpers, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures a mutation list, a shadow tree, or both.
type Snapshot struct {
	Mutations []SnapshotMutation `json:"mutations,omitempty"`
	Tree      *SnapshotNode      `json:"tree,omitempty"`
}

// SnapshotMutation is the serialized form of one mutation.
type SnapshotMutation struct {
	Type      string         `json:"type"`
	Tag       int64          `json:"tag"`
	ParentTag *int64         `json:"parentTag,omitempty"`
	Index     *int           `json:"index,omitempty"`
	Component string         `json:"component,omitempty"`
	OldProps  map[string]any `json:"oldProps,omitempty"`
	NewProps  map[string]any `json:"newProps,omitempty"`
	Frame     *[4]float64    `json:"frame,omitempty"`
}

// SnapshotNode is the serialized form of one shadow node.
type SnapshotNode struct {
	Tag      int64           `json:"tag"`
	Type     string          `json:"type"`
	Frame    [4]float64      `json:"frame"`
	Props    map[string]any  `json:"props,omitempty"`
	Children []*SnapshotNode `json:"children,omitempty"`
}

// CaptureMutations snapshots a mutation list.
func CaptureMutations(list mounting.MutationList) *Snapshot {
	snap := &Snapshot{Mutations: make([]SnapshotMutation, 0, len(list))}
	for _, m := range list {
		sm := SnapshotMutation{
			Type:      m.Type.String(),
			Tag:       int64(m.Tag),
			Component: string(m.ComponentName),
			OldProps:  rawProps(m.OldProps),
			NewProps:  rawProps(m.NewProps),
		}
		switch m.Type {
		case mounting.Insert, mounting.Remove:
			parent, index := int64(m.ParentTag), m.Index
			sm.ParentTag, sm.Index = &parent, &index
		}
		switch m.Type {
		case mounting.Create, mounting.Insert, mounting.UpdateLayout:
			frame := frameOf(m.Metrics.Frame)
			sm.Frame = &frame
		}
		snap.Mutations = append(snap.Mutations, sm)
	}
	return snap
}

// CaptureTree snapshots the shadow tree under root.
func CaptureTree(root *shadow.Node) *Snapshot {
	return &Snapshot{Tree: captureNode(root)}
}

func captureNode(n *shadow.Node) *SnapshotNode {
	if n == nil {
		return nil
	}
	node := &SnapshotNode{
		Tag:   int64(n.Tag()),
		Type:  string(n.ComponentName()),
		Frame: frameOf(n.LayoutMetrics().Frame),
		Props: rawProps(n.Props()),
	}
	for _, child := range n.Children() {
		node.Children = append(node.Children, captureNode(child))
	}
	return node
}

func rawProps(p shadow.Props) map[string]any {
	if p == nil || len(p.Raw()) == 0 {
		return nil
	}
	return p.Raw()
}

func frameOf(r graphics.Rect) [4]float64 {
	return [4]float64{round2(r.Left), round2(r.Top), round2(r.Width()), round2(r.Height())}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// FABRIC_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv("FABRIC_UPDATE_SNAPSHOTS") == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: FABRIC_UPDATE_SNAPSHOTS=1 go test -run %s", path, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: FABRIC_UPDATE_SNAPSHOTS=1 go test -run %s", path, diff, t.Name())
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

// Diff returns a line diff between this snapshot and other. Returns
// empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
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

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	maxLen := max(len(expectedLines), len(actualLines))
	for i := 0; i < maxLen; i++ {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			if i < len(expectedLines) {
				fmt.Fprintf(&buf, "-%s\n", e)
			}
			if i < len(actualLines) {
				fmt.Fprintf(&buf, "+%s\n", a)
			}
		}
	}

	return buf.String()
}

package mounting

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/google/go-cmp/cmp"
)

func TestStubViewTreeMirrorsTree(t *testing.T) {
	tree := node(t, shadow.RootViewName, 1, nil, view(t, 2, view(t, 3)), view(t, 4))
	host := NewStubViewTree(tree)

	if got := host.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
	if err := host.Verify(tree); err != nil {
		t.Errorf("Verify: %v", err)
	}
	var order []shadow.Tag
	for _, child := range host.Root().Children {
		order = append(order, child.Tag)
	}
	if diff := cmp.Diff([]shadow.Tag{2, 4}, order); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

func TestStubViewTreeRejectsInvalidMutations(t *testing.T) {
	tree := node(t, shadow.RootViewName, 1, nil, view(t, 2, view(t, 3)), view(t, 4))
	fresh := view(t, 9)

	tests := []struct {
		name     string
		mutation Mutation
		want     string
	}{
		{"create existing", CreateMutation(view(t, 2)), "already exists"},
		{"delete attached", DeleteMutation(view(t, 4)), "still attached"},
		{"delete missing", DeleteMutation(fresh), "does not exist"},
		{"insert attached", InsertMutation(tree, view(t, 4), 0), "already attached"},
		{"insert missing parent", InsertMutation(fresh, view(t, 4), 0), "does not exist"},
		{"remove wrong tag", RemoveMutation(tree, view(t, 4), 0), "is 2"},
		{"remove out of range", RemoveMutation(tree, view(t, 4), 5), "out of range"},
		{"update stale props", Mutation{
			Type:     Update,
			Tag:      4,
			OldProps: mustProps(t, shadow.RawProps{"color": "red"}),
			NewProps: mustProps(t, nil),
		}, "do not match"},
		{"unknown type", Mutation{Type: 99, Tag: 1}, "unknown mutation type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := NewStubViewTree(tree)
			err := host.Apply(MutationList{tt.mutation})
			if err == nil {
				t.Fatalf("Apply(%v) succeeded", tt.mutation)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestStubViewTreeRootCannotBeDeleted(t *testing.T) {
	tree := node(t, shadow.RootViewName, 1, nil)
	host := NewStubViewTree(tree)
	if err := host.Apply(MutationList{DeleteMutation(tree)}); err == nil {
		t.Fatal("deleting the root succeeded")
	}
}

func TestStubViewTreeDetectsLeaks(t *testing.T) {
	tree := node(t, shadow.RootViewName, 1, nil)
	host := NewStubViewTree(tree)
	if err := host.Apply(MutationList{CreateMutation(view(t, 2))}); err != nil {
		t.Fatal(err)
	}
	if err := host.Verify(tree); err == nil {
		t.Error("Verify accepted a created but unattached view")
	}
}

func TestMutationJSON(t *testing.T) {
	root := node(t, shadow.RootViewName, 1, nil)
	child := node(t, shadow.ViewName, 7, shadow.RawProps{"color": "red"})

	tests := []struct {
		mutation Mutation
		keys     []string
	}{
		{CreateMutation(child), []string{"componentName", "layoutMetrics", "newProps", "tag", "type"}},
		{InsertMutation(root, child, 0), []string{"componentName", "index", "layoutMetrics", "parentTag", "tag", "type"}},
		{RemoveMutation(root, child, 3), []string{"componentName", "index", "parentTag", "tag", "type"}},
		{DeleteMutation(child), []string{"componentName", "tag", "type"}},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.mutation)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", tt.mutation, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		var keys []string
		for k := range decoded {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if diff := cmp.Diff(tt.keys, keys); diff != "" {
			t.Errorf("%s keys mismatch (-want +got):\n%s", tt.mutation.Type, diff)
		}
		if decoded["type"] != tt.mutation.Type.String() {
			t.Errorf("type = %v, want %s", decoded["type"], tt.mutation.Type)
		}
	}
}

func mustProps(t *testing.T, raw shadow.RawProps) shadow.Props {
	t.Helper()
	return node(t, shadow.ViewName, 100, raw).Props()
}

package uimanager_test

import (
	"testing"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/uimanager"
	"github.com/google/go-cmp/cmp"
)

func TestRegistryAddRemove(t *testing.T) {
	reg := uimanager.NewShadowTreeRegistry()
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})

	if err := reg.Add(tree); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(newTree(t, 1, uimanager.ShadowTreeOptions{})); !errors.Is(err, errors.ErrDuplicateSurface) {
		t.Errorf("duplicate Add: err = %v, want ErrDuplicateSurface", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	removed, err := reg.Remove(1)
	if err != nil || removed != tree {
		t.Fatalf("Remove(1) = %p, %v; want the registered tree", removed, err)
	}
	if _, err := reg.Remove(1); !errors.Is(err, errors.ErrUnknownSurface) {
		t.Errorf("second Remove: err = %v, want ErrUnknownSurface", err)
	}
}

func TestRegistryVisit(t *testing.T) {
	reg := uimanager.NewShadowTreeRegistry()
	tree := newTree(t, 5, uimanager.ShadowTreeOptions{})
	if err := reg.Add(tree); err != nil {
		t.Fatal(err)
	}

	var visited *uimanager.ShadowTree
	if err := reg.Visit(5, func(tr *uimanager.ShadowTree) { visited = tr }); err != nil {
		t.Fatal(err)
	}
	if visited != tree {
		t.Error("Visit passed the wrong tree")
	}

	called := false
	err := reg.Visit(6, func(*uimanager.ShadowTree) { called = true })
	if !errors.Is(err, errors.ErrUnknownSurface) {
		t.Errorf("err = %v, want ErrUnknownSurface", err)
	}
	if called {
		t.Error("Visit called fn for an unknown surface")
	}

	// fn may modify the registry.
	if err := reg.Visit(5, func(tr *uimanager.ShadowTree) { reg.Remove(tr.SurfaceID()) }); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Error("removal from within Visit did not take effect")
	}
}

func TestRegistryEnumerate(t *testing.T) {
	reg := uimanager.NewShadowTreeRegistry()
	for _, id := range []shadow.SurfaceID{3, 1, 2} {
		if err := reg.Add(newTree(t, id, uimanager.ShadowTreeOptions{})); err != nil {
			t.Fatal(err)
		}
	}

	var all []shadow.SurfaceID
	reg.Enumerate(func(tree *uimanager.ShadowTree) bool {
		all = append(all, tree.SurfaceID())
		return true
	})
	if diff := cmp.Diff([]shadow.SurfaceID{1, 2, 3}, all); diff != "" {
		t.Errorf("enumeration mismatch (-want +got):\n%s", diff)
	}

	var first []shadow.SurfaceID
	reg.Enumerate(func(tree *uimanager.ShadowTree) bool {
		first = append(first, tree.SurfaceID())
		return false
	})
	if len(first) != 1 {
		t.Errorf("Enumerate continued after false: %v", first)
	}
}

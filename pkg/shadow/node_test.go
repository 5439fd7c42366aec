package shadow

import (
	"testing"

	"github.com/go-drift/fabric/pkg/errors"
)

func mustCreate(t *testing.T, name ComponentName, tag Tag, raw RawProps, children ...*Node) *Node {
	t.Helper()
	node, err := DefaultRegistry().CreateShadowNode(name, tag, raw, children)
	if err != nil {
		t.Fatalf("CreateShadowNode(%s, %d): %v", name, tag, err)
	}
	return node
}

func TestCreateShadowNodeCopiesChildren(t *testing.T) {
	a := mustCreate(t, ViewName, 1, nil)
	b := mustCreate(t, ViewName, 2, nil)
	children := []*Node{a, b}
	parent := mustCreate(t, ViewName, 10, nil, children...)

	children[0] = b
	if parent.Children()[0] != a {
		t.Error("node must own its children slice")
	}
	if parent.ComponentName() != ViewName {
		t.Errorf("ComponentName = %q, want %q", parent.ComponentName(), ViewName)
	}
}


func TestUnknownComponentType(t *testing.T) {
	_, err := DefaultRegistry().CreateShadowNode("Carousel", 1, nil, nil)
	if !errors.Is(err, errors.ErrUnknownComponentType) {
		t.Fatalf("err = %v, want ErrUnknownComponentType", err)
	}
	var typed *errors.UnknownComponentTypeError
	if !errors.As(err, &typed) || typed.ComponentName != "Carousel" {
		t.Errorf("error should carry the offending name, got %v", err)
	}
}

func TestCloneWithNewPropsSharesChildren(t *testing.T) {
	child := mustCreate(t, ViewName, 2, nil)
	node := mustCreate(t, ViewName, 1, RawProps{"color": "red"}, child)

	next, err := CloneWithRawProps(node, RawProps{"color": "blue"})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := node.Props().Raw().String("color"); got != "red" {
		t.Errorf("source props mutated to %q", got)
	}
	if got, _ := next.Props().Raw().String("color"); got != "blue" {
		t.Errorf("clone color = %q, want blue", got)
	}
	if next.Tag() != node.Tag() {
		t.Error("clone must keep the tag")
	}
	if next.Children()[0] != child {
		t.Error("clone should share unchanged children")
	}
	if next.Revision() != node.Revision()+1 {
		t.Errorf("Revision = %d, want %d", next.Revision(), node.Revision()+1)
	}
}

func TestCloneWithNewChildrenLeavesSource(t *testing.T) {
	a := mustCreate(t, ViewName, 1, nil)
	b := mustCreate(t, ViewName, 2, nil)
	root := mustCreate(t, RootViewName, 100, nil, a)

	next := CloneWithNewChildren(root, []*Node{a, b})
	if len(root.Children()) != 1 {
		t.Errorf("source has %d children, want 1", len(root.Children()))
	}
	if len(next.Children()) != 2 || next.Children()[0] != a {
		t.Error("clone should carry the new children and share a")
	}
	if next.Props() != root.Props() {
		t.Error("props should be shared by reference")
	}
}

func TestCloneAlongPath(t *testing.T) {
	leaf := mustCreate(t, TextName, 3, RawProps{"text": "hi"})
	sibling := mustCreate(t, ViewName, 4, nil)
	branch := mustCreate(t, ViewName, 2, nil, leaf)
	root := mustCreate(t, RootViewName, 1, nil, branch, sibling)

	next, ok := CloneAlongPath(root, 3, func(n *Node) *Node {
		updated, err := CloneWithRawProps(n, RawProps{"text": "bye"})
		if err != nil {
			t.Fatal(err)
		}
		return updated
	})
	if !ok {
		t.Fatal("target not found")
	}
	if next == root || next.Children()[0] == branch {
		t.Error("ancestors of the change must be cloned")
	}
	if next.Children()[1] != sibling {
		t.Error("subtrees off the path must be shared")
	}
	if got := next.Find(3).Props().(*TextProps).Text; got != "bye" {
		t.Errorf("text = %q, want bye", got)
	}
	if root.Find(3) != leaf {
		t.Error("source tree must be untouched")
	}

	if _, ok := CloneAlongPath(root, 99, func(n *Node) *Node { return n }); ok {
		t.Error("missing tag should report false")
	}
}

func TestWalkAndCount(t *testing.T) {
	root := mustCreate(t, RootViewName, 1, nil,
		mustCreate(t, ViewName, 2, nil, mustCreate(t, ViewName, 3, nil)),
		mustCreate(t, ViewName, 4, nil),
	)
	var order []Tag
	root.Walk(func(n *Node) bool {
		order = append(order, n.Tag())
		return true
	})
	want := []Tag{1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if root.Count() != 4 {
		t.Errorf("Count = %d, want 4", root.Count())
	}
	if root.Find(5) != nil {
		t.Error("Find of a missing tag should be nil")
	}
}

func TestPropsEqual(t *testing.T) {
	a, _ := DefaultRegistry().CreateShadowNode(ViewName, 1, RawProps{"color": "red", "n": 1}, nil)
	b, _ := DefaultRegistry().CreateShadowNode(ViewName, 1, RawProps{"color": "red", "n": 1}, nil)
	c, _ := DefaultRegistry().CreateShadowNode(ViewName, 1, RawProps{"color": "blue"}, nil)

	if !a.Props().Equal(a.Props()) {
		t.Error("props should equal themselves")
	}
	if !a.Props().Equal(b.Props()) {
		t.Error("props with equal values should be equal")
	}
	if a.Props().Equal(c.Props()) {
		t.Error("props with different values should differ")
	}
	if !PropsEqual(nil, nil) || PropsEqual(a.Props(), nil) {
		t.Error("PropsEqual nil handling is wrong")
	}
}

func TestRawPropsMerge(t *testing.T) {
	base := RawProps{"a": 1, "b": 2}
	merged := base.Merge(RawProps{"b": 3, "a": nil, "c": 4})
	if _, ok := merged["a"]; ok {
		t.Error("nil patch value should delete the key")
	}
	if merged["b"] != 3 || merged["c"] != 4 {
		t.Errorf("merged = %v", merged)
	}
	if base["b"] != 2 {
		t.Error("Merge must not modify the receiver")
	}
}

func TestBuilderNotifiesAndAllocates(t *testing.T) {
	var created []Tag
	b := NewBuilder(DefaultRegistry(), NewTagAllocator(100), func(n *Node) {
		created = append(created, n.Tag())
	})
	first, err := b.CreateAuto(ViewName, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.CreateAuto(ViewName, nil, first)
	if err != nil {
		t.Fatal(err)
	}
	if first.Tag() != 100 || second.Tag() != 101 {
		t.Errorf("tags = %d, %d, want 100, 101", first.Tag(), second.Tag())
	}
	if len(created) != 2 {
		t.Errorf("observer saw %d nodes, want 2", len(created))
	}
	if _, err := b.Create("Nope", 5, nil); err == nil {
		t.Error("unknown type should fail")
	}
	if len(created) != 2 {
		t.Error("failed creation must not notify")
	}
}

func TestRegistryNames(t *testing.T) {
	names := DefaultRegistry().Names()
	if len(names) != len(DefaultDescriptors()) {
		t.Fatalf("got %d names, want %d", len(names), len(DefaultDescriptors()))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	if !DefaultRegistry().Has(SliderName) {
		t.Error("Slider should be registered")
	}
}

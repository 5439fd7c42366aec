package mounting

import (
	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/shadow"
)

// Diff computes the mutations that turn the tree under oldRoot into the tree
// under newRoot. Either root may be nil.
//
// Nodes are matched by tag. Within one children list the common positional
// prefix is diffed in place. Past the first mismatch every old child is
// removed, in descending old index, and every new child is inserted, in
// ascending new index. A child present in both lists is moved: it gets a
// Remove and an Insert but no Delete or Create, and its subtree is diffed.
// Indices are those of the list the mutation refers to at generation time.
//
// The list is ordered Remove, Delete, Create, Update/UpdateLayout, Insert, so
// a tag that leaves one parent and is created under another within the same
// commit is always deleted before it is re-created. Subtrees shared by
// pointer between the two trees are skipped below their root.
//
// A tag that occurs twice among the visited nodes of newRoot, shared
// subtree roots included, fails the diff with a DuplicateTagError and no
// mutations.
func Diff(oldRoot, newRoot *shadow.Node) (MutationList, error) {
	d := &differ{visited: make(map[shadow.Tag]struct{})}
	switch {
	case oldRoot == nil && newRoot == nil:
		return nil, nil
	case oldRoot == nil:
		d.createSubtree(nil, newRoot, 0)
	case newRoot == nil:
		d.removeSubtree(nil, oldRoot, 0)
	case !sameElement(oldRoot, newRoot):
		d.removeSubtree(nil, oldRoot, 0)
		d.createSubtree(nil, newRoot, 0)
	default:
		d.diffNode(oldRoot, newRoot)
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.assemble(), nil
}

type differ struct {
	removes MutationList
	deletes MutationList
	creates MutationList
	updates MutationList
	inserts MutationList

	visited map[shadow.Tag]struct{}
	err     error
}

func (d *differ) assemble() MutationList {
	total := len(d.removes) + len(d.deletes) + len(d.creates) + len(d.updates) + len(d.inserts)
	if total == 0 {
		return nil
	}
	out := make(MutationList, 0, total)
	out = append(out, d.removes...)
	out = append(out, d.deletes...)
	out = append(out, d.creates...)
	out = append(out, d.updates...)
	out = append(out, d.inserts...)
	return out
}

// visit records a tag of the new tree. It reports false once a duplicate
// has been seen.
func (d *differ) visit(node *shadow.Node) bool {
	if d.err != nil {
		return false
	}
	if _, dup := d.visited[node.Tag()]; dup {
		d.err = &errors.DuplicateTagError{Tag: int64(node.Tag())}
		return false
	}
	d.visited[node.Tag()] = struct{}{}
	return true
}

// sameElement reports whether two nodes are revisions of one element.
func sameElement(a, b *shadow.Node) bool {
	return a.Tag() == b.Tag() && a.ComponentName() == b.ComponentName()
}

func (d *differ) diffNode(old, next *shadow.Node) {
	if !d.visit(next) || old == next {
		return
	}
	if !shadow.PropsEqual(old.Props(), next.Props()) {
		d.updates = append(d.updates, UpdateMutation(old, next))
	}
	if !old.LayoutMetrics().Equal(next.LayoutMetrics()) {
		d.updates = append(d.updates, UpdateLayoutMutation(next))
	}
	d.diffChildren(old, next)
}

func (d *differ) diffChildren(old, next *shadow.Node) {
	oldChildren, newChildren := old.Children(), next.Children()
	if sharesChildren(oldChildren, newChildren) {
		return
	}

	start := 0
	for start < len(oldChildren) && start < len(newChildren) &&
		sameElement(oldChildren[start], newChildren[start]) {
		d.diffNode(oldChildren[start], newChildren[start])
		start++
	}
	if start == len(oldChildren) && start == len(newChildren) {
		return
	}

	oldRest, newRest := oldChildren[start:], newChildren[start:]
	remaining := make(map[shadow.Tag]*shadow.Node, len(newRest))
	for _, child := range newRest {
		if _, dup := remaining[child.Tag()]; dup {
			if d.err == nil {
				d.err = &errors.DuplicateTagError{Tag: int64(child.Tag())}
			}
			return
		}
		remaining[child.Tag()] = child
	}
	previous := make(map[shadow.Tag]*shadow.Node, len(oldRest))
	for _, child := range oldRest {
		previous[child.Tag()] = child
	}

	for i := len(oldRest) - 1; i >= 0; i-- {
		child := oldRest[i]
		if moved, ok := remaining[child.Tag()]; ok && sameElement(child, moved) {
			d.removes = append(d.removes, RemoveMutation(old, child, start+i))
			continue
		}
		d.removeSubtree(old, child, start+i)
	}

	for i, child := range newRest {
		if prior, ok := previous[child.Tag()]; ok && sameElement(prior, child) {
			d.inserts = append(d.inserts, InsertMutation(next, child, start+i))
			d.diffNode(prior, child)
			continue
		}
		d.createSubtree(next, child, start+i)
	}
}

// createSubtree emits Create for node and its descendants in pre-order, and
// an Insert under parent for each. A nil parent means node is a root.
func (d *differ) createSubtree(parent, node *shadow.Node, index int) {
	if !d.visit(node) {
		return
	}
	d.creates = append(d.creates, CreateMutation(node))
	if parent != nil {
		d.inserts = append(d.inserts, InsertMutation(parent, node, index))
	}
	for i, child := range node.Children() {
		d.createSubtree(node, child, i)
	}
}

// removeSubtree emits Remove and Delete for node and its descendants with
// children before their parent. A nil parent means node is a root.
func (d *differ) removeSubtree(parent, node *shadow.Node, index int) {
	children := node.Children()
	for i := len(children) - 1; i >= 0; i-- {
		d.removeSubtree(node, children[i], i)
	}
	if parent != nil {
		d.removes = append(d.removes, RemoveMutation(parent, node, index))
	}
	d.deletes = append(d.deletes, DeleteMutation(node))
}

// sharesChildren reports whether two children lists are the same slice.
func sharesChildren(a, b []*shadow.Node) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// Package shadow provides the immutable shadow node model.
//
// A shadow node describes one UI element: a stable tag, a component type,
// an immutable props value, an ordered list of children and the layout
// metrics computed for it. Nodes are never mutated after creation. A change
// anywhere in a subtree produces new nodes along the path from the root to
// the change while every untouched subtree is shared by pointer with the
// previous revision:
//
//	next, ok := shadow.CloneAlongPath(root, tag, func(n *shadow.Node) *shadow.Node {
//	    return shadow.CloneWithNewProps(n, props)
//	})
//
// Two nodes with the same tag are the same logical element at different
// revisions. The differ in package mounting relies on pointer identity of
// shared subtrees to skip them.
//
// # Component Descriptors
//
// Nodes are created by a ComponentDescriptor, looked up by component name in
// a ComponentDescriptorRegistry. The registry is built once and is read-only
// afterwards, so lookups need no locking. Asking for an unregistered name
// fails with an UnknownComponentTypeError; no default component is
// substituted.
package shadow

// Package uimanager owns the committed shadow tree of every surface and
// coordinates commits, layout and delivery of mutation lists.
//
// A ShadowTree serializes the read-diff-swap sequence of one surface. The
// ShadowTreeRegistry maps surface identifiers to trees. The Scheduler drives
// surface lifecycles and hands committed mutation lists to its delegate in
// commit order.
package uimanager

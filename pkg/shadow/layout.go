package shadow

import (
	"math"

	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
)

// boxStyle is the layout-relevant subset of a node's raw props.
type boxStyle struct {
	width, height float64 // NaN when unset
	padding       float64
	row           bool
	hidden        bool
}

func styleOf(node *Node) boxStyle {
	raw := node.Props().Raw()
	s := boxStyle{width: math.NaN(), height: math.NaN()}
	if v, ok := raw.Float("width"); ok && v >= 0 {
		s.width = v
	}
	if v, ok := raw.Float("height"); ok && v >= 0 {
		s.height = v
	}
	if v, ok := raw.Float("padding"); ok && v > 0 {
		s.padding = v
	}
	if dir, ok := raw.String("flexDirection"); ok && dir == "row" {
		s.row = true
	}
	if display, ok := raw.String("display"); ok && display == "none" {
		s.hidden = true
	}
	return s
}

// Layout computes frames for the tree under root within constraints and
// returns the laid-out tree. Nodes whose metrics and children are unchanged
// are returned as-is, so untouched subtrees keep their pointer identity.
//
// Containers stack their children vertically, or horizontally with
// flexDirection: row, inside their padding. A container takes the full
// available width when it is bounded and otherwise wraps its content. Leaf
// components are sized by their descriptor. Explicit width and height props
// override both.
func Layout(root *Node, constraints layout.Constraints, ctx layout.Context) *Node {
	if root == nil {
		return nil
	}
	laid, _ := layoutNode(root, constraints.Normalize(), graphics.Offset{}, ctx)
	return laid
}

// Measure returns the size root would take within constraints without
// producing a tree.
func Measure(root *Node, constraints layout.Constraints, ctx layout.Context) graphics.Size {
	if root == nil {
		return constraints.Normalize().Constrain(graphics.Size{})
	}
	_, size := layoutNode(root, constraints.Normalize(), graphics.Offset{}, ctx)
	return size
}

func layoutNode(node *Node, constraints layout.Constraints, origin graphics.Offset, ctx layout.Context) (*Node, graphics.Size) {
	style := styleOf(node)
	if style.hidden {
		return withLayout(node, node.children, layout.Metrics{
			Frame:  graphics.RectFromOffsetSize(origin, graphics.Size{}),
			Hidden: true,
		}), graphics.Size{}
	}

	if !math.IsNaN(style.width) {
		constraints.MinWidth = math.Min(style.width, constraints.MaxWidth)
		constraints.MaxWidth = constraints.MinWidth
	}
	if !math.IsNaN(style.height) {
		constraints.MinHeight = math.Min(style.height, constraints.MaxHeight)
		constraints.MaxHeight = constraints.MinHeight
	}

	var size graphics.Size
	children := node.children
	if intrinsic, ok := node.descriptor.Measure(node, constraints, ctx); ok {
		size = constraints.Constrain(intrinsic)
	} else {
		var content graphics.Size
		children, content = layoutChildren(node, style, constraints, ctx)
		size = graphics.Size{
			Width:  content.Width + 2*style.padding,
			Height: content.Height + 2*style.padding,
		}
		if constraints.HasBoundedWidth() {
			size.Width = constraints.MaxWidth
		}
		size = constraints.Constrain(size)
	}

	frame := graphics.RectFromOffsetSize(origin, size).RoundToPixelGrid(ctx.PointScaleFactor)
	return withLayout(node, children, layout.Metrics{Frame: frame}), size
}

func layoutChildren(node *Node, style boxStyle, constraints layout.Constraints, ctx layout.Context) ([]*Node, graphics.Size) {
	if len(node.children) == 0 {
		return node.children, graphics.Size{}
	}
	inner := constraints.Deflate(style.padding)
	laid := make([]*Node, len(node.children))
	changed := false
	var content graphics.Size
	cursor := 0.0
	for i, child := range node.children {
		var childConstraints layout.Constraints
		var origin graphics.Offset
		if style.row {
			childConstraints = layout.Constraints{MaxWidth: math.Inf(1), MaxHeight: inner.MaxHeight}
			origin = graphics.Offset{X: style.padding + cursor, Y: style.padding}
		} else {
			childConstraints = layout.Constraints{MaxWidth: inner.MaxWidth, MaxHeight: math.Inf(1)}
			origin = graphics.Offset{X: style.padding, Y: style.padding + cursor}
		}
		next, size := layoutNode(child, childConstraints, origin, ctx)
		laid[i] = next
		if next != child {
			changed = true
		}
		if style.row {
			cursor += size.Width
			content.Width = cursor
			content.Height = math.Max(content.Height, size.Height)
		} else {
			cursor += size.Height
			content.Height = cursor
			content.Width = math.Max(content.Width, size.Width)
		}
	}
	if !changed {
		return node.children, content
	}
	return laid, content
}

// withLayout returns node unchanged when neither children nor metrics moved,
// otherwise a clone carrying both.
func withLayout(node *Node, children []*Node, metrics layout.Metrics) *Node {
	sameChildren := len(children) == len(node.children) &&
		(len(children) == 0 || &children[0] == &node.children[0])
	if sameChildren && node.metrics.Equal(metrics) {
		return node
	}
	c := node.clone()
	c.children = children
	c.metrics = metrics
	return c
}

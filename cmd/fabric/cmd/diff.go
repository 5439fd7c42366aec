package cmd

import (
	"fmt"
	"os"

	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/template"
	"github.com/go-drift/fabric/pkg/uimanager"
)

func init() {
	RegisterCommand(&Command{
		Name:  "diff",
		Short: "Print the mutations between two templates",
		Long: `Build two YAML UI templates, lay both out and print the mutation list
that turns the first into the second.

Nodes without an explicit tag are numbered in document order, so the same
position in both templates gets the same tag.

Flags:
  --width N    Surface width in points (default: 390)
  --height N   Surface height in points (default: 844)
  --json       Print mutations as JSON`,
		Usage: "fabric diff <old.yaml> <new.yaml> [--width N] [--height N] [--json]",
		Run:   runDiff,
	})
}

func runDiff(args []string) error {
	var paths []string
	opts := renderOptions{width: 390, height: 844, fontScale: 1}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			opts.json = true
		case "--width", "--height":
			value, err := flagValue(args, i)
			if err != nil {
				return err
			}
			n, err := parsePositive(args[i], value)
			if err != nil {
				return err
			}
			if args[i] == "--width" {
				opts.width = n
			} else {
				opts.height = n
			}
			i++
		default:
			paths = append(paths, args[i])
		}
	}
	if len(paths) != 2 {
		return fmt.Errorf("two template paths are required\n\nUsage: fabric diff <old.yaml> <new.yaml>")
	}

	constraints := layout.Tight(graphics.Size{Width: opts.width, Height: opts.height})
	layoutCtx := layout.Context{PointScaleFactor: 1, FontSizeMultiplier: opts.fontScale}
	var roots [2]*shadow.Node
	for i, path := range paths {
		root, err := buildTemplate(path, constraints, layoutCtx)
		if err != nil {
			return err
		}
		roots[i] = root
	}

	mutations, err := mounting.Diff(roots[0], roots[1])
	if err != nil {
		return err
	}
	return printBatches([]committedBatch{{Surface: renderSurface, Mutations: mutations}}, opts.json)
}

// buildTemplate renders the template at path under a surface root and
// lays it out.
func buildTemplate(path string, constraints layout.Constraints, layoutCtx layout.Context) (*shadow.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	registry := shadow.DefaultRegistry()
	b := shadow.NewBuilder(registry, shadow.NewTagAllocator(uimanager.FirstProducerTag), nil)
	node, err := template.Render(data, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	root := node
	if node.ComponentName() != shadow.RootViewName {
		root, err = registry.CreateShadowNode(shadow.RootViewName, shadow.Tag(renderSurface), nil, []*shadow.Node{node})
		if err != nil {
			return nil, err
		}
	}
	return shadow.Layout(root, constraints, layoutCtx), nil
}

// Package template builds shadow trees from declarative UI templates.
//
// A template is a YAML document (JSON is accepted as well) describing one
// element and its descendants:
//
//	type: View
//	props:
//	  padding: 8
//	children:
//	  - type: Text
//	    tag: 7
//	    props: {text: hello}
//
// Elements without a tag get one from the builder's allocator.
package template

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/shadow"
)

// Element is one node of a parsed template.
type Element struct {
	Type     string         `yaml:"type"`
	Tag      *int64         `yaml:"tag,omitempty"`
	Props    map[string]any `yaml:"props,omitempty"`
	Children []*Element     `yaml:"children,omitempty"`
}

// Parse decodes a template document and checks that every element names a
// type.
func Parse(data []byte) (*Element, error) {
	var root Element
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &errors.FabricError{Op: "template.Parse", Kind: errors.KindTemplate, Err: err}
	}
	if err := root.validate("root"); err != nil {
		return nil, &errors.FabricError{Op: "template.Parse", Kind: errors.KindTemplate, Err: err}
	}
	return &root, nil
}

func (e *Element) validate(path string) error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%s: missing type", path)
	}
	for i, child := range e.Children {
		if child == nil {
			return fmt.Errorf("%s.children[%d]: empty element", path, i)
		}
		if err := child.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Build creates the shadow subtree described by e. Parents are assigned
// tags before their children.
func (e *Element) Build(b *shadow.Builder) (*shadow.Node, error) {
	return e.build(b, e.Type)
}

func (e *Element) build(b *shadow.Builder, path string) (*shadow.Node, error) {
	var tag shadow.Tag
	if e.Tag != nil {
		tag = shadow.Tag(*e.Tag)
	} else {
		tag = b.NextTag()
	}
	children := make([]*shadow.Node, 0, len(e.Children))
	for i, child := range e.Children {
		node, err := child.build(b, fmt.Sprintf("%s/%d:%s", path, i, child.Type))
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	node, err := b.Create(shadow.ComponentName(e.Type), tag, shadow.RawProps(e.Props), children...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return node, nil
}

// Render parses data and builds it in one step.
func Render(data []byte, b *shadow.Builder) (*shadow.Node, error) {
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return root.Build(b)
}

// Package mounting turns pairs of shadow trees into the ordered mutation
// lists a host surface applies, and provides a stub host that validates
// them.
package mounting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/shadow"
)

// MutationType is the kind of one view-tree edit.
type MutationType int

const (
	// Create instantiates a detached view for a tag.
	Create MutationType = iota + 1
	// Delete destroys a detached view.
	Delete
	// Insert attaches a view under a parent at an index.
	Insert
	// Remove detaches a view from its parent at an index.
	Remove
	// Update replaces a view's props.
	Update
	// UpdateLayout replaces a view's frame.
	UpdateLayout
)

func (t MutationType) String() string {
	switch t {
	case Create:
		return "create"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	case Update:
		return "update"
	case UpdateLayout:
		return "updateLayout"
	default:
		return fmt.Sprintf("MutationType(%d)", int(t))
	}
}

// MarshalText encodes the type by name.
func (t MutationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Mutation is one structural edit instruction for the host.
//
// ParentTag and Index are set for Insert and Remove. Index is the position
// in the new children list for Insert and in the old list for Remove.
// NewProps is set for Create and Update, OldProps for Update. Metrics is set
// for Create, Insert and UpdateLayout.
type Mutation struct {
	Type          MutationType
	ParentTag     shadow.Tag
	Tag           shadow.Tag
	Index         int
	ComponentName shadow.ComponentName
	OldProps      shadow.Props
	NewProps      shadow.Props
	Metrics       layout.Metrics
}

// CreateMutation returns the Create for node.
func CreateMutation(node *shadow.Node) Mutation {
	return Mutation{
		Type:          Create,
		Tag:           node.Tag(),
		ComponentName: node.ComponentName(),
		NewProps:      node.Props(),
		Metrics:       node.LayoutMetrics(),
	}
}

// DeleteMutation returns the Delete for node.
func DeleteMutation(node *shadow.Node) Mutation {
	return Mutation{Type: Delete, Tag: node.Tag(), ComponentName: node.ComponentName()}
}

// InsertMutation returns the Insert of child under parent at index.
func InsertMutation(parent, child *shadow.Node, index int) Mutation {
	return Mutation{
		Type:          Insert,
		ParentTag:     parent.Tag(),
		Tag:           child.Tag(),
		Index:         index,
		ComponentName: child.ComponentName(),
		Metrics:       child.LayoutMetrics(),
	}
}

// RemoveMutation returns the Remove of child from parent at index.
func RemoveMutation(parent, child *shadow.Node, index int) Mutation {
	return Mutation{
		Type:          Remove,
		ParentTag:     parent.Tag(),
		Tag:           child.Tag(),
		Index:         index,
		ComponentName: child.ComponentName(),
	}
}

// UpdateMutation returns the props Update from old to next.
func UpdateMutation(old, next *shadow.Node) Mutation {
	return Mutation{
		Type:          Update,
		Tag:           next.Tag(),
		ComponentName: next.ComponentName(),
		OldProps:      old.Props(),
		NewProps:      next.Props(),
	}
}

// UpdateLayoutMutation returns the frame update for node.
func UpdateLayoutMutation(node *shadow.Node) Mutation {
	return Mutation{
		Type:          UpdateLayout,
		Tag:           node.Tag(),
		ComponentName: node.ComponentName(),
		Metrics:       node.LayoutMetrics(),
	}
}

func (m Mutation) String() string {
	switch m.Type {
	case Insert, Remove:
		return fmt.Sprintf("%s(parent=%d, tag=%d, index=%d)", m.Type, m.ParentTag, m.Tag, m.Index)
	case Update:
		return fmt.Sprintf("%s(tag=%d, %v -> %v)", m.Type, m.Tag, rawOf(m.OldProps), rawOf(m.NewProps))
	case UpdateLayout:
		return fmt.Sprintf("%s(tag=%d, frame=%s)", m.Type, m.Tag, m.Metrics.Frame)
	default:
		return fmt.Sprintf("%s(tag=%d, %s)", m.Type, m.Tag, m.ComponentName)
	}
}

// wireMutation is the JSON shape delivered to hosts that consume mutations
// over a byte channel.
type wireMutation struct {
	Type          MutationType    `json:"type"`
	Tag           shadow.Tag      `json:"tag"`
	ParentTag     *shadow.Tag     `json:"parentTag,omitempty"`
	Index         *int            `json:"index,omitempty"`
	ComponentName string          `json:"componentName,omitempty"`
	OldProps      shadow.RawProps `json:"oldProps,omitempty"`
	NewProps      shadow.RawProps `json:"newProps,omitempty"`
	Metrics       *layout.Metrics `json:"layoutMetrics,omitempty"`
}

// MarshalJSON encodes the mutation with only the fields its type uses.
func (m Mutation) MarshalJSON() ([]byte, error) {
	w := wireMutation{
		Type:          m.Type,
		Tag:           m.Tag,
		ComponentName: string(m.ComponentName),
		OldProps:      rawOf(m.OldProps),
		NewProps:      rawOf(m.NewProps),
	}
	switch m.Type {
	case Insert, Remove:
		parent, index := m.ParentTag, m.Index
		w.ParentTag, w.Index = &parent, &index
	}
	switch m.Type {
	case Create, Insert, UpdateLayout:
		metrics := m.Metrics
		w.Metrics = &metrics
	}
	return json.Marshal(w)
}

func rawOf(p shadow.Props) shadow.RawProps {
	if p == nil {
		return nil
	}
	return p.Raw()
}

// MutationList is an ordered sequence of mutations. Later entries may refer
// to views created by earlier ones.
type MutationList []Mutation

// Count returns how many mutations of type t the list holds.
func (l MutationList) Count(t MutationType) int {
	n := 0
	for _, m := range l {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (l MutationList) String() string {
	parts := make([]string, len(l))
	for i, m := range l {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

package shadow

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"
)

// RawProps is the unstructured key-value props blob received from the
// scripting layer.
type RawProps map[string]any

// Clone returns a shallow copy of the props map.
func (r RawProps) Clone() RawProps {
	if r == nil {
		return RawProps{}
	}
	return maps.Clone(r)
}

// Merge returns a copy of r with every key of patch applied on top. A nil
// value in patch deletes the key.
func (r RawProps) Merge(patch RawProps) RawProps {
	out := r.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the string value for key.
func (r RawProps) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Float returns the numeric value for key, accepting any Go number type.
func (r RawProps) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns the boolean value for key.
func (r RawProps) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Props is the immutable, component-specific view of a node's properties.
type Props interface {
	// NativeID is the host-side element identifier, possibly empty.
	NativeID() string
	// Raw returns the props blob the value was parsed from. Callers must
	// not modify it.
	Raw() RawProps
	// Equal reports whether other carries the same values.
	Equal(other Props) bool
}

// BaseProps implements Props over a private copy of the raw blob.
// Component-specific props embed it.
type BaseProps struct {
	nativeID string
	raw      RawProps
}

// NewBaseProps copies raw and extracts the common fields.
func NewBaseProps(raw RawProps) BaseProps {
	p := BaseProps{raw: raw.Clone()}
	p.nativeID, _ = p.raw.String("nativeID")
	return p
}

func (p *BaseProps) NativeID() string { return p.nativeID }

func (p *BaseProps) Raw() RawProps { return p.raw }

// Equal compares the raw blobs by value. Typed fields are derived from the
// blob so they need no separate comparison.
func (p *BaseProps) Equal(other Props) bool {
	if other == nil {
		return false
	}
	if same, ok := other.(interface{ base() *BaseProps }); ok && same.base() == p {
		return true
	}
	return reflect.DeepEqual(p.raw, other.Raw())
}

func (p *BaseProps) base() *BaseProps { return p }

func (p *BaseProps) String() string {
	return formatRaw(p.raw)
}

// PropsEqual compares two possibly-nil props values.
func PropsEqual(a, b Props) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func formatRaw(raw RawProps) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, raw[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

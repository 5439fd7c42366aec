package template

import (
	"testing"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/google/go-cmp/cmp"
)

const sample = `
type: View
props:
  padding: 8
children:
  - type: Text
    tag: 7
    props: {text: hello, fontSize: 13}
  - type: View
    children:
      - type: Slider
        props: {value: 0.5}
`

func newBuilder(created *[]shadow.Tag) *shadow.Builder {
	return shadow.NewBuilder(shadow.DefaultRegistry(), shadow.NewTagAllocator(100), func(n *shadow.Node) {
		if created != nil {
			*created = append(*created, n.Tag())
		}
	})
}

func TestRender(t *testing.T) {
	var created []shadow.Tag
	root, err := Render([]byte(sample), newBuilder(&created))
	if err != nil {
		t.Fatal(err)
	}

	var shape []string
	root.Walk(func(n *shadow.Node) bool {
		shape = append(shape, string(n.ComponentName()))
		return true
	})
	if diff := cmp.Diff([]string{"View", "Text", "View", "Slider"}, shape); diff != "" {
		t.Errorf("tree shape mismatch (-want +got):\n%s", diff)
	}

	if root.Tag() != 100 {
		t.Errorf("root tag = %d, want 100", root.Tag())
	}
	text := root.Children()[0]
	if text.Tag() != 7 {
		t.Errorf("explicit tag = %d, want 7", text.Tag())
	}
	if got, _ := text.Props().Raw().String("text"); got != "hello" {
		t.Errorf("text = %q, want hello", got)
	}
	if got := root.Children()[1].Children()[0].Tag(); got != 102 {
		t.Errorf("slider tag = %d, want 102", got)
	}

	// Children are created before their parent.
	if diff := cmp.Diff([]shadow.Tag{7, 102, 101, 100}, created); diff != "" {
		t.Errorf("creation order mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSON(t *testing.T) {
	doc := `{"type": "RootView", "children": [{"type": "Text", "tag": 3, "props": {"text": "json"}}]}`
	root, err := Render([]byte(doc), newBuilder(nil))
	if err != nil {
		t.Fatal(err)
	}
	if root.ComponentName() != shadow.RootViewName || len(root.Children()) != 1 {
		t.Fatalf("got %s", root)
	}
}

func TestRenderUnknownType(t *testing.T) {
	doc := "type: View\nchildren:\n  - type: Carousel\n"
	_, err := Render([]byte(doc), newBuilder(nil))
	if !errors.Is(err, errors.ErrUnknownComponentType) {
		t.Fatalf("err = %v, want ErrUnknownComponentType", err)
	}
	var unknown *errors.UnknownComponentTypeError
	if !errors.As(err, &unknown) || unknown.ComponentName != "Carousel" {
		t.Errorf("err = %v, want the Carousel name", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "type: [View"},
		{"missing type", "props: {a: 1}"},
		{"missing child type", "type: View\nchildren:\n  - props: {}\n"},
		{"null child", "type: View\nchildren:\n  - null\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var fe *errors.FabricError
			if !errors.As(err, &fe) || fe.Kind != errors.KindTemplate {
				t.Errorf("err = %v, want a template FabricError", err)
			}
		})
	}
}

func TestRenderPropsError(t *testing.T) {
	doc := "type: Slider\nprops: {minimumValue: 2, maximumValue: 1}\n"
	if _, err := Render([]byte(doc), newBuilder(nil)); err == nil {
		t.Fatal("invalid slider props were accepted")
	}
}

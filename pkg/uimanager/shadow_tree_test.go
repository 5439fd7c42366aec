package uimanager_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
	fabrictest "github.com/go-drift/fabric/pkg/testing"
	"github.com/go-drift/fabric/pkg/uimanager"
	"github.com/google/go-cmp/cmp"
)

var (
	screen    = layout.Tight(graphics.Size{Width: 320, Height: 640})
	layoutCtx = layout.DefaultContext()
)

type treeRecorder struct {
	mu      sync.Mutex
	numbers []uint64
	results []uimanager.CommitResult
	inside  atomic.Int32
	overlap atomic.Bool
}

func (r *treeRecorder) ShadowTreeDidCommit(_ *uimanager.ShadowTree, result uimanager.CommitResult) {
	if r.inside.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.inside.Add(-1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers = append(r.numbers, result.Number)
	r.results = append(r.results, result)
}

func newTree(t *testing.T, id shadow.SurfaceID, opts uimanager.ShadowTreeOptions) *uimanager.ShadowTree {
	t.Helper()
	tree, err := uimanager.NewShadowTree(id, screen, layoutCtx, shadow.DefaultRegistry(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func create(t *testing.T, name shadow.ComponentName, tag shadow.Tag, raw shadow.RawProps, children ...*shadow.Node) *shadow.Node {
	t.Helper()
	n, err := shadow.DefaultRegistry().CreateShadowNode(name, tag, raw, children)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func withChildren(children ...*shadow.Node) uimanager.Transaction {
	return func(old *shadow.Node) (*shadow.Node, error) {
		return shadow.CloneWithNewChildren(old, children), nil
	}
}

func unchanged(old *shadow.Node) (*shadow.Node, error) { return old, nil }

type step struct {
	Type   mounting.MutationType
	Parent shadow.Tag
	Tag    shadow.Tag
	Index  int
}

func steps(list mounting.MutationList) []step {
	out := make([]step, len(list))
	for i, m := range list {
		out[i] = step{Type: m.Type, Parent: m.ParentTag, Tag: m.Tag, Index: m.Index}
	}
	return out
}

func TestNewShadowTree(t *testing.T) {
	tree := newTree(t, 3, uimanager.ShadowTreeOptions{})
	if got := tree.State(); got != uimanager.Uninitialized {
		t.Errorf("State() = %s, want uninitialized", got)
	}
	rev := tree.Revision()
	if rev.Number != 0 {
		t.Errorf("commit number = %d, want 0", rev.Number)
	}
	if rev.Root.Tag() != 3 || rev.Root.ComponentName() != shadow.RootViewName {
		t.Errorf("root = %s", rev.Root)
	}
	if got := rev.Root.LayoutMetrics().Frame.Size(); got != (graphics.Size{Width: 320, Height: 640}) {
		t.Errorf("root size = %v, want the screen", got)
	}
}

func TestNewShadowTreeWithoutRootDescriptor(t *testing.T) {
	_, err := uimanager.NewShadowTree(1, screen, layoutCtx, shadow.NewComponentDescriptorRegistry(), uimanager.ShadowTreeOptions{})
	if !errors.Is(err, errors.ErrUnknownComponentType) {
		t.Fatalf("err = %v, want ErrUnknownComponentType", err)
	}
}

func TestFirstCommitAlwaysSwaps(t *testing.T) {
	rec := &treeRecorder{}
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{Delegate: rec})

	first, err := tree.Commit(unchanged)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Swapped || first.Number != 1 || len(first.Mutations) != 0 {
		t.Errorf("first commit = %+v, want an empty swap to 1", first)
	}
	if got := tree.State(); got != uimanager.Active {
		t.Errorf("State() = %s, want active", got)
	}

	second, err := tree.Commit(unchanged)
	if err != nil {
		t.Fatal(err)
	}
	if second.Swapped || second.Number != 1 {
		t.Errorf("empty second commit = %+v, want no swap", second)
	}
	if diff := cmp.Diff([]uint64{1}, rec.numbers); diff != "" {
		t.Errorf("delegate commits mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitSingleChild(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})
	if _, err := tree.Commit(unchanged); err != nil {
		t.Fatal(err)
	}

	result, err := tree.Commit(withChildren(create(t, shadow.TextName, 7, shadow.RawProps{"text": "hi"})))
	if err != nil {
		t.Fatal(err)
	}
	want := []step{
		{Type: mounting.Create, Tag: 7},
		{Type: mounting.Insert, Parent: 1, Tag: 7, Index: 0},
	}
	if diff := cmp.Diff(want, steps(result.Mutations)); diff != "" {
		t.Errorf("mutations mismatch (-want +got):\n%s", diff)
	}
	if result.Number != 2 {
		t.Errorf("commit number = %d, want 2", result.Number)
	}
	if frame := result.Mutations[0].Metrics.Frame; frame.Width() == 0 || frame.Height() == 0 {
		t.Errorf("created text has no frame: %s", frame)
	}
}

func TestCommitRetriesStaleCommit(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{MaxCommitRetries: 3})
	competitor := create(t, shadow.ViewName, 2, nil)
	calls := 0

	result, err := tree.Commit(func(old *shadow.Node) (*shadow.Node, error) {
		calls++
		if calls == 1 {
			laid := shadow.Layout(shadow.CloneWithNewChildren(old, []*shadow.Node{competitor}), screen, layoutCtx)
			if _, err := tree.TryCommit(old, laid); err != nil {
				t.Fatalf("competing commit: %v", err)
			}
		}
		return shadow.CloneWithNewChildren(old, append(old.Children(), create(t, shadow.ViewName, 3, nil))), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("transaction ran %d times, want 2", calls)
	}
	if result.Number != 2 {
		t.Errorf("commit number = %d, want 2", result.Number)
	}
	if got := len(tree.Revision().Root.Children()); got != 2 {
		t.Errorf("root has %d children, want the competitor and ours", got)
	}
}

func TestCommitGivesUpAfterRetries(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{MaxCommitRetries: 2})
	calls := 0
	_, err := tree.Commit(func(old *shadow.Node) (*shadow.Node, error) {
		calls++
		laid := shadow.Layout(shadow.CloneWithNewChildren(old, []*shadow.Node{create(t, shadow.ViewName, shadow.Tag(100+calls), nil)}), screen, layoutCtx)
		if _, err := tree.TryCommit(old, laid); err != nil {
			t.Fatalf("competing commit: %v", err)
		}
		return old, nil
	})
	if !errors.Is(err, errors.ErrStaleCommit) {
		t.Fatalf("err = %v, want ErrStaleCommit", err)
	}
	if calls != 3 {
		t.Errorf("transaction ran %d times, want 3", calls)
	}
}

func TestTryCommitStale(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})
	base := tree.Revision().Root
	if _, err := tree.Commit(withChildren(create(t, shadow.ViewName, 2, nil))); err != nil {
		t.Fatal(err)
	}
	_, err := tree.TryCommit(base, base)
	var fe *errors.FabricError
	if !errors.As(err, &fe) || fe.Kind != errors.KindCommit || !errors.Is(err, errors.ErrStaleCommit) {
		t.Fatalf("err = %v, want a stale commit error", err)
	}
	if fe.Surface != 1 {
		t.Errorf("error surface = %d, want 1", fe.Surface)
	}
}

func TestCommitTransactionOutcomes(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})
	boom := errors.New("boom")
	if _, err := tree.Commit(func(*shadow.Node) (*shadow.Node, error) { return nil, boom }); err != boom {
		t.Errorf("err = %v, want the transaction's error", err)
	}

	result, err := tree.Commit(func(*shadow.Node) (*shadow.Node, error) { return nil, nil })
	if err != nil || result.Swapped {
		t.Errorf("cancelled commit = %+v, %v", result, err)
	}
	if tree.State() != uimanager.Uninitialized {
		t.Errorf("cancelled commit changed state to %s", tree.State())
	}
}

func TestCommitDuplicateTagLeavesTreeUnchanged(t *testing.T) {
	rec := &treeRecorder{}
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{Delegate: rec})
	before := tree.Revision()

	_, err := tree.Commit(withChildren(create(t, shadow.ViewName, 4, nil), create(t, shadow.TextName, 4, nil)))
	if !errors.Is(err, errors.ErrDuplicateTagInCommit) {
		t.Fatalf("err = %v, want ErrDuplicateTagInCommit", err)
	}
	if after := tree.Revision(); after != before {
		t.Error("failed commit changed the committed revision")
	}
	if len(rec.numbers) != 0 {
		t.Errorf("delegate saw %v for a failed commit", rec.numbers)
	}
}

func TestStop(t *testing.T) {
	rec := &treeRecorder{}
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{Delegate: rec})
	if _, err := tree.Commit(withChildren(create(t, shadow.ViewName, 2, nil, create(t, shadow.ViewName, 3, nil)))); err != nil {
		t.Fatal(err)
	}

	teardown := tree.Stop()
	if teardown.Count(mounting.Delete) != 2 || teardown.Count(mounting.Remove) != 2 {
		t.Errorf("teardown = %v, want both descendants removed and deleted", teardown)
	}
	if tree.State() != uimanager.Stopped {
		t.Errorf("State() = %s, want stopped", tree.State())
	}
	if again := tree.Stop(); again != nil {
		t.Errorf("second Stop returned %v", again)
	}

	_, err := tree.Commit(unchanged)
	if !errors.Is(err, errors.ErrSurfaceAlreadyStopped) {
		t.Fatalf("err = %v, want ErrSurfaceAlreadyStopped", err)
	}
	if diff := cmp.Diff([]uint64{1}, rec.numbers); diff != "" {
		t.Errorf("delegate commits mismatch (-want +got):\n%s", diff)
	}
}

func TestMeasureDoesNotCommit(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})
	if _, err := tree.Commit(withChildren(create(t, shadow.ViewName, 2, shadow.RawProps{"width": 50, "height": 30}))); err != nil {
		t.Fatal(err)
	}
	before := tree.Revision()

	got := tree.Measure(layout.Constraints{MaxWidth: 1000, MaxHeight: 1000}, layoutCtx)
	if got != (graphics.Size{Width: 1000, Height: 30}) {
		t.Errorf("Measure = %v, want 1000x30", got)
	}
	if tree.Revision() != before {
		t.Error("Measure changed the committed revision")
	}
}

func TestConstraintLayout(t *testing.T) {
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{})
	if _, err := tree.Commit(withChildren(create(t, shadow.ViewName, 2, shadow.RawProps{"height": 10}))); err != nil {
		t.Fatal(err)
	}

	narrow := layout.Tight(graphics.Size{Width: 200, Height: 640})
	result, err := tree.ConstraintLayout(narrow, layoutCtx)
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Mutations.Count(mounting.UpdateLayout); got != 2 {
		t.Errorf("got %v, want layout updates for root and child", result.Mutations)
	}
	if len(result.Mutations) != 2 {
		t.Errorf("relayout emitted more than layout updates: %v", result.Mutations)
	}
	if c, _ := tree.Constraints(); c != narrow {
		t.Errorf("stored constraints = %v, want %v", c, narrow)
	}

	again, err := tree.ConstraintLayout(narrow, layoutCtx)
	if err != nil || again.Swapped {
		t.Errorf("repeated relayout = %+v, %v; want no swap", again, err)
	}
}

func TestReorderKeepsLaidOutSubtrees(t *testing.T) {
	tree := newTree(t, 3, uimanager.ShadowTreeOptions{})
	inner := create(t, shadow.ViewName, 11, shadow.RawProps{"height": 24.0})
	a := create(t, shadow.ViewName, 10, shadow.RawProps{"padding": 8.0}, inner)
	b := create(t, shadow.ViewName, 12, shadow.RawProps{"height": 40.0})
	if _, err := tree.Commit(withChildren(a, b)); err != nil {
		t.Fatal(err)
	}
	laidInner := tree.Revision().Root.Children()[0].Children()[0]

	result, err := tree.Commit(func(old *shadow.Node) (*shadow.Node, error) {
		children := old.Children()
		return shadow.CloneWithNewChildren(old, []*shadow.Node{children[1], children[0]}), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Mutations.Count(mounting.Insert) != 2 || result.Mutations.Count(mounting.Create) != 0 {
		t.Errorf("reorder mutations = %v, want moves without creates", result.Mutations)
	}

	root := tree.Revision().Root
	if got := root.Children()[1].Children()[0]; got != laidInner {
		t.Error("untouched grandchild was rebuilt by the reorder")
	}
	fabrictest.CaptureTree(root).MatchesFile(t, "testdata/reorder_tree.json")
}

func TestConcurrentCommitsSerialize(t *testing.T) {
	const n = 50
	rec := &treeRecorder{}
	tree := newTree(t, 1, uimanager.ShadowTreeOptions{Delegate: rec, MaxCommitRetries: n})
	if _, err := tree.Commit(unchanged); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		child := create(t, shadow.ViewName, shadow.Tag(100+i), nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tree.Commit(func(old *shadow.Node) (*shadow.Node, error) {
				return shadow.CloneWithNewChildren(old, append(append([]*shadow.Node(nil), old.Children()...), child)), nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}
	}

	if rec.overlap.Load() {
		t.Error("two commits executed their swap concurrently")
	}
	want := make([]uint64, n+1)
	for i := range want {
		want[i] = uint64(i + 1)
	}
	if diff := cmp.Diff(want, rec.numbers); diff != "" {
		t.Errorf("commit numbers mismatch (-want +got):\n%s", diff)
	}
	if got := len(tree.Revision().Root.Children()); got != n {
		t.Errorf("root has %d children, want %d", got, n)
	}
}

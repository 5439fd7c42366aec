package uimanager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
)

// TreeState is the lifecycle state of a ShadowTree.
type TreeState int32

const (
	// Uninitialized trees hold only the empty root and have never committed.
	Uninitialized TreeState = iota
	// Active trees accept commits.
	Active
	// Stopped trees reject every further commit.
	Stopped
)

func (s TreeState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Transaction computes a new root from the committed one. Returning a nil
// root cancels the commit.
type Transaction func(oldRoot *shadow.Node) (*shadow.Node, error)

// Revision is one committed state of a tree.
type Revision struct {
	Number uint64
	Root   *shadow.Node
}

// CommitResult describes the outcome of a commit.
type CommitResult struct {
	Surface shadow.SurfaceID
	// Number is the commit number after the commit. It is unchanged when
	// nothing was swapped.
	Number    uint64
	Mutations mounting.MutationList
	// Swapped reports whether the committed root was replaced.
	Swapped     bool
	Root        *shadow.Node
	CommitStart time.Time
	LayoutTime  time.Duration
}

// ShadowTreeDelegate observes successful commits. It is called with the
// tree's commit lock held, so calls for one tree arrive in commit order and
// must not commit to the same tree.
type ShadowTreeDelegate interface {
	ShadowTreeDidCommit(tree *ShadowTree, result CommitResult)
}

// ShadowTreeOptions configures a ShadowTree.
type ShadowTreeOptions struct {
	// MaxCommitRetries bounds how often Commit recomputes a transaction
	// that lost the race against another commit.
	MaxCommitRetries int
	Delegate         ShadowTreeDelegate
	Clock            Clock
}

type layoutInputs struct {
	constraints layout.Constraints
	ctx         layout.Context
}

// ShadowTree is the committed shadow tree of one surface.
type ShadowTree struct {
	surfaceID  shadow.SurfaceID
	maxRetries int
	delegate   ShadowTreeDelegate
	clock      Clock

	// mu serializes the read-diff-swap sequence.
	mu       sync.Mutex
	revision atomic.Pointer[Revision]
	state    atomic.Int32
	inputs   atomic.Pointer[layoutInputs]
}

// NewShadowTree creates the tree of surfaceID with an empty root view laid
// out within constraints. The root's tag is the surface identifier.
func NewShadowTree(surfaceID shadow.SurfaceID, constraints layout.Constraints, ctx layout.Context, registry *shadow.ComponentDescriptorRegistry, opts ShadowTreeOptions) (*ShadowTree, error) {
	root, err := registry.CreateShadowNode(shadow.RootViewName, shadow.Tag(surfaceID), nil, nil)
	if err != nil {
		return nil, &errors.FabricError{Op: "uimanager.NewShadowTree", Kind: errors.KindSurface, Surface: int32(surfaceID), Err: err}
	}
	if opts.MaxCommitRetries < 0 {
		opts.MaxCommitRetries = 0
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	t := &ShadowTree{
		surfaceID:  surfaceID,
		maxRetries: opts.MaxCommitRetries,
		delegate:   opts.Delegate,
		clock:      opts.Clock,
	}
	t.inputs.Store(&layoutInputs{constraints: constraints, ctx: ctx})
	t.revision.Store(&Revision{Root: shadow.Layout(root, constraints, ctx)})
	return t, nil
}

// SurfaceID returns the surface the tree belongs to.
func (t *ShadowTree) SurfaceID() shadow.SurfaceID { return t.surfaceID }

// State returns the lifecycle state.
func (t *ShadowTree) State() TreeState { return TreeState(t.state.Load()) }

// Revision returns the committed root and its commit number.
func (t *ShadowTree) Revision() Revision { return *t.revision.Load() }

// Constraints returns the layout inputs used by the next commit.
func (t *ShadowTree) Constraints() (layout.Constraints, layout.Context) {
	in := t.inputs.Load()
	return in.constraints, in.ctx
}

// Commit runs transaction against the committed root, lays out the result
// and commits it. A transaction that lost the race against a concurrent
// commit is run again against the fresh root, up to the configured number
// of retries, after which ErrStaleCommit is returned.
func (t *ShadowTree) Commit(transaction Transaction) (CommitResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := t.commitOnce(transaction)
		if !errors.Is(err, errors.ErrStaleCommit) || attempt >= t.maxRetries {
			return result, err
		}
	}
}

func (t *ShadowTree) commitOnce(transaction Transaction) (CommitResult, error) {
	if t.State() == Stopped {
		return CommitResult{}, t.fail(errors.KindSurface, errors.ErrSurfaceAlreadyStopped)
	}
	start := t.clock.Now()
	base := t.revision.Load()
	candidate, err := transaction(base.Root)
	if err != nil {
		return CommitResult{}, err
	}
	if candidate == nil {
		return CommitResult{Surface: t.surfaceID, Number: base.Number, Root: base.Root}, nil
	}

	in := t.inputs.Load()
	layoutStart := t.clock.Now()
	laid := shadow.Layout(candidate, in.constraints, in.ctx)
	layoutTime := t.clock.Now().Sub(layoutStart)

	return t.tryCommit(base.Root, laid, start, layoutTime)
}

// TryCommit commits an already laid-out candidate computed from base. It
// fails with ErrStaleCommit when base is no longer the committed root.
func (t *ShadowTree) TryCommit(base, candidate *shadow.Node) (CommitResult, error) {
	return t.tryCommit(base, candidate, t.clock.Now(), 0)
}

func (t *ShadowTree) tryCommit(base, candidate *shadow.Node, start time.Time, layoutTime time.Duration) (CommitResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.State()
	if state == Stopped {
		return CommitResult{}, t.fail(errors.KindSurface, errors.ErrSurfaceAlreadyStopped)
	}
	current := t.revision.Load()
	if current.Root != base {
		return CommitResult{}, t.fail(errors.KindCommit, errors.ErrStaleCommit)
	}

	mutations, err := mounting.Diff(current.Root, candidate)
	if err != nil {
		return CommitResult{}, t.fail(errors.KindDiff, err)
	}
	result := CommitResult{
		Surface:     t.surfaceID,
		Number:      current.Number,
		Mutations:   mutations,
		Root:        current.Root,
		CommitStart: start,
		LayoutTime:  layoutTime,
	}
	if len(mutations) == 0 && state != Uninitialized {
		return result, nil
	}

	next := &Revision{Number: current.Number + 1, Root: candidate}
	t.revision.Store(next)
	t.state.Store(int32(Active))
	result.Number, result.Root, result.Swapped = next.Number, next.Root, true

	if t.delegate != nil {
		t.delegate.ShadowTreeDidCommit(t, result)
	}
	return result, nil
}

// Stop moves the tree to Stopped and returns the mutations that would tear
// down its views. Stopping twice returns nil the second time.
func (t *ShadowTree) Stop() mounting.MutationList {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() == Stopped {
		return nil
	}
	t.state.Store(int32(Stopped))
	root := t.revision.Load().Root
	teardown, err := mounting.Diff(root, shadow.CloneWithNewChildren(root, nil))
	if err != nil {
		return nil
	}
	return teardown
}

// Measure returns the size the committed root would take within
// constraints. It does not change the tree.
func (t *ShadowTree) Measure(constraints layout.Constraints, ctx layout.Context) graphics.Size {
	return shadow.Measure(t.revision.Load().Root, constraints, ctx)
}

// ConstraintLayout stores new layout inputs and commits a relayout of the
// committed root.
func (t *ShadowTree) ConstraintLayout(constraints layout.Constraints, ctx layout.Context) (CommitResult, error) {
	t.inputs.Store(&layoutInputs{constraints: constraints, ctx: ctx})
	return t.Commit(func(oldRoot *shadow.Node) (*shadow.Node, error) {
		return oldRoot, nil
	})
}

func (t *ShadowTree) fail(kind errors.ErrorKind, err error) error {
	return &errors.FabricError{
		Op:      "uimanager.ShadowTree.Commit",
		Kind:    kind,
		Surface: int32(t.surfaceID),
		Err:     err,
	}
}

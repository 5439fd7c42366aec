package uimanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-drift/fabric/pkg/config"
	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/template"
	"github.com/go-drift/fabric/pkg/trace"
)

// FirstProducerTag is the first tag the scheduler's builder allocates. Tags
// below it are left to surface roots and explicit template tags.
const FirstProducerTag shadow.Tag = 1 << 20

// DeliveryMode selects how a commit's mutations reach the delegate.
type DeliveryMode int

const (
	// DeliverAsync hands delivery to the dispatcher.
	DeliverAsync DeliveryMode = iota
	// DeliverSync delivers on the calling goroutine before returning. Use it
	// only from the goroutine that owns the host views.
	DeliverSync
)

func (m DeliveryMode) String() string {
	if m == DeliverSync {
		return "sync"
	}
	return "async"
}

// Surface describes a started surface.
type Surface struct {
	ID           shadow.SurfaceID
	ModuleName   string
	InitialProps shadow.RawProps
}

// SurfaceProducer builds the initial children of a surface's root. It
// stands in for the scripting layer.
type SurfaceProducer interface {
	ProduceInitialTree(ctx context.Context, surface Surface, b *shadow.Builder) ([]*shadow.Node, error)
}

// SurfaceProducerFunc adapts a function to SurfaceProducer.
type SurfaceProducerFunc func(ctx context.Context, surface Surface, b *shadow.Builder) ([]*shadow.Node, error)

func (f SurfaceProducerFunc) ProduceInitialTree(ctx context.Context, surface Surface, b *shadow.Builder) ([]*shadow.Node, error) {
	return f(ctx, surface, b)
}

// Executor runs producer-side work such as asynchronous relayouts.
type Executor interface {
	Execute(task func())
}

// Dispatcher schedules a callback on the goroutine that owns the host views.
// It reports false when the callback could not be scheduled.
type Dispatcher func(callback func()) bool

type inlineExecutor struct{}

func (inlineExecutor) Execute(task func()) { task() }

// Options configures a Scheduler. Zero fields select defaults.
type Options struct {
	// Registry resolves component names. Defaults to shadow.DefaultRegistry.
	Registry *shadow.ComponentDescriptorRegistry
	Config   *config.Config
	// Executor runs asynchronous relayouts. Defaults to running inline.
	Executor Executor
	// Dispatcher hands deliveries to the view-owning goroutine. When nil,
	// when it declines a callback, or when Config enables
	// config.FeatureInlineDelivery, delivery happens inline.
	Dispatcher Dispatcher
	// Trace receives a sample per commit. Defaults to a buffer sized by
	// Config.
	Trace    *trace.Buffer
	Clock    Clock
	Producer SurfaceProducer
}

type surfaceState struct {
	info   Surface
	outbox *outbox
}

// Scheduler coordinates surface lifecycles, commits and delivery.
type Scheduler struct {
	components *shadow.ComponentDescriptorRegistry
	trees      *ShadowTreeRegistry
	cfg        *config.Config
	executor   Executor
	dispatch   Dispatcher
	trace      *trace.Buffer
	clock      Clock
	producer   SurfaceProducer
	builder    *shadow.Builder

	delegateMu sync.RWMutex
	delegate   *delegateRegistration

	surfacesMu sync.Mutex
	surfaces   map[*ShadowTree]*surfaceState
}

// NewScheduler creates a scheduler with no surfaces.
func NewScheduler(opts Options) *Scheduler {
	if opts.Registry == nil {
		opts.Registry = shadow.DefaultRegistry()
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Executor == nil {
		opts.Executor = inlineExecutor{}
	}
	if opts.Trace == nil {
		opts.Trace = trace.NewBuffer(opts.Config.Scheduler.TraceCapacity, opts.Config.Scheduler.SlowCommitThreshold)
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Config.Feature(config.FeatureInlineDelivery) {
		opts.Dispatcher = nil
	}
	s := &Scheduler{
		components: opts.Registry,
		trees:      NewShadowTreeRegistry(),
		cfg:        opts.Config,
		executor:   opts.Executor,
		dispatch:   opts.Dispatcher,
		trace:      opts.Trace,
		clock:      opts.Clock,
		producer:   opts.Producer,
		surfaces:   make(map[*ShadowTree]*surfaceState),
	}
	s.builder = shadow.NewBuilder(opts.Registry, shadow.NewTagAllocator(FirstProducerTag), s.nodeCreated)
	return s
}

// Builder returns the builder producers use to create nodes. Nodes created
// through it are reported to the delegate.
func (s *Scheduler) Builder() *shadow.Builder { return s.builder }

// Registry returns the shadow tree registry.
func (s *Scheduler) Registry() *ShadowTreeRegistry { return s.trees }

// Trace returns the commit trace buffer.
func (s *Scheduler) Trace() *trace.Buffer { return s.trace }

// Config returns the runtime configuration.
func (s *Scheduler) Config() *config.Config { return s.cfg }

// SetDelegate installs d as the only delegate and returns a function that
// removes it again. The returned function does nothing once another
// delegate has been installed.
func (s *Scheduler) SetDelegate(d SchedulerDelegate) (unregister func()) {
	var reg *delegateRegistration
	if d != nil {
		reg = &delegateRegistration{delegate: d}
	}
	s.delegateMu.Lock()
	s.delegate = reg
	s.delegateMu.Unlock()

	return func() {
		s.delegateMu.Lock()
		if s.delegate == reg {
			s.delegate = nil
		}
		s.delegateMu.Unlock()
	}
}

// Delegate returns the current delegate, or nil.
func (s *Scheduler) Delegate() SchedulerDelegate {
	s.delegateMu.RLock()
	defer s.delegateMu.RUnlock()
	if s.delegate == nil {
		return nil
	}
	return s.delegate.delegate
}

// StartSurface creates and registers the tree of id, asks the producer for
// the initial children and commits them.
func (s *Scheduler) StartSurface(ctx context.Context, id shadow.SurfaceID, moduleName string, initialProps shadow.RawProps, constraints layout.Constraints, layoutCtx layout.Context) error {
	const op = "uimanager.Scheduler.StartSurface"
	tree, err := NewShadowTree(id, constraints, layoutCtx, s.components, ShadowTreeOptions{
		MaxCommitRetries: s.cfg.Scheduler.MaxCommitRetries,
		Delegate:         s,
		Clock:            s.clock,
	})
	if err != nil {
		return err
	}
	// The state must exist before the tree is reachable, or commits racing
	// the registration would find nowhere to queue their delivery.
	info := Surface{ID: id, ModuleName: moduleName, InitialProps: initialProps.Clone()}
	s.surfacesMu.Lock()
	s.surfaces[tree] = &surfaceState{info: info, outbox: &outbox{}}
	s.surfacesMu.Unlock()
	if err := s.trees.Add(tree); err != nil {
		s.surfacesMu.Lock()
		delete(s.surfaces, tree)
		s.surfacesMu.Unlock()
		return err
	}

	var children []*shadow.Node
	if s.producer != nil {
		children, err = s.producer.ProduceInitialTree(ctx, info, s.builder)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.discard(tree)
		return &errors.FabricError{Op: op, Kind: errors.KindSurface, Surface: int32(id), Err: err}
	}
	return s.completeRoot(op, tree, children, DeliverAsync)
}

// Surface returns the description of a started surface.
func (s *Scheduler) Surface(id shadow.SurfaceID) (Surface, bool) {
	tree, ok := s.trees.Get(id)
	if !ok {
		return Surface{}, false
	}
	state := s.state(tree)
	if state == nil {
		return Surface{}, false
	}
	return state.info, true
}

// RenderTemplateToSurface builds uiTemplate and makes it the content of the
// surface. A template whose root is a RootView contributes its children.
func (s *Scheduler) RenderTemplateToSurface(id shadow.SurfaceID, uiTemplate string) error {
	const op = "uimanager.Scheduler.RenderTemplateToSurface"
	tree, ok := s.trees.Get(id)
	if !ok {
		s.report(unknownSurface(op, id))
		return nil
	}
	root, err := template.Render([]byte(uiTemplate), s.builder)
	if err != nil {
		return err
	}
	children := []*shadow.Node{root}
	if root.ComponentName() == shadow.RootViewName {
		children = root.Children()
	}
	return s.completeRoot(op, tree, children, DeliverAsync)
}

// CompleteSurface replaces the children of the surface's root. It is the
// commit entry point of producers that rebuild the whole tree.
func (s *Scheduler) CompleteSurface(id shadow.SurfaceID, rootChildren []*shadow.Node) error {
	const op = "uimanager.Scheduler.CompleteSurface"
	tree, ok := s.trees.Get(id)
	if !ok {
		s.report(unknownSurface(op, id))
		return nil
	}
	return s.completeRoot(op, tree, rootChildren, DeliverAsync)
}

// UpdateSurface commits an arbitrary transaction to the surface.
func (s *Scheduler) UpdateSurface(id shadow.SurfaceID, transaction Transaction) error {
	const op = "uimanager.Scheduler.UpdateSurface"
	tree, ok := s.trees.Get(id)
	if !ok {
		s.report(unknownSurface(op, id))
		return nil
	}
	return s.commit(tree, transaction, DeliverAsync)
}

// UpdateNodeProps merges patch into the props of the node tagged tag.
func (s *Scheduler) UpdateNodeProps(id shadow.SurfaceID, tag shadow.Tag, patch shadow.RawProps) error {
	return s.UpdateSurface(id, func(oldRoot *shadow.Node) (*shadow.Node, error) {
		var cloneErr error
		root, found := shadow.CloneAlongPath(oldRoot, tag, func(n *shadow.Node) *shadow.Node {
			next, err := shadow.CloneWithRawProps(n, patch)
			if err != nil {
				cloneErr = err
				return n
			}
			return next
		})
		if cloneErr != nil {
			return nil, cloneErr
		}
		if !found {
			return nil, &errors.FabricError{Op: "uimanager.Scheduler.UpdateNodeProps", Kind: errors.KindCommit, Surface: int32(id), Err: fmt.Errorf("no node with tag %d", tag)}
		}
		return root, nil
	})
}

// StopSurface unregisters and stops the surface. Commits that complete
// afterwards, and deliveries still pending, are dropped.
func (s *Scheduler) StopSurface(id shadow.SurfaceID) error {
	tree, err := s.trees.Remove(id)
	if err != nil {
		s.report(err)
		return nil
	}
	tree.Stop()
	s.discard(tree)
	return nil
}

// Shutdown stops every surface.
func (s *Scheduler) Shutdown() {
	var ids []shadow.SurfaceID
	s.trees.Enumerate(func(tree *ShadowTree) bool {
		ids = append(ids, tree.SurfaceID())
		return true
	})
	for _, id := range ids {
		s.StopSurface(id)
	}
}

// ConstraintSurfaceLayout applies new layout inputs to the surface. With
// DeliverSync the relayout is committed and delivered before returning;
// with DeliverAsync it runs on the executor and is delivered through the
// dispatcher.
func (s *Scheduler) ConstraintSurfaceLayout(id shadow.SurfaceID, constraints layout.Constraints, layoutCtx layout.Context, mode DeliveryMode) error {
	const op = "uimanager.Scheduler.ConstraintSurfaceLayout"
	tree, ok := s.trees.Get(id)
	if !ok {
		s.report(unknownSurface(op, id))
		return nil
	}
	relayout := func() error {
		if _, err := tree.ConstraintLayout(constraints, layoutCtx); err != nil {
			return s.swallowStopped(err)
		}
		s.flush(tree, mode)
		return nil
	}
	if mode == DeliverSync {
		return relayout()
	}
	s.executor.Execute(func() {
		if err := relayout(); err != nil {
			s.report(err)
		}
	})
	return nil
}

// MeasureSurface returns the size the surface's content would take within
// constraints. It never commits.
func (s *Scheduler) MeasureSurface(id shadow.SurfaceID, constraints layout.Constraints, layoutCtx layout.Context) (graphics.Size, error) {
	tree, ok := s.trees.Get(id)
	if !ok {
		return graphics.Size{}, unknownSurface("uimanager.Scheduler.MeasureSurface", id)
	}
	return tree.Measure(constraints, layoutCtx), nil
}

// ShadowTreeDidCommit queues the commit for delivery and records a trace
// sample. It runs under the tree's commit lock.
func (s *Scheduler) ShadowTreeDidCommit(tree *ShadowTree, result CommitResult) {
	s.trace.Add(trace.CommitSample{
		Timestamp:    result.CommitStart.UnixMilli(),
		Surface:      int32(result.Surface),
		CommitNumber: result.Number,
		Mutations:    len(result.Mutations),
		CommitMs:     trace.Millis(s.clock.Now().Sub(result.CommitStart)),
		LayoutMs:     trace.Millis(result.LayoutTime),
	}, s.clock.Now().Sub(result.CommitStart))

	if state := s.state(tree); state != nil {
		state.outbox.push(delivery{commit: &result})
	}
}

func (s *Scheduler) completeRoot(op string, tree *ShadowTree, children []*shadow.Node, mode DeliveryMode) error {
	start := s.clock.Now()
	_, err := tree.Commit(func(oldRoot *shadow.Node) (*shadow.Node, error) {
		return shadow.CloneWithNewChildren(oldRoot, children), nil
	})
	if err != nil {
		return s.swallowStopped(err)
	}
	if state := s.state(tree); state != nil {
		state.outbox.push(delivery{transaction: &uiTransaction{
			surface:      tree.SurfaceID(),
			rootChildren: children,
			start:        start,
		}})
	}
	s.flush(tree, mode)
	return nil
}

func (s *Scheduler) commit(tree *ShadowTree, transaction Transaction, mode DeliveryMode) error {
	if _, err := tree.Commit(transaction); err != nil {
		return s.swallowStopped(err)
	}
	s.flush(tree, mode)
	return nil
}

// swallowStopped reports and drops commits that raced a surface stop.
func (s *Scheduler) swallowStopped(err error) error {
	if errors.Is(err, errors.ErrSurfaceAlreadyStopped) {
		s.report(err)
		return nil
	}
	return err
}

func (s *Scheduler) flush(tree *ShadowTree, mode DeliveryMode) {
	state := s.state(tree)
	if state == nil {
		return
	}
	drain := func() { state.outbox.drain(s.deliver) }
	if mode == DeliverSync || s.dispatch == nil || !s.dispatch(drain) {
		drain()
	}
}

func (s *Scheduler) deliver(d delivery) {
	delegate := s.Delegate()
	if delegate == nil {
		return
	}
	defer errors.Recover("uimanager.Scheduler.deliver")
	switch {
	case d.commit != nil:
		delegate.SchedulerDidFinishTransaction(d.commit.Surface, d.commit.Mutations, d.commit.Number, TransactionInfo{
			CommitStart: d.commit.CommitStart,
			LayoutTime:  d.commit.LayoutTime,
		})
	case d.transaction != nil:
		delegate.SchedulerDidFinishUITransaction(d.transaction.surface, d.transaction.rootChildren, d.transaction.start)
	}
}

func (s *Scheduler) nodeCreated(node *shadow.Node) {
	delegate := s.Delegate()
	if delegate == nil {
		return
	}
	defer errors.Recover("uimanager.Scheduler.nodeCreated")
	delegate.SchedulerDidCreateShadowNode(node)
}

func (s *Scheduler) state(tree *ShadowTree) *surfaceState {
	s.surfacesMu.Lock()
	defer s.surfacesMu.Unlock()
	return s.surfaces[tree]
}

// discard forgets a surface and drops its pending deliveries.
func (s *Scheduler) discard(tree *ShadowTree) {
	s.surfacesMu.Lock()
	state := s.surfaces[tree]
	delete(s.surfaces, tree)
	s.surfacesMu.Unlock()
	if state != nil {
		state.outbox.close()
	}
	if current, ok := s.trees.Get(tree.SurfaceID()); ok && current == tree {
		s.trees.Remove(tree.SurfaceID())
	}
}

func (s *Scheduler) report(err error) {
	var fe *errors.FabricError
	if errors.As(err, &fe) {
		errors.Report(fe)
		return
	}
	errors.ReportOp("uimanager.Scheduler", errors.KindUnknown, 0, err)
}

package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/uimanager"
)

// PropsUpdater commits a props patch produced by a native event. Its
// signature matches uimanager.Scheduler.UpdateNodeProps.
type PropsUpdater func(surface shadow.SurfaceID, tag shadow.Tag, patch shadow.RawProps) error

// MountingOptions configures a MountingManager.
type MountingOptions struct {
	// Views creates host views. Defaults to DefaultViewRegistry.
	Views *ViewRegistry
	// Channel, when set, receives every applied batch as an
	// "applyMutations" call and serves "dispatchEvent" calls from native.
	Channel *MethodChannel
	// OnPropsChanged receives the patches native events imply.
	OnPropsChanged PropsUpdater
}

type mountedSurface struct {
	root        View
	lastCommit  uint64
	lastMounted time.Time
}

// MountingManager applies delivered mutation lists to host views. It
// implements uimanager.SchedulerDelegate.
type MountingManager struct {
	views   *ViewRegistry
	channel *MethodChannel
	onProps PropsUpdater

	mu           sync.Mutex
	surfaces     map[shadow.SurfaceID]*mountedSurface
	mounted      map[shadow.Tag]View
	owner        map[shadow.Tag]shadow.SurfaceID
	preallocated map[shadow.Tag]View
}

var _ uimanager.SchedulerDelegate = (*MountingManager)(nil)

// NewMountingManager creates a manager with no mounted surfaces.
func NewMountingManager(opts MountingOptions) *MountingManager {
	if opts.Views == nil {
		opts.Views = DefaultViewRegistry()
	}
	m := &MountingManager{
		views:        opts.Views,
		channel:      opts.Channel,
		onProps:      opts.OnPropsChanged,
		surfaces:     make(map[shadow.SurfaceID]*mountedSurface),
		mounted:      make(map[shadow.Tag]View),
		owner:        make(map[shadow.Tag]shadow.SurfaceID),
		preallocated: make(map[shadow.Tag]View),
	}
	if m.channel != nil {
		m.channel.SetHandler(m.handleMethodCall)
	}
	return m
}

// mutationBatch is the payload of "applyMutations".
type mutationBatch struct {
	Surface      shadow.SurfaceID      `json:"surface"`
	CommitNumber uint64                `json:"commitNumber"`
	Mutations    mounting.MutationList `json:"mutations"`
}

// SchedulerDidFinishTransaction applies mutations to the surface's views.
// A batch that is not newer than the last applied one is ignored. Applying
// stops at the first invalid mutation.
func (m *MountingManager) SchedulerDidFinishTransaction(surface shadow.SurfaceID, mutations mounting.MutationList, commitNumber uint64, info uimanager.TransactionInfo) {
	const op = "platform.MountingManager.SchedulerDidFinishTransaction"
	err := m.apply(surface, mutations, commitNumber)
	if err != nil {
		errors.ReportOp(op, errors.KindPlatform, int32(surface), err)
		return
	}
	if m.channel == nil || len(mutations) == 0 {
		return
	}
	batch := mutationBatch{Surface: surface, CommitNumber: commitNumber, Mutations: mutations}
	if _, err := m.channel.Invoke("applyMutations", batch); err != nil {
		errors.ReportOp(op, errors.KindPlatform, int32(surface), err)
	}
}

// SchedulerDidFinishUITransaction records when the surface's content was
// last replaced.
func (m *MountingManager) SchedulerDidFinishUITransaction(surface shadow.SurfaceID, rootChildren []*shadow.Node, startCommitTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.surfaces[surface]; ok {
		s.lastMounted = startCommitTime
	}
}

// SchedulerDidCreateShadowNode creates the view for node ahead of its
// Create mutation.
func (m *MountingManager) SchedulerDidCreateShadowNode(node *shadow.Node) {
	if !m.views.Has(node.ComponentName()) {
		return
	}
	view, err := m.views.Create(node.ComponentName(), node.Tag(), node.Props())
	if err != nil {
		errors.ReportOp("platform.MountingManager.SchedulerDidCreateShadowNode", errors.KindPlatform, 0, err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, live := m.mounted[node.Tag()]; live {
		return
	}
	m.preallocated[node.Tag()] = view
}

func (m *MountingManager) apply(surface shadow.SurfaceID, mutations mounting.MutationList, commitNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.surfaceLocked(surface)
	if err != nil {
		return err
	}
	if commitNumber <= s.lastCommit {
		return fmt.Errorf("commit %d is not newer than mounted commit %d", commitNumber, s.lastCommit)
	}
	s.lastCommit = commitNumber
	for i, mutation := range mutations {
		if err := m.applyLocked(surface, mutation); err != nil {
			return fmt.Errorf("commit %d mutation %d %s: %w", commitNumber, i, mutation, err)
		}
	}
	return nil
}

func (m *MountingManager) surfaceLocked(surface shadow.SurfaceID) (*mountedSurface, error) {
	if s, ok := m.surfaces[surface]; ok {
		return s, nil
	}
	root, err := m.views.Create(shadow.RootViewName, shadow.Tag(surface), nil)
	if err != nil {
		return nil, err
	}
	s := &mountedSurface{root: root}
	m.surfaces[surface] = s
	m.mounted[root.Base().Tag()] = root
	m.owner[root.Base().Tag()] = surface
	return s, nil
}

func (m *MountingManager) applyLocked(surface shadow.SurfaceID, mutation mounting.Mutation) error {
	switch mutation.Type {
	case mounting.Create:
		if _, exists := m.mounted[mutation.Tag]; exists {
			return fmt.Errorf("view %d already exists", mutation.Tag)
		}
		view, err := m.takePreallocatedLocked(mutation)
		if err != nil {
			return err
		}
		view.Base().metrics = mutation.Metrics
		m.mounted[mutation.Tag] = view
		m.owner[mutation.Tag] = surface
	case mounting.Delete:
		view, err := m.lookupLocked(mutation.Tag)
		if err != nil {
			return err
		}
		base := view.Base()
		if base.parent != nil {
			return fmt.Errorf("view %d is still attached to %d", mutation.Tag, base.parent.Base().tag)
		}
		if len(base.children) > 0 {
			return fmt.Errorf("view %d still has %d children", mutation.Tag, len(base.children))
		}
		delete(m.mounted, mutation.Tag)
		delete(m.owner, mutation.Tag)
		view.Dispose()
	case mounting.Insert:
		parent, err := m.lookupLocked(mutation.ParentTag)
		if err != nil {
			return err
		}
		child, err := m.lookupLocked(mutation.Tag)
		if err != nil {
			return err
		}
		if err := parent.Base().insert(parent, child, mutation.Index); err != nil {
			return err
		}
		child.Base().metrics = mutation.Metrics
	case mounting.Remove:
		parent, err := m.lookupLocked(mutation.ParentTag)
		if err != nil {
			return err
		}
		if _, err := parent.Base().remove(mutation.Tag, mutation.Index); err != nil {
			return err
		}
	case mounting.Update:
		view, err := m.lookupLocked(mutation.Tag)
		if err != nil {
			return err
		}
		return view.UpdateProps(mutation.NewProps)
	case mounting.UpdateLayout:
		view, err := m.lookupLocked(mutation.Tag)
		if err != nil {
			return err
		}
		view.Base().metrics = mutation.Metrics
	default:
		return fmt.Errorf("unknown mutation type %d", mutation.Type)
	}
	return nil
}

func (m *MountingManager) takePreallocatedLocked(mutation mounting.Mutation) (View, error) {
	if view, ok := m.preallocated[mutation.Tag]; ok {
		delete(m.preallocated, mutation.Tag)
		if view.Base().ComponentName() == mutation.ComponentName {
			if err := view.UpdateProps(mutation.NewProps); err != nil {
				return nil, err
			}
			return view, nil
		}
		view.Dispose()
	}
	return m.views.Create(mutation.ComponentName, mutation.Tag, mutation.NewProps)
}

func (m *MountingManager) lookupLocked(tag shadow.Tag) (View, error) {
	view, ok := m.mounted[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrViewNotFound, tag)
	}
	return view, nil
}

// Root returns the root view of a mounted surface.
func (m *MountingManager) Root(surface shadow.SurfaceID) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surfaces[surface]
	if !ok {
		return nil, false
	}
	return s.root, true
}

// View returns the mounted view of tag.
func (m *MountingManager) View(tag shadow.Tag) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view, ok := m.mounted[tag]
	return view, ok
}

// LastCommit returns the number of the last batch applied to surface.
func (m *MountingManager) LastCommit(surface shadow.SurfaceID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.surfaces[surface]; ok {
		return s.lastCommit
	}
	return 0
}

// LastMounted returns the start time of the last commit that replaced the
// surface's content.
func (m *MountingManager) LastMounted(surface shadow.SurfaceID) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.surfaces[surface]; ok {
		return s.lastMounted
	}
	return time.Time{}
}

// Len returns the number of mounted views, roots included.
func (m *MountingManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mounted)
}

// UnmountSurface disposes every view of surface. Call it after the
// scheduler stopped the surface.
func (m *MountingManager) UnmountSurface(surface shadow.SurfaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surfaces[surface]; !ok {
		return
	}
	delete(m.surfaces, surface)
	for tag, owner := range m.owner {
		if owner != surface {
			continue
		}
		m.mounted[tag].Dispose()
		delete(m.mounted, tag)
		delete(m.owner, tag)
	}
}

// DispatchEvent routes a native event to the view of tag and commits the
// props patch it implies.
func (m *MountingManager) DispatchEvent(tag shadow.Tag, event string, args map[string]any) error {
	m.mu.Lock()
	view, ok := m.mounted[tag]
	surface := m.owner[tag]
	var patch shadow.RawProps
	var err error
	if ok {
		target, handles := view.(EventView)
		if handles {
			patch, err = target.HandleEvent(event, args)
		} else {
			err = fmt.Errorf("%w: %s views handle no events", ErrMethodNotFound, view.Base().ComponentName())
		}
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrViewNotFound, tag)
	}
	if err != nil || patch == nil || m.onProps == nil {
		return err
	}
	return m.onProps(surface, tag, patch)
}

func (m *MountingManager) handleMethodCall(method string, args any) (any, error) {
	if method != "dispatchEvent" {
		return nil, ErrMethodNotFound
	}
	call, ok := args.(map[string]any)
	if !ok {
		return nil, ErrInvalidArguments
	}
	tag, okTag := call["tag"].(float64)
	event, okEvent := call["event"].(string)
	if !okTag || !okEvent {
		return nil, ErrInvalidArguments
	}
	eventArgs, _ := call["args"].(map[string]any)
	return nil, m.DispatchEvent(shadow.Tag(tag), event, eventArgs)
}

package uimanager

import (
	"sort"
	"sync"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/shadow"
)

// ShadowTreeRegistry maps surface identifiers to their trees.
type ShadowTreeRegistry struct {
	mu    sync.RWMutex
	trees map[shadow.SurfaceID]*ShadowTree
}

// NewShadowTreeRegistry returns an empty registry.
func NewShadowTreeRegistry() *ShadowTreeRegistry {
	return &ShadowTreeRegistry{trees: make(map[shadow.SurfaceID]*ShadowTree)}
}

// Add registers tree under its surface identifier.
func (r *ShadowTreeRegistry) Add(tree *ShadowTree) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := tree.SurfaceID()
	if _, exists := r.trees[id]; exists {
		return &errors.FabricError{Op: "uimanager.ShadowTreeRegistry.Add", Kind: errors.KindSurface, Surface: int32(id), Err: errors.ErrDuplicateSurface}
	}
	r.trees[id] = tree
	return nil
}

// Remove unregisters and returns the tree of id.
func (r *ShadowTreeRegistry) Remove(id shadow.SurfaceID) (*ShadowTree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tree, ok := r.trees[id]
	if !ok {
		return nil, unknownSurface("uimanager.ShadowTreeRegistry.Remove", id)
	}
	delete(r.trees, id)
	return tree, nil
}

// Get returns the tree of id.
func (r *ShadowTreeRegistry) Get(id shadow.SurfaceID) (*ShadowTree, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[id]
	return tree, ok
}

// Visit calls fn with the tree of id. Unknown identifiers fail with
// ErrUnknownSurface without calling fn. The registry lock is not held
// while fn runs, so fn may add or remove surfaces.
func (r *ShadowTreeRegistry) Visit(id shadow.SurfaceID, fn func(*ShadowTree)) error {
	tree, ok := r.Get(id)
	if !ok {
		return unknownSurface("uimanager.ShadowTreeRegistry.Visit", id)
	}
	fn(tree)
	return nil
}

// Enumerate calls fn for every registered tree in surface order until fn
// returns false. It works on a snapshot taken when it starts.
func (r *ShadowTreeRegistry) Enumerate(fn func(*ShadowTree) bool) {
	r.mu.RLock()
	trees := make([]*ShadowTree, 0, len(r.trees))
	for _, tree := range r.trees {
		trees = append(trees, tree)
	}
	r.mu.RUnlock()

	sort.Slice(trees, func(i, j int) bool { return trees[i].SurfaceID() < trees[j].SurfaceID() })
	for _, tree := range trees {
		if !fn(tree) {
			return
		}
	}
}

// Len returns the number of registered surfaces.
func (r *ShadowTreeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trees)
}

func unknownSurface(op string, id shadow.SurfaceID) error {
	return &errors.FabricError{Op: op, Kind: errors.KindSurface, Surface: int32(id), Err: errors.ErrUnknownSurface}
}

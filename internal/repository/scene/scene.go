// Package scene keeps per-mesh visibility for a headless renderer.
// The visible set is served to browser renderers, which apply it.
package scene

import (
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Scene is a set of mesh ids with a visible subset.
type Scene struct {
	mu      sync.RWMutex
	all     *roaring.Bitmap
	visible *roaring.Bitmap
}

// New creates a scene with every mesh visible. Ids outside the uint32
// range are ignored.
func New(meshIDs []int) *Scene {
	all := roaring.New()
	for _, id := range meshIDs {
		if fits(id) {
			all.Add(uint32(id))
		}
	}
	return &Scene{all: all, visible: all.Clone()}
}

// MeshIDs lists every mesh in ascending order.
func (s *Scene) MeshIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toInts(s.all)
}

// SetVisible toggles one mesh. Unknown meshes are ignored.
func (s *Scene) SetVisible(meshID int, visible bool) {
	if !fits(meshID) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uint32(meshID)
	if !s.all.Contains(id) {
		return
	}
	if visible {
		s.visible.Add(id)
	} else {
		s.visible.Remove(id)
	}
}

// SetAll shows or hides every mesh.
func (s *Scene) SetAll(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if visible {
		s.visible = s.all.Clone()
	} else {
		s.visible.Clear()
	}
}

// Visible lists visible meshes in ascending order.
func (s *Scene) Visible() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toInts(s.visible)
}

// VisibleCount returns the number of visible meshes.
func (s *Scene) VisibleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.visible.GetCardinality())
}

func fits(id int) bool { return id >= 0 && uint64(id) <= math.MaxUint32 }

func toInts(bm *roaring.Bitmap) []int {
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

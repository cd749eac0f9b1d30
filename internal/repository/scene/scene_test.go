package scene

import (
	"slices"
	"testing"
)

func TestScene_StartsAllVisible(t *testing.T) {
	s := New([]int{30, 10, 20, 10, -1})

	if got := s.MeshIDs(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Fatalf("MeshIDs = %v", got)
	}
	if got := s.Visible(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Fatalf("Visible = %v", got)
	}
}

func TestScene_SetVisible(t *testing.T) {
	s := New([]int{1, 2, 3})

	s.SetVisible(2, false)
	s.SetVisible(99, true)

	if got := s.Visible(); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("Visible = %v, want [1 3]", got)
	}
	if s.VisibleCount() != 2 {
		t.Errorf("VisibleCount = %d, want 2", s.VisibleCount())
	}
}

func TestScene_SetAll(t *testing.T) {
	s := New([]int{1, 2, 3})

	s.SetAll(false)
	if s.VisibleCount() != 0 {
		t.Fatalf("expected nothing visible, got %v", s.Visible())
	}
	s.SetVisible(3, true)
	s.SetAll(true)
	if got := s.Visible(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("Visible = %v", got)
	}
}

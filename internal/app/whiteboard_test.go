package app

import (
	"errors"
	"testing"

	"github.com/groupdesk/realtime/internal/domain"
)

func pts(n int) []domain.Point {
	out := make([]domain.Point, n)
	for i := range out {
		out[i] = domain.Point{X: float64(i), Y: float64(i * 2)}
	}
	return out
}

func penElement(id string, n int) domain.Element {
	return domain.Element{
		ID:     domain.ElementID(id),
		Type:   domain.ElementPen,
		Points: pts(n),
		Color:  "#000000",
		Size:   2,
	}
}

func TestWhiteboardAddRejectsDuplicate(t *testing.T) {
	wb := NewWhiteboardLog()

	if err := wb.Add("wb1", penElement("e1", 2)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := wb.Add("wb1", penElement("e1", 5)); !errors.Is(err, ErrDuplicateElement) {
		t.Errorf("second add err = %v, want ErrDuplicateElement", err)
	}
	if got := len(wb.Snapshot("wb1")); got != 1 {
		t.Errorf("snapshot holds %d elements, want 1", got)
	}
}

func TestWhiteboardPointMerge(t *testing.T) {
	wb := NewWhiteboardLog()
	if err := wb.Add("wb1", penElement("e1", 2)); err != nil {
		t.Fatal(err)
	}

	points := func() []domain.Point {
		snap := wb.Snapshot("wb1")
		if len(snap) != 1 {
			t.Fatalf("snapshot holds %d elements, want 1", len(snap))
		}
		return snap[0].Points
	}

	t.Run("longer array replaces", func(t *testing.T) {
		if !wb.Update("wb1", "e1", domain.ElementPatch{Points: pts(5)}) {
			t.Fatal("update reported untracked")
		}
		if got := len(points()); got != 5 {
			t.Errorf("points = %d, want 5", got)
		}
	})

	t.Run("stale shorter array does not truncate", func(t *testing.T) {
		wb.Update("wb1", "e1", domain.ElementPatch{Points: pts(3)})
		if got := len(points()); got != 5 {
			t.Errorf("points = %d after stale update, want 5", got)
		}
	})

	t.Run("equal length is a no-op", func(t *testing.T) {
		wb.Update("wb1", "e1", domain.ElementPatch{Points: pts(5)})
		if got := len(points()); got != 5 {
			t.Errorf("points = %d, want 5", got)
		}
	})

	t.Run("scalar fields always overwrite", func(t *testing.T) {
		x, color := 42.5, "#ff0000"
		wb.Update("wb1", "e1", domain.ElementPatch{X: &x, Color: &color})
		snap := wb.Snapshot("wb1")
		if snap[0].X != 42.5 || snap[0].Color != "#ff0000" {
			t.Errorf("got x=%v color=%s, want 42.5 #ff0000", snap[0].X, snap[0].Color)
		}
	})
}

func TestWhiteboardUpdateUntracked(t *testing.T) {
	wb := NewWhiteboardLog()
	if wb.Update("wb1", "ghost", domain.ElementPatch{Points: pts(3)}) {
		t.Error("update of unknown element reported tracked")
	}
}

func TestWhiteboardDeleteIdempotent(t *testing.T) {
	wb := NewWhiteboardLog()
	if err := wb.Add("wb1", penElement("e1", 1)); err != nil {
		t.Fatal(err)
	}

	if !wb.Delete("wb1", "e1") {
		t.Error("first delete reported untracked")
	}
	if wb.Delete("wb1", "e1") {
		t.Error("second delete reported tracked")
	}
	if got := len(wb.Snapshot("wb1")); got != 0 {
		t.Errorf("snapshot holds %d elements, want 0", got)
	}
}

func TestWhiteboardSnapshotOrder(t *testing.T) {
	wb := NewWhiteboardLog()
	for _, id := range []string{"e1", "e2", "e3"} {
		if err := wb.Add("wb1", penElement(id, 1)); err != nil {
			t.Fatal(err)
		}
	}
	wb.Delete("wb1", "e2")

	snap := wb.Snapshot("wb1")
	if len(snap) != 2 || snap[0].ID != "e1" || snap[1].ID != "e3" {
		t.Errorf("snapshot order = %v, want [e1 e3]", snap)
	}
}

func TestWhiteboardSnapshotIsCopy(t *testing.T) {
	wb := NewWhiteboardLog()
	if err := wb.Add("wb1", penElement("e1", 3)); err != nil {
		t.Fatal(err)
	}

	snap := wb.Snapshot("wb1")
	snap[0].Points[0].X = 999

	if wb.Snapshot("wb1")[0].Points[0].X == 999 {
		t.Error("mutating a snapshot leaked into the log")
	}
}

func TestWhiteboardClearAndForget(t *testing.T) {
	wb := NewWhiteboardLog()
	if err := wb.Add("wb1", penElement("e1", 1)); err != nil {
		t.Fatal(err)
	}

	wb.Clear("wb1")
	if got := len(wb.Snapshot("wb1")); got != 0 {
		t.Errorf("snapshot holds %d elements after clear, want 0", got)
	}

	// After a clear the same id is a fresh element again.
	if err := wb.Add("wb1", penElement("e1", 1)); err != nil {
		t.Errorf("re-add after clear: %v", err)
	}

	wb.Forget("wb1")
	if err := wb.Add("wb1", penElement("e1", 1)); err != nil {
		t.Errorf("re-add after forget: %v", err)
	}
}

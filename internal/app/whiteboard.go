package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/domain"
)

// ErrDuplicateElement guards against duplicate relay of the same
// element id from network retries.
var ErrDuplicateElement = errors.New("element id already exists")

type board struct {
	order    []domain.ElementID
	elements map[domain.ElementID]*domain.Element
}

// WhiteboardLog keeps the ordered element log of each live whiteboard
// room, enough to serve join snapshots and to de-duplicate adds.
// Canonical persistence belongs to the external autosave/versioning
// path; when a room empties the log is forgotten and a reconnecting
// client replays from its last snapshot.
type WhiteboardLog struct {
	mu     sync.Mutex
	boards map[string]*board
}

func NewWhiteboardLog() *WhiteboardLog {
	return &WhiteboardLog{boards: make(map[string]*board)}
}

func (w *WhiteboardLog) boardLocked(whiteboardID string) *board {
	b, ok := w.boards[whiteboardID]
	if !ok {
		b = &board{elements: make(map[domain.ElementID]*domain.Element)}
		w.boards[whiteboardID] = b
	}
	return b
}

// Add appends a new element. A second add with an id already in the
// log is rejected so retried deliveries are relayed exactly once.
func (w *WhiteboardLog) Add(whiteboardID string, el domain.Element) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.boardLocked(whiteboardID)
	if _, exists := b.elements[el.ID]; exists {
		return ErrDuplicateElement
	}
	stored := el
	stored.Points = append([]domain.Point(nil), el.Points...)
	b.elements[el.ID] = &stored
	b.order = append(b.order, el.ID)
	return nil
}

// Update merges a partial update into an element. For in-progress
// strokes the incoming point array is prefix-extended: a longer array
// replaces the held one wholesale, a shorter or equal one adds nothing.
// This tolerates out-of-order delivery of point batches without losing
// or duplicating points. An untracked element id reports tracked=false;
// the caller still relays (the log may have been cleared concurrently).
func (w *WhiteboardLog) Update(whiteboardID string, id domain.ElementID, patch domain.ElementPatch) (tracked bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.boards[whiteboardID]
	if !ok {
		return false
	}
	el, ok := b.elements[id]
	if !ok {
		return false
	}

	if len(patch.Points) > len(el.Points) {
		el.Points = append([]domain.Point(nil), patch.Points...)
	}
	if patch.X != nil {
		el.X = *patch.X
	}
	if patch.Y != nil {
		el.Y = *patch.Y
	}
	if patch.Width != nil {
		el.Width = *patch.Width
	}
	if patch.Height != nil {
		el.Height = *patch.Height
	}
	if patch.Text != nil {
		el.Text = *patch.Text
	}
	if patch.Color != nil {
		el.Color = *patch.Color
	}
	if patch.Size != nil {
		el.Size = *patch.Size
	}
	if patch.Timestamp != nil {
		el.Timestamp = *patch.Timestamp
	}
	return true
}

// Delete removes an element. Deleting an absent id is a no-op.
func (w *WhiteboardLog) Delete(whiteboardID string, id domain.ElementID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.boards[whiteboardID]
	if !ok {
		return false
	}
	if _, ok := b.elements[id]; !ok {
		return false
	}
	delete(b.elements, id)
	for i, eid := range b.order {
		if eid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every element of a whiteboard.
func (w *WhiteboardLog) Clear(whiteboardID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.boards[whiteboardID]; ok {
		b.order = nil
		b.elements = make(map[domain.ElementID]*domain.Element)
	}
}

// Snapshot returns the element log in insertion order, for the
// whiteboard_joined reply.
func (w *WhiteboardLog) Snapshot(whiteboardID string) []domain.Element {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.boards[whiteboardID]
	if !ok {
		return []domain.Element{}
	}
	out := make([]domain.Element, 0, len(b.order))
	for _, id := range b.order {
		el := b.elements[id]
		cp := *el
		cp.Points = append([]domain.Point(nil), el.Points...)
		out = append(out, cp)
	}
	return out
}

// Forget discards a whiteboard's log after its room emptied.
func (w *WhiteboardLog) Forget(whiteboardID string) {
	w.mu.Lock()
	delete(w.boards, whiteboardID)
	w.mu.Unlock()
	log.Debug().Str("module", "app.whiteboard").Str("whiteboard", whiteboardID).Msg("log forgotten")
}

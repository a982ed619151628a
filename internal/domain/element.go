package domain

type ElementID string

type ElementType string

const (
	ElementPen    ElementType = "pen"
	ElementEraser ElementType = "eraser"
	ElementRect   ElementType = "rectangle"
	ElementCircle ElementType = "circle"
	ElementText   ElementType = "text"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is one whiteboard primitive. Ids are client-generated and
// unique within a whiteboard; Timestamp is the client's local clock.
type Element struct {
	ID        ElementID   `json:"id"`
	Type      ElementType `json:"type"`
	Points    []Point     `json:"points,omitempty"`
	X         float64     `json:"x,omitempty"`
	Y         float64     `json:"y,omitempty"`
	Width     float64     `json:"width,omitempty"`
	Height    float64     `json:"height,omitempty"`
	Text      string      `json:"text,omitempty"`
	Color     string      `json:"color,omitempty"`
	Size      float64     `json:"size,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Author    UserID      `json:"author,omitempty"`
}

// ElementPatch is a partial update for an element. Nil pointers mean
// "leave as is"; Points carries the prefix-extended point array of an
// in-progress stroke.
type ElementPatch struct {
	Points    []Point  `json:"points,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Size      *float64 `json:"size,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

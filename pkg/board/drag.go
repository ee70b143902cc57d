package board

// Drag is the per-gesture drag state: either Idle or Dragging.
type Drag interface {
	isDrag()
}

// Idle means no gesture is in progress. Drops are ignored.
type Idle struct{}

// Dragging records the token being moved and the blank it was lifted from
// ("" when it came from the pool).
type Dragging struct {
	TokenID     string `json:"token_id"`
	SourceBlank string `json:"source_blank,omitempty"`
}

func (Idle) isDrag()     {}
func (Dragging) isDrag() {}

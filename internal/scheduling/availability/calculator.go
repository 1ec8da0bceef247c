// Package availability selects the slots a customer may currently book.
package availability

import (
	"sort"

	"nailbook/internal/scheduling/overlay"
	"nailbook/internal/scheduling/timegrid"
	"nailbook/pkg/model"
)

type Query struct {
	// ResourceID restricts results to one resource when non-nil. A pointer to
	// "" selects slots of a single-resource deployment.
	ResourceID *string
	FromDate   string
}

type Calculator struct {
	seq *timegrid.Sequence
}

func NewCalculator(seq *timegrid.Sequence) *Calculator {
	return &Calculator{seq: seq}
}

// Filter returns the bookable subset of slots, ordered by date and then by
// position in the time sequence. The input slice is not modified.
func (c *Calculator) Filter(slots []*model.Slot, q Query, blocked *overlay.Overlay) []*model.Slot {
	out := make([]*model.Slot, 0, len(slots))
	for _, s := range slots {
		if c.Bookable(s, q, blocked) {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return c.position(out[i].Time) < c.position(out[j].Time)
	})
	return out
}

func (c *Calculator) Bookable(s *model.Slot, q Query, blocked *overlay.Overlay) bool {
	switch {
	case s == nil:
		return false
	case s.Status != model.SlotStatusAvailable:
		return false
	case s.IsHidden:
		return false
	case s.Date < q.FromDate:
		return false
	case q.ResourceID != nil && s.ResourceID != *q.ResourceID:
		return false
	case blocked.IsBlocked(s.Date):
		return false
	}
	return true
}

// position sorts times missing from the sequence after every known time.
func (c *Calculator) position(t string) int {
	if c.seq == nil {
		return 0
	}
	if i := c.seq.Index(t); i >= 0 {
		return i
	}
	return c.seq.Len()
}

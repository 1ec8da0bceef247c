// Package chain turns an anchor slot and a required slot count into the
// ordered run of following slots a multi-slot service must claim.
package chain

import (
	"nailbook/internal/scheduling/overlay"
	"nailbook/internal/scheduling/timegrid"
	"nailbook/pkg/model"
)

type Resolver struct {
	seq *timegrid.Sequence
}

func NewResolver(seq *timegrid.Sequence) *Resolver {
	return &Resolver{seq: seq}
}

func (r *Resolver) Sequence() *timegrid.Sequence {
	return r.seq
}

// Resolve walks the time sequence forward from the anchor and returns the
// required-1 slots that follow it. daySlots may contain any slots; only
// those sharing the anchor's resource and date are considered.
//
// A sequence time with no slot record is skipped. A slot that exists but is
// not available ends resolution with ReasonChainGap, even when later times
// are free. An existing slot on a blocked date ends it with
// ReasonBlockedDate.
func (r *Resolver) Resolve(anchor *model.Slot, required int, daySlots []*model.Slot, blocked *overlay.Overlay) ([]*model.Slot, error) {
	if required < 1 {
		return nil, ErrInvalidRequiredCount
	}
	if required == 1 {
		return []*model.Slot{}, nil
	}
	if !r.seq.Contains(anchor.Time) {
		return nil, &ResolutionError{Reason: ReasonTimeNotInSequence, Date: anchor.Date, Time: anchor.Time}
	}

	byTime := make(map[string]*model.Slot, len(daySlots))
	for _, s := range daySlots {
		if s == nil || s.ResourceID != anchor.ResourceID || s.Date != anchor.Date {
			continue
		}
		byTime[s.Time] = s
	}

	chain := make([]*model.Slot, 0, required-1)
	current := anchor.Time
	for len(chain) < required-1 {
		next, ok := r.seq.Next(current)
		if !ok {
			return nil, &ResolutionError{Reason: ReasonEndOfSequence, Date: anchor.Date}
		}
		current = next

		s, exists := byTime[next]
		if !exists {
			continue
		}
		if blocked.IsBlocked(anchor.Date) {
			return nil, &ResolutionError{Reason: ReasonBlockedDate, Date: anchor.Date, Time: next}
		}
		if s.Status != model.SlotStatusAvailable {
			return nil, &ResolutionError{Reason: ReasonChainGap, Date: anchor.Date, Time: next}
		}
		chain = append(chain, s)
	}
	return chain, nil
}

// Matches reports whether got lists the same slot ids as want, in order.
func Matches(want []*model.Slot, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i, s := range want {
		if s.ID != got[i] {
			return false
		}
	}
	return true
}

// Package overlay answers whether a calendar day is covered by any blocked
// date record.
package overlay

import "nailbook/pkg/model"

// Overlay is a snapshot of blocked date ranges. Overlapping ranges are
// allowed and behave as their union.
type Overlay struct {
	records []*model.BlockedDate
}

func New(records []*model.BlockedDate) *Overlay {
	kept := make([]*model.BlockedDate, 0, len(records))
	for _, r := range records {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Overlay{records: kept}
}

// Empty is an overlay that blocks nothing.
func Empty() *Overlay {
	return &Overlay{}
}

func (o *Overlay) IsBlocked(date string) bool {
	return o.BlockingRecord(date) != nil
}

// BlockingRecord returns the first record whose inclusive range covers
// date, or nil.
func (o *Overlay) BlockingRecord(date string) *model.BlockedDate {
	if o == nil {
		return nil
	}
	for _, r := range o.records {
		if r.Contains(date) {
			return r
		}
	}
	return nil
}

func (o *Overlay) Records() []*model.BlockedDate {
	if o == nil {
		return nil
	}
	return o.records
}

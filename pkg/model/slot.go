package model

import "time"

const (
	SlotStatusAvailable = "available"
	SlotStatusPending   = "pending"
	SlotStatusConfirmed = "confirmed"
	SlotStatusBlocked   = "blocked"

	SlotTypeRegular    = "regular"
	SlotTypeSqueezeFee = "with_squeeze_fee"
)

type Slot struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty"`
	ResourceID string    `json:"resource_id" bson:"resource_id" validate:"omitempty,max=64"`
	Date       string    `json:"date" bson:"date" validate:"required,slot_date"`
	Time       string    `json:"time" bson:"time" validate:"required,slot_time"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=available pending confirmed blocked"`
	SlotType   string    `json:"slot_type" bson:"slot_type" validate:"required,oneof=regular with_squeeze_fee"`
	IsHidden   bool      `json:"is_hidden" bson:"is_hidden"`
	Notes      string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// SlotUpdate carries the administrative edits allowed on a slot. Status may
// only move between available and blocked here; reservation-driven
// transitions go through the booking flow.
type SlotUpdate struct {
	Status   string  `json:"status,omitempty" validate:"omitempty,oneof=available blocked"`
	SlotType string  `json:"slot_type,omitempty" validate:"omitempty,oneof=regular with_squeeze_fee"`
	IsHidden *bool   `json:"is_hidden,omitempty"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// BulkSlotRequest generates one slot per resource, day and time in the
// inclusive date range. Times defaults to the full canonical sequence.
type BulkSlotRequest struct {
	ResourceIDs []string `json:"resource_ids" validate:"omitempty,max=50,dive,max=64"`
	StartDate   string   `json:"start_date" validate:"required,slot_date"`
	EndDate     string   `json:"end_date" validate:"required,slot_date"`
	Times       []string `json:"times,omitempty" validate:"omitempty,max=48,dive,slot_time"`
	SlotType    string   `json:"slot_type,omitempty" validate:"omitempty,oneof=regular with_squeeze_fee"`
	IsHidden    bool     `json:"is_hidden,omitempty"`
}

type BulkSlotResult struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

var slotTransitions = map[string][]string{
	SlotStatusAvailable: {SlotStatusPending, SlotStatusBlocked},
	SlotStatusPending:   {SlotStatusConfirmed, SlotStatusAvailable, SlotStatusBlocked},
	SlotStatusConfirmed: {SlotStatusAvailable, SlotStatusBlocked},
	SlotStatusBlocked:   {SlotStatusAvailable},
}

// CanTransitionSlot reports whether a slot may move from one status to another.
func CanTransitionSlot(from, to string) bool {
	for _, s := range slotTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SlotSourcesFor lists every status that may legally move to the given one.
func SlotSourcesFor(to string) []string {
	var sources []string
	for _, from := range []string{SlotStatusAvailable, SlotStatusPending, SlotStatusConfirmed, SlotStatusBlocked} {
		if CanTransitionSlot(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

package model

import (
	"time"
)

const (
	BookingStatusPendingForm    = "pending_form"
	BookingStatusPendingPayment = "pending_payment"
	BookingStatusConfirmed      = "confirmed"
	BookingStatusCancelled      = "cancelled"
)

type Booking struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	SlotID        string    `json:"slot_id" bson:"slot_id"`
	LinkedSlotIDs []string  `json:"linked_slot_ids" bson:"linked_slot_ids"`
	ServiceType   string    `json:"service_type" bson:"service_type"`
	ResourceID    string    `json:"resource_id" bson:"resource_id"`
	Date          string    `json:"date" bson:"date"`
	Time          string    `json:"time" bson:"time"`
	ClientType    string    `json:"client_type,omitempty" bson:"client_type,omitempty"`
	Location      string    `json:"location,omitempty" bson:"location,omitempty"`
	Status        string    `json:"status" bson:"status"`
	CancelReason  string    `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// SlotIDs returns the anchor slot followed by the linked chain, in order.
func (b *Booking) SlotIDs() []string {
	ids := make([]string, 0, 1+len(b.LinkedSlotIDs))
	ids = append(ids, b.SlotID)
	return append(ids, b.LinkedSlotIDs...)
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled
}

// ReservationRequest is the only mutating entry point into the core. The
// service metadata fields are recorded on the booking and otherwise opaque.
type ReservationRequest struct {
	AnchorSlotID string   `json:"anchor_slot_id" validate:"required,max=64"`
	ChainSlotIDs []string `json:"chain_slot_ids" validate:"omitempty,max=16,dive,required,max=64"`
	ServiceType  string   `json:"service_type" validate:"required,min=2,max=64"`
	ResourceID   string   `json:"resource_id,omitempty" validate:"omitempty,max=64"`
	ClientType   string   `json:"client_type,omitempty" validate:"omitempty,max=64"`
	Location     string   `json:"location,omitempty" validate:"omitempty,max=200"`
}

type ResolveRequest struct {
	AnchorSlotID  string `json:"anchor_slot_id" validate:"required,max=64"`
	RequiredCount int    `json:"required_count,omitempty" validate:"omitempty,min=1,max=16"`
	ServiceType   string `json:"service_type,omitempty" validate:"required_without=RequiredCount,omitempty,max=64"`
}

type CancelRequest struct {
	ReleaseSlots bool   `json:"release_slots"`
	Reason       string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

type AdvanceRequest struct {
	Status string `json:"status" validate:"required,oneof=pending_payment confirmed"`
}

type Availability struct {
	Slots        []*Slot        `json:"slots"`
	BlockedDates []*BlockedDate `json:"blocked_dates"`
}

var bookingTransitions = map[string][]string{
	BookingStatusPendingForm:    {BookingStatusPendingPayment, BookingStatusCancelled},
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusCancelled},
}

func CanTransitionBooking(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BookingSourcesFor lists the statuses a booking may hold before moving to the given one.
func BookingSourcesFor(to string) []string {
	var sources []string
	for _, from := range []string{BookingStatusPendingForm, BookingStatusPendingPayment, BookingStatusConfirmed} {
		if CanTransitionBooking(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

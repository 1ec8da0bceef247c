package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	blockedrepo "nailbook/internal/blockeddates/repository"
	reserrors "nailbook/internal/reservations/errors"
	"nailbook/internal/reservations/repository"
	slotserrors "nailbook/internal/slots/errors"
	slotrepo "nailbook/internal/slots/repository"
	mongotx "nailbook/pkg/db/mongo"
	"nailbook/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory store with all-or-nothing transactions
// ────────────────────────────────────────────────

// memStore backs the slot, booking and blocked date repositories. Transactions
// are serialized and roll back every write when the callback fails, which is
// the guarantee the Mongo session transaction gives the service.
type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	slots    map[string]*model.Slot
	bookings map[string]*model.Booking
	blocked  []*model.BlockedDate
	seq      int

	calls      atomic.Int64
	txAttempts atomic.Int64

	// Injected failures.
	transitionErr error
	createErr     error
}

func newMemStore() *memStore {
	return &memStore{
		slots:    make(map[string]*model.Slot),
		bookings: make(map[string]*model.Booking),
	}
}

func (m *memStore) addSlot(id, resourceID, date, t, status string) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Slot{
		ID:         id,
		ResourceID: resourceID,
		Date:       date,
		Time:       t,
		Status:     status,
		SlotType:   model.SlotTypeRegular,
	}
	m.slots[id] = s
	return s
}

func (m *memStore) block(start, end string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = append(m.blocked, &model.BlockedDate{StartDate: start, EndDate: end, Scope: model.BlockScopeRange})
}

func (m *memStore) slot(id string) model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memStore) allBookings() []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// retryingTx mirrors the driver's WithTransaction: callbacks failing with a
// TransientTransactionError label are run again.
func (m *memStore) retryingTx(ctx context.Context, fn mongotx.TransactionFunc) error {
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = m.tx(ctx, fn); !hasTransientLabel(err) {
			return err
		}
	}
	return err
}

func hasTransientLabel(err error) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorLabel("TransientTransactionError")
}

func (m *memStore) tx(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txAttempts.Add(1)
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	slots := make(map[string]model.Slot, len(m.slots))
	for id, s := range m.slots {
		slots[id] = *s
	}
	bookings := make(map[string]model.Booking, len(m.bookings))
	for id, b := range m.bookings {
		bookings[id] = *b
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.slots = make(map[string]*model.Slot, len(slots))
		for id, s := range slots {
			s := s
			m.slots[id] = &s
		}
		m.bookings = make(map[string]*model.Booking, len(bookings))
		for id, b := range bookings {
			b := b
			m.bookings[id] = &b
		}
		m.mu.Unlock()
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// slots

type memSlots struct{ *memStore }

var _ slotrepo.SlotRepository = memSlots{}

func (m memSlots) Create(ctx context.Context, slot *model.Slot) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	slot.ID = fmt.Sprintf("slot-%d", m.seq)
	c := *slot
	m.slots[slot.ID] = &c
	return nil
}

func (m memSlots) CreateMany(ctx context.Context, slots []*model.Slot) (int, error) {
	for _, s := range slots {
		if err := m.Create(ctx, s); err != nil {
			return 0, err
		}
	}
	return len(slots), nil
}

func (m memSlots) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	c := *s
	return &c, nil
}

func (m memSlots) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Slot{}
	for _, id := range ids {
		if s, ok := m.slots[id]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memSlots) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Slot, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Slot{}
	for _, s := range m.slots {
		if s.ResourceID == resourceID && s.Date == date {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memSlots) FindAvailableFrom(ctx context.Context, resourceID *string, fromDate string) ([]*model.Slot, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Slot{}
	for _, s := range m.slots {
		if s.Status != model.SlotStatusAvailable || s.IsHidden || s.Date < fromDate {
			continue
		}
		if resourceID != nil && s.ResourceID != *resourceID {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (m memSlots) Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error) {
	return m.FindAvailableFrom(ctx, resourceID, date)
}

func (m memSlots) Update(ctx context.Context, id, expectedStatus string, updates *model.SlotUpdate) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	if s.Status != expectedStatus {
		return slotserrors.ErrStatusMismatch
	}
	if updates.Status != "" {
		s.Status = updates.Status
	}
	return nil
}

func (m memSlots) TransitionStatus(ctx context.Context, ids []string, from []string, to string) (int64, error) {
	m.calls.Add(1)
	if m.transitionErr != nil {
		return 0, m.transitionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched int64
	for _, id := range ids {
		s, ok := m.slots[id]
		if !ok || !contains(from, s.Status) {
			continue
		}
		s.Status = to
		matched++
	}
	return matched, nil
}

func (m memSlots) Delete(ctx context.Context, id string, deletable []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, id)
	return nil
}

func (m memSlots) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return m.retryingTx(ctx, fn)
}

// bookings

type memBookings struct{ *memStore }

var _ repository.BookingRepository = memBookings{}

func (m memBookings) Create(ctx context.Context, booking *model.Booking) error {
	m.calls.Add(1)
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	booking.ID = fmt.Sprintf("booking-%03d", m.seq)
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt
	c := *booking
	c.LinkedSlotIDs = append([]string{}, booking.LinkedSlotIDs...)
	m.bookings[booking.ID] = &c
	return nil
}

func (m memBookings) put(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *b
	m.bookings[b.ID] = &c
}

func (m memBookings) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrBookingNotFound, id)
	}
	c := *b
	return &c, nil
}

func (m memBookings) TransitionStatus(ctx context.Context, id string, from []string, to string, cancelReason string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("%w: %s", reserrors.ErrBookingNotFound, id)
	}
	if !contains(from, b.Status) {
		return fmt.Errorf("%w: %s", reserrors.ErrStatusMismatch, id)
	}
	b.Status = to
	if cancelReason != "" {
		b.CancelReason = cancelReason
	}
	return nil
}

func (m memBookings) FindStale(ctx context.Context, statuses []string, cutoff time.Time, limit int) ([]*model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range m.bookings {
		if contains(statuses, b.Status) && b.CreatedAt.Before(cutoff) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memBookings) ReferencesSlot(ctx context.Context, slotID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if contains(b.SlotIDs(), slotID) {
			return true, nil
		}
	}
	return false, nil
}

func (m memBookings) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return m.retryingTx(ctx, fn)
}

func (m memBookings) ExecuteTransactionOnce(ctx context.Context, fn mongotx.TransactionFunc) error {
	return m.tx(ctx, fn)
}

// blocked dates

type memBlocked struct{ *memStore }

var _ blockedrepo.BlockedDateRepository = memBlocked{}

func (m memBlocked) Create(ctx context.Context, bd *model.BlockedDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = append(m.blocked, bd)
	return nil
}

func (m memBlocked) FindByID(ctx context.Context, id string) (*model.BlockedDate, error) {
	return nil, fmt.Errorf("not found: %s", id)
}

func (m memBlocked) FindOverlapping(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.BlockedDate{}
	for _, bd := range m.blocked {
		if (from == "" || bd.EndDate >= from) && (to == "" || bd.StartDate <= to) {
			out = append(out, bd)
		}
	}
	return out, nil
}

func (m memBlocked) Delete(ctx context.Context, id string) error {
	return nil
}

// ────────────────────────────────────────────────
// Recording publisher
// ────────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+booking.ID)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.events...)
}

package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BookingService is the only path that creates appointments. It never decides
// a booking from a prior availability read: the store's uniqueness constraint
// on the slot id is the single source of truth, and a constraint violation is
// the authoritative conflict signal. A conflict is never retried here; picking
// another slot is the caller's decision.
type BookingService struct {
	store Store
	cache SlotListCache
}

// NewBookingService wires the engine to a store and an optional listing cache
// (nil disables caching).
func NewBookingService(store Store, cache SlotListCache) *BookingService {
	return &BookingService{store: store, cache: cache}
}

type BookRequest struct {
	SlotID       uuid.UUID
	PatientName  string
	PatientPhone string
	Reason       string
}

// Book converts an open slot into a confirmed appointment, or reports why it
// could not: ErrSlotNotFound, ErrSlotTaken, or ErrInvalidInput.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if strings.TrimSpace(req.PatientName) == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrInvalidInput)
	}

	// Cheap pre-filter so a missing slot reads as not-found rather than a
	// foreign key failure. The booking decision is NOT made here.
	if _, err := s.store.GetSlot(ctx, req.SlotID); err != nil {
		return nil, err
	}

	appt := Appointment{
		ID:          uuid.New(),
		SlotID:      req.SlotID,
		PatientName: strings.TrimSpace(req.PatientName),
		Status:      StatusConfirmed,
	}
	if p := strings.TrimSpace(req.PatientPhone); p != "" {
		appt.PatientPhone = &p
	}
	if r := strings.TrimSpace(req.Reason); r != "" {
		appt.Reason = &r
	}

	created, err := s.store.InsertAppointment(ctx, appt)
	if err != nil {
		// ErrSlotTaken: a concurrent caller won the race.
		// ErrSlotNotFound: the slot was deleted between the pre-filter
		// and the insert.
		return nil, err
	}

	s.invalidate(ctx)
	return created, nil
}

// Cancel deletes the appointment; its slot immediately becomes bookable again.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

func (s *BookingService) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAppointments(ctx)
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

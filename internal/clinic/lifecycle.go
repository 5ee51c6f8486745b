package clinic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// LifecycleService owns doctor and slot create/update/delete, including the
// cascade semantics: deleting a doctor removes its slots and their
// appointments, deleting a slot removes its appointment. Cascades are single
// atomic store operations.
type LifecycleService struct {
	store Store
	cache SlotListCache
}

func NewLifecycleService(store Store, cache SlotListCache) *LifecycleService {
	return &LifecycleService{store: store, cache: cache}
}

type CreateDoctorRequest struct {
	ID         string
	Name       string
	Speciality string
	Room       string
}

func (s *LifecycleService) CreateDoctor(ctx context.Context, req CreateDoctorRequest) (*Doctor, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, fmt.Errorf("%w: doctor id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: doctor name is required", ErrInvalidInput)
	}

	d := Doctor{
		ID:   strings.TrimSpace(req.ID),
		Name: strings.TrimSpace(req.Name),
	}
	if v := strings.TrimSpace(req.Speciality); v != "" {
		d.Speciality = &v
	}
	if v := strings.TrimSpace(req.Room); v != "" {
		d.Room = &v
	}

	return s.store.InsertDoctor(ctx, d)
}

func (s *LifecycleService) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.store.GetDoctor(ctx, id)
}

func (s *LifecycleService) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

func (s *LifecycleService) UpdateDoctor(ctx context.Context, id string, patch DoctorPatch) (*Doctor, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: doctor name cannot be empty", ErrInvalidInput)
	}
	return s.store.UpdateDoctor(ctx, id, patch)
}

func (s *LifecycleService) DeleteDoctor(ctx context.Context, id string) error {
	if err := s.store.DeleteDoctor(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

type CreateSlotRequest struct {
	DoctorID string
	Date     string
	Time     string
}

func (s *LifecycleService) CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}
	if err := validateTime(req.Time); err != nil {
		return nil, err
	}

	slot := Slot{
		ID:       uuid.New(),
		DoctorID: req.DoctorID,
		Date:     req.Date,
		Time:     req.Time,
	}

	created, err := s.store.InsertSlot(ctx, slot)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return created, nil
}

func (s *LifecycleService) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.store.GetSlot(ctx, id)
}

// ListSlots serves the display path and may return stale data from the cache;
// staleness is resolved by the conflict at booking time, not here.
func (s *LifecycleService) ListSlots(ctx context.Context, f SlotFilter) ([]SlotView, error) {
	if s.cache != nil {
		if views, ok := s.cache.GetSlots(ctx, f); ok {
			return views, nil
		}
	}

	views, err := s.store.ListSlots(ctx, f)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetSlots(ctx, f, views)
	}
	return views, nil
}

// UpdateSlot edits a slot only while it has no appointment; a booked slot's
// identity is locked to its appointment and the store rejects the edit with
// ErrSlotBooked regardless of which fields are patched.
func (s *LifecycleService) UpdateSlot(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	if patch.Date != nil {
		if err := validateDate(*patch.Date); err != nil {
			return nil, err
		}
	}
	if patch.Time != nil {
		if err := validateTime(*patch.Time); err != nil {
			return nil, err
		}
	}
	if patch.DoctorID != nil && strings.TrimSpace(*patch.DoctorID) == "" {
		return nil, fmt.Errorf("%w: doctor id cannot be empty", ErrInvalidInput)
	}

	slot, err := s.store.UpdateSlotUnbooked(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return slot, nil
}

func (s *LifecycleService) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteSlot(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *LifecycleService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func validateDate(v string) error {
	if _, err := time.Parse(dateLayout, v); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return nil
}

func validateTime(v string) error {
	if _, err := time.Parse(timeLayout, v); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	}
	return nil
}

package clinic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is the non-authoritative in-memory implementation of Store. It
// enforces the same invariants as the Postgres store (uniqueness, foreign
// keys, atomic cascades) under a single mutex, and backs tests and demo
// environments that run without a database.
type MemStore struct {
	mu           sync.RWMutex
	doctors      map[string]Doctor
	slots        map[uuid.UUID]Slot
	appointments map[uuid.UUID]Appointment
	bySlot       map[uuid.UUID]uuid.UUID // slot id -> appointment id
}

func NewMemStore() *MemStore {
	return &MemStore{
		doctors:      map[string]Doctor{},
		slots:        map[uuid.UUID]Slot{},
		appointments: map[uuid.UUID]Appointment{},
		bySlot:       map[uuid.UUID]uuid.UUID{},
	}
}

// Doctors

func (m *MemStore) InsertDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doctors[d.ID]; ok {
		return nil, ErrDoctorExists
	}

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.doctors[d.ID] = d

	out := d
	return &out, nil
}

func (m *MemStore) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := d
	return &out, nil
}

func (m *MemStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MemStore) UpdateDoctor(ctx context.Context, id string, patch DoctorPatch) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}

	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Speciality != nil {
		d.Speciality = patch.Speciality
	}
	if patch.Room != nil {
		d.Room = patch.Room
	}
	d.UpdatedAt = time.Now()
	m.doctors[id] = d

	out := d
	return &out, nil
}

func (m *MemStore) DeleteDoctor(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doctors[id]; !ok {
		return ErrDoctorNotFound
	}

	for slotID, s := range m.slots {
		if s.DoctorID != id {
			continue
		}
		if apptID, ok := m.bySlot[slotID]; ok {
			delete(m.appointments, apptID)
			delete(m.bySlot, slotID)
		}
		delete(m.slots, slotID)
	}
	delete(m.doctors, id)

	return nil
}

// Slots

func (m *MemStore) InsertSlot(ctx context.Context, s Slot) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doctors[s.DoctorID]; !ok {
		return nil, ErrDoctorNotFound
	}
	if m.tupleExistsLocked(s.DoctorID, s.Date, s.Time, uuid.Nil) {
		return nil, ErrDuplicateSlot
	}

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.slots[s.ID] = s

	out := s
	return &out, nil
}

// tupleExistsLocked reports whether another slot already occupies the
// (doctor, date, time) tuple. Caller holds the lock.
func (m *MemStore) tupleExistsLocked(doctorID, date, tm string, exclude uuid.UUID) bool {
	for id, s := range m.slots {
		if id == exclude {
			continue
		}
		if s.DoctorID == doctorID && s.Date == date && s.Time == tm {
			return true
		}
	}
	return false
}

func (m *MemStore) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := s
	return &out, nil
}

func (m *MemStore) ListSlots(ctx context.Context, f SlotFilter) ([]SlotView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []SlotView
	for id, s := range m.slots {
		if f.DoctorID != "" && s.DoctorID != f.DoctorID {
			continue
		}
		if f.Date != "" && s.Date != f.Date {
			continue
		}
		_, booked := m.bySlot[id]
		result = append(result, SlotView{Slot: s, Booked: booked})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		if result[i].Time != result[j].Time {
			return result[i].Time < result[j].Time
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (m *MemStore) UpdateSlotUnbooked(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if _, booked := m.bySlot[id]; booked {
		return nil, ErrSlotBooked
	}

	next := s
	if patch.DoctorID != nil {
		if _, ok := m.doctors[*patch.DoctorID]; !ok {
			return nil, ErrDoctorNotFound
		}
		next.DoctorID = *patch.DoctorID
	}
	if patch.Date != nil {
		next.Date = *patch.Date
	}
	if patch.Time != nil {
		next.Time = *patch.Time
	}
	if m.tupleExistsLocked(next.DoctorID, next.Date, next.Time, id) {
		return nil, ErrDuplicateSlot
	}

	next.UpdatedAt = time.Now()
	m.slots[id] = next

	out := next
	return &out, nil
}

func (m *MemStore) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[id]; !ok {
		return ErrSlotNotFound
	}
	if apptID, ok := m.bySlot[id]; ok {
		delete(m.appointments, apptID)
		delete(m.bySlot, id)
	}
	delete(m.slots, id)

	return nil
}

// Appointments

func (m *MemStore) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[a.SlotID]; !ok {
		return nil, ErrSlotNotFound
	}
	if _, taken := m.bySlot[a.SlotID]; taken {
		return nil, ErrSlotTaken
	}

	a.CreatedAt = time.Now()
	m.appointments[a.ID] = a
	m.bySlot[a.SlotID] = a.ID

	out := a
	return &out, nil
}

func (m *MemStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := a
	return &out, nil
}

func (m *MemStore) GetAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apptID, ok := m.bySlot[slotID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a := m.appointments[apptID]
	out := a
	return &out, nil
}

func (m *MemStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (m *MemStore) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appointments, id)
	delete(m.bySlot, a.SlotID)

	return nil
}

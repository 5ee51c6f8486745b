package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrDoctorExists signals a caller-supplied doctor id collision.
	ErrDoctorExists = errors.New("doctor id already exists")

	// ErrSlotTaken is the authoritative double-booking signal: the store's
	// uniqueness constraint on appointment slot ids rejected the insert.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrSlotBooked rejects edits to a slot that has an appointment.
	ErrSlotBooked = errors.New("slot has an appointment and cannot be edited")

	// ErrDuplicateSlot rejects a second slot with the same doctor, date and time.
	ErrDuplicateSlot = errors.New("doctor already has a slot at this date and time")

	ErrInvalidInput = errors.New("invalid input")
)

// Store is the entity store contract shared by the Postgres store and the
// in-memory store. Implementations enforce referential integrity, the
// uniqueness of an appointment's slot id, and atomic cascade deletes.
type Store interface {
	InsertDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	UpdateDoctor(ctx context.Context, id string, patch DoctorPatch) (*Doctor, error)
	// DeleteDoctor removes the doctor, its slots and their appointments in
	// one atomic unit.
	DeleteDoctor(ctx context.Context, id string) error

	InsertSlot(ctx context.Context, s Slot) (*Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, f SlotFilter) ([]SlotView, error)
	// UpdateSlotUnbooked applies the patch only while the slot has no
	// appointment; a booked slot yields ErrSlotBooked. The check and the
	// update are a single atomic operation.
	UpdateSlotUnbooked(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error)
	// DeleteSlot removes the slot and its appointment, if any, atomically.
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// InsertAppointment is the only write that can double-book and therefore
	// the only place the booking race is decided: it fails with ErrSlotTaken
	// when the slot already has an appointment and ErrSlotNotFound when the
	// slot is gone.
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// SlotListCache is an optional read-through cache for slot listings. Reads
// used for display may be stale; the booking conflict is resolved at write
// time, never from cached data.
type SlotListCache interface {
	GetSlots(ctx context.Context, f SlotFilter) ([]SlotView, bool)
	SetSlots(ctx context.Context, f SlotFilter, views []SlotView)
	Invalidate(ctx context.Context)
}

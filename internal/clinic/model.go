package clinic

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
)

// Doctor ids are caller-supplied and immutable once created.
type Doctor struct {
	ID         string
	Name       string
	Speciality *string
	Room       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Slot is a bookable time unit owned by exactly one doctor.
// Date is an ISO 8601 calendar date ("2006-01-02"), Time a 24-hour "15:04".
type Slot struct {
	ID        uuid.UUID
	DoctorID  string
	Date      string
	Time      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment binds one patient to one slot. At most one appointment may
// reference a given slot at any time; the store enforces this.
type Appointment struct {
	ID           uuid.UUID
	SlotID       uuid.UUID
	PatientName  string
	PatientPhone *string
	Reason       *string
	Status       AppointmentStatus
	CreatedAt    time.Time
}

// SlotView is a slot plus its derived booking status, for listings.
type SlotView struct {
	Slot
	Booked bool
}

type DoctorPatch struct {
	Name       *string
	Speciality *string
	Room       *string
}

type SlotPatch struct {
	DoctorID *string
	Date     *string
	Time     *string
}

type SlotFilter struct {
	DoctorID string
	Date     string
}

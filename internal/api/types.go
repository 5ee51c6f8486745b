package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

type CreateDoctorRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Speciality string `json:"speciality,omitempty"`
	Room       string `json:"room,omitempty"`
}

type UpdateDoctorRequest struct {
	Name       *string `json:"name,omitempty"`
	Speciality *string `json:"speciality,omitempty"`
	Room       *string `json:"room,omitempty"`
}

type DoctorResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Speciality *string   `json:"speciality,omitempty"`
	Room       *string   `json:"room,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateSlotRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type UpdateSlotRequest struct {
	DoctorID *string `json:"doctor_id,omitempty"`
	Date     *string `json:"date,omitempty"`
	Time     *string `json:"time,omitempty"`
}

type SlotResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID string    `json:"doctor_id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Status   string    `json:"status,omitempty"` // "available" or "booked", listings only
}

type BookRequest struct {
	SlotID       string `json:"slot_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	SlotID       uuid.UUID `json:"slot_id"`
	PatientName  string    `json:"patient_name"`
	PatientPhone *string   `json:"patient_phone,omitempty"`
	Reason       *string   `json:"reason,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func doctorResponse(d *clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:         d.ID,
		Name:       d.Name,
		Speciality: d.Speciality,
		Room:       d.Room,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func slotResponse(s *clinic.Slot) SlotResponse {
	return SlotResponse{
		ID:       s.ID,
		DoctorID: s.DoctorID,
		Date:     s.Date,
		Time:     s.Time,
	}
}

func slotViewResponse(v clinic.SlotView) SlotResponse {
	resp := slotResponse(&v.Slot)
	if v.Booked {
		resp.Status = "booked"
	} else {
		resp.Status = "available"
	}
	return resp
}

func appointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		SlotID:       a.SlotID,
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		Reason:       a.Reason,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
	}
}

package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Speciality,
		&d.Room,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.Time,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PatientName,
		&a.PatientPhone,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// pgErrCode extracts the SQLSTATE from a pgx error, or "" if it is not a
// server-reported error.
func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Doctors

func (st *PgStore) InsertDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	row := st.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, name, speciality, room, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, speciality, room, created_at, updated_at
	`, d.ID, d.Name, d.Speciality, d.Room)

	doc, err := scanDoctor(row)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return nil, ErrDoctorExists
		}
		return nil, err
	}
	return doc, nil
}

func (st *PgStore) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT id, name, speciality, room, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (st *PgStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT id, name, speciality, room, created_at, updated_at
		FROM doctors
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (st *PgStore) UpdateDoctor(ctx context.Context, id string, patch DoctorPatch) (*Doctor, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name       = COALESCE($2, name),
		    speciality = COALESCE($3, speciality),
		    room       = COALESCE($4, room),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, speciality, room, created_at, updated_at
	`, id, patch.Name, patch.Speciality, patch.Room)

	return scanDoctor(row)
}

// DeleteDoctor cascades in one transaction: appointments under the doctor's
// slots, then the slots, then the doctor. No partial state survives a failure.
func (st *PgStore) DeleteDoctor(ctx context.Context, id string) error {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete doctor: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE slot_id IN (SELECT id FROM slots WHERE doctor_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("delete doctor appointments: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM slots WHERE doctor_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor slots: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}

	return tx.Commit(ctx)
}

// Slots

func (st *PgStore) InsertSlot(ctx context.Context, s Slot) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		INSERT INTO slots (id, doctor_id, date, time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, doctor_id, date, time, created_at, updated_at
	`, s.ID, s.DoctorID, s.Date, s.Time)

	slot, err := scanSlot(row)
	if err != nil {
		switch pgErrCode(err) {
		case pgForeignKeyViolation:
			return nil, ErrDoctorNotFound
		case pgUniqueViolation:
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return slot, nil
}

func (st *PgStore) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, time, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (st *PgStore) ListSlots(ctx context.Context, f SlotFilter) ([]SlotView, error) {
	query := `
		SELECT s.id, s.doctor_id, s.date, s.time, s.created_at, s.updated_at,
		       a.id IS NOT NULL AS booked
		FROM slots s
		LEFT JOIN appointments a ON a.slot_id = s.id
		WHERE 1=1
	`
	args := []any{}
	if f.DoctorID != "" {
		args = append(args, f.DoctorID)
		query += fmt.Sprintf(" AND s.doctor_id = $%d", len(args))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		query += fmt.Sprintf(" AND s.date = $%d", len(args))
	}
	query += " ORDER BY s.date, s.time, s.id"

	rows, err := st.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotView
	for rows.Next() {
		var v SlotView
		err := rows.Scan(
			&v.ID,
			&v.DoctorID,
			&v.Date,
			&v.Time,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.Booked,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateSlotUnbooked guards the edit with a NOT EXISTS predicate in the same
// statement, so the "no appointment yet" check cannot race a concurrent
// booking.
func (st *PgStore) UpdateSlotUnbooked(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE slots
		SET doctor_id  = COALESCE($2, doctor_id),
		    date       = COALESCE($3, date),
		    time       = COALESCE($4, time),
		    updated_at = now()
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM appointments WHERE slot_id = $1)
		RETURNING id, doctor_id, date, time, created_at, updated_at
	`, id, patch.DoctorID, patch.Date, patch.Time)

	slot, err := scanSlot(row)
	if err == nil {
		return slot, nil
	}

	switch pgErrCode(err) {
	case pgForeignKeyViolation:
		return nil, ErrDoctorNotFound
	case pgUniqueViolation:
		return nil, ErrDuplicateSlot
	}

	if errors.Is(err, ErrSlotNotFound) {
		// Zero rows: either the slot is gone or it is booked.
		if _, getErr := st.GetSlot(ctx, id); getErr == nil {
			return nil, ErrSlotBooked
		}
		return nil, ErrSlotNotFound
	}

	return nil, err
}

// DeleteSlot cascades to the slot's appointment in one transaction.
func (st *PgStore) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete slot: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM appointments WHERE slot_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot appointment: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}

	return tx.Commit(ctx)
}

// Appointments

func (st *PgStore) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, patient_name, patient_phone, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, slot_id, patient_name, patient_phone, reason, status, created_at
	`, a.ID, a.SlotID, a.PatientName, a.PatientPhone, a.Reason, a.Status)

	appt, err := scanAppointment(row)
	if err != nil {
		switch pgErrCode(err) {
		case pgUniqueViolation:
			return nil, ErrSlotTaken
		case pgForeignKeyViolation:
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return appt, nil
}

func (st *PgStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT id, slot_id, patient_name, patient_phone, reason, status, created_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (st *PgStore) GetAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT id, slot_id, patient_name, patient_phone, reason, status, created_at
		FROM appointments
		WHERE slot_id = $1
	`, slotID)
	return scanAppointment(row)
}

func (st *PgStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT id, slot_id, patient_name, patient_phone, reason, status, created_at
		FROM appointments
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (st *PgStore) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := st.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

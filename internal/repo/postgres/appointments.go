package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/skincareplus/internal/domain/appointment"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// date and time columns are exchanged as "YYYY-MM-DD" / "HH:MM" text
const appointmentColumns = `id, user_id, doctor_name, doctor_specialization, doctor_phone, doctor_email,
	to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
	location, address, latitude, longitude, status, notes, patient_concerns, created_at, updated_at`

type AppointmentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAppointmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AppointmentsRepo {
	return &AppointmentsRepo{pool: pool, prom: prom}
}

func (r *AppointmentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanAppointment(row pgx.Row) (appointment.Appointment, error) {
	var a appointment.Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.DoctorName,
		&a.DoctorSpecialization,
		&a.DoctorPhone,
		&a.DoctorEmail,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.Location,
		&a.Address,
		&a.Latitude,
		&a.Longitude,
		&a.Status,
		&a.Notes,
		&a.PatientConcerns,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (r *AppointmentsRepo) Create(ctx context.Context, a appointment.Appointment) (out appointment.Appointment, err error) {
	err = r.observe("appointments.create", func() error {
		out, err = scanAppointment(r.pool.QueryRow(ctx, `
			INSERT INTO appointments (
				user_id, doctor_name, doctor_specialization, doctor_phone, doctor_email,
				appointment_date, appointment_time, location, address, latitude, longitude,
				status, notes, patient_concerns, created_at, updated_at
			) VALUES (
				$1,$2,$3,$4,$5,
				$6::text::date,$7::text::time,$8,$9,$10,$11,
				$12,$13,$14,$15,$15
			)
			RETURNING `+appointmentColumns,
			a.UserID, a.DoctorName, a.DoctorSpecialization, a.DoctorPhone, a.DoctorEmail,
			a.AppointmentDate, a.AppointmentTime, a.Location, a.Address, a.Latitude, a.Longitude,
			string(a.Status), a.Notes, a.PatientConcerns, a.CreatedAt,
		))
		return err
	})

	return out, err
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id int64) (out appointment.Appointment, err error) {
	err = r.observe("appointments.get_by_id", func() error {
		out, err = scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}
		return appointment.Appointment{}, err
	}

	return out, nil
}

// ListByUser returns the user's appointments, newest slot first. With
// Upcoming set it returns slots on or after From, soonest first.
func (r *AppointmentsRepo) ListByUser(ctx context.Context, userID int64, f appointment.ListFilter) ([]appointment.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_id = $1`
	args := []interface{}{userID}
	argsPosition := 2

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argsPosition)
		args = append(args, string(*f.Status))
		argsPosition++
	}

	if f.Date != nil {
		query += fmt.Sprintf(" AND appointment_date = $%d::text::date", argsPosition)
		args = append(args, *f.Date)
		argsPosition++
	}

	if f.Upcoming {
		query += fmt.Sprintf(" AND appointment_date >= $%d::text::date ORDER BY appointment_date ASC, appointment_time ASC, id ASC", argsPosition)
		args = append(args, f.From.Format(appointment.DateLayout))
	} else {
		query += " ORDER BY appointment_date DESC, appointment_time DESC, id DESC"
	}

	output := make([]appointment.Appointment, 0)

	err := r.observe("appointments.list_by_user", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAppointment(rows)
			if err != nil {
				return err
			}
			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *AppointmentsRepo) Update(ctx context.Context, id int64, req appointment.WriteRequest) (out appointment.Appointment, err error) {
	err = r.observe("appointments.update", func() error {
		out, err = scanAppointment(r.pool.QueryRow(ctx, `
			UPDATE appointments
			SET doctor_name = $2,
				doctor_specialization = $3,
				doctor_phone = $4,
				doctor_email = $5,
				appointment_date = $6::text::date,
				appointment_time = $7::text::time,
				location = $8,
				address = $9,
				latitude = $10,
				longitude = $11,
				notes = $12,
				patient_concerns = $13,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+appointmentColumns,
			id, req.DoctorName, req.DoctorSpecialization, req.DoctorPhone, req.DoctorEmail,
			req.AppointmentDate, req.AppointmentTime, req.Location, req.Address, req.Latitude, req.Longitude,
			req.Notes, req.PatientConcerns,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}
		return appointment.Appointment{}, err
	}

	return out, nil
}

func (r *AppointmentsRepo) UpdateStatus(ctx context.Context, id int64, status appointment.Status) (out appointment.Appointment, err error) {
	err = r.observe("appointments.update_status", func() error {
		out, err = scanAppointment(r.pool.QueryRow(ctx, `
			UPDATE appointments SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+appointmentColumns, id, string(status)))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}
		return appointment.Appointment{}, err
	}

	return out, nil
}

func (r *AppointmentsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.observe("appointments.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return appointment.ErrNotFound
	}

	return nil
}

func (r *AppointmentsRepo) CountByUser(ctx context.Context, userID int64, status *appointment.Status) (int64, error) {
	var n int64

	err := r.observe("appointments.count_by_user", func() error {
		if status == nil {
			return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE user_id = $1`, userID).Scan(&n)
		}
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE user_id = $1 AND status = $2`, userID, string(*status)).Scan(&n)
	})

	return n, err
}

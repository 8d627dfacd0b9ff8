package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/appointment"
)

type AppointmentsRepo struct {
	mu     sync.RWMutex
	items  map[int64]appointment.Appointment
	nextID int64
}

func NewAppointmentsRepo() *AppointmentsRepo {
	return &AppointmentsRepo{items: make(map[int64]appointment.Appointment)}
}

func (r *AppointmentsRepo) Create(_ context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a.ID = r.nextID
	r.items[a.ID] = a

	return a, nil
}

func (r *AppointmentsRepo) GetByID(_ context.Context, id int64) (appointment.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return appointment.Appointment{}, appointment.ErrNotFound
	}
	return a, nil
}

// slot compares as text: both layouts are zero padded
func slot(a appointment.Appointment) string {
	return a.AppointmentDate + " " + a.AppointmentTime
}

func (r *AppointmentsRepo) ListByUser(_ context.Context, userID int64, f appointment.ListFilter) ([]appointment.Appointment, error) {
	from := f.From.Format(appointment.DateLayout)

	r.mu.RLock()
	out := make([]appointment.Appointment, 0)
	for _, a := range r.items {
		if a.UserID != userID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Date != nil && a.AppointmentDate != *f.Date {
			continue
		}
		if f.Upcoming && a.AppointmentDate < from {
			continue
		}
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		si, sj := slot(out[i]), slot(out[j])
		if si == sj {
			if f.Upcoming {
				return out[i].ID < out[j].ID
			}
			return out[i].ID > out[j].ID
		}
		if f.Upcoming {
			return si < sj
		}
		return si > sj
	})

	return out, nil
}

func (r *AppointmentsRepo) Update(_ context.Context, id int64, req appointment.WriteRequest) (appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return appointment.Appointment{}, appointment.ErrNotFound
	}

	a.DoctorName = req.DoctorName
	a.DoctorSpecialization = req.DoctorSpecialization
	a.DoctorPhone = req.DoctorPhone
	a.DoctorEmail = req.DoctorEmail
	a.AppointmentDate = req.AppointmentDate
	a.AppointmentTime = req.AppointmentTime
	a.Location = req.Location
	a.Address = req.Address
	a.Latitude = req.Latitude
	a.Longitude = req.Longitude
	a.Notes = req.Notes
	a.PatientConcerns = req.PatientConcerns
	a.UpdatedAt = time.Now().UTC()

	r.items[id] = a
	return a, nil
}

func (r *AppointmentsRepo) UpdateStatus(_ context.Context, id int64, status appointment.Status) (appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return appointment.Appointment{}, appointment.ErrNotFound
	}

	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a

	return a, nil
}

func (r *AppointmentsRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return appointment.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *AppointmentsRepo) CountByUser(_ context.Context, userID int64, status *appointment.Status) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, a := range r.items {
		if a.UserID == userID && (status == nil || a.Status == *status) {
			n++
		}
	}
	return n, nil
}

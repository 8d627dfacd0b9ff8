package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/appointment"
	"github.com/stretchr/testify/require"
)

func seedAppointment(t *testing.T, r *AppointmentsRepo, userID int64, date, clock string) appointment.Appointment {
	t.Helper()

	a, err := r.Create(context.Background(), appointment.NewFromRequest(userID, appointment.WriteRequest{
		DoctorName:      "Dr. Ade",
		AppointmentDate: date,
		AppointmentTime: clock,
	}))
	require.NoError(t, err)
	return a
}

func TestAppointmentsRepo_ListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	r := NewAppointmentsRepo()

	past := seedAppointment(t, r, 1, "2026-01-10", "09:00")
	soon := seedAppointment(t, r, 1, "2026-05-01", "08:30")
	later := seedAppointment(t, r, 1, "2026-05-01", "14:00")
	seedAppointment(t, r, 2, "2026-06-01", "10:00")

	all, err := r.ListByUser(ctx, 1, appointment.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, []int64{later.ID, soon.ID, past.ID}, apptIDs(all))

	upcoming, err := r.ListByUser(ctx, 1, appointment.ListFilter{
		Upcoming: true,
		From:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, []int64{soon.ID, later.ID}, apptIDs(upcoming))

	day := "2026-01-10"
	onDay, err := r.ListByUser(ctx, 1, appointment.ListFilter{Date: &day})
	require.NoError(t, err)
	require.Equal(t, []int64{past.ID}, apptIDs(onDay))
}

func TestAppointmentsRepo_StatusUpdateDeleteCount(t *testing.T) {
	ctx := context.Background()
	r := NewAppointmentsRepo()

	a := seedAppointment(t, r, 1, "2026-05-01", "08:30")
	seedAppointment(t, r, 1, "2026-05-02", "08:30")

	updated, err := r.UpdateStatus(ctx, a.ID, appointment.StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, appointment.StatusConfirmed, updated.Status)

	confirmed := appointment.StatusConfirmed
	n, err := r.CountByUser(ctx, 1, &confirmed)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = r.CountByUser(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, r.Delete(ctx, a.ID))
	require.ErrorIs(t, r.Delete(ctx, a.ID), appointment.ErrNotFound)

	_, err = r.UpdateStatus(ctx, a.ID, appointment.StatusCancelled)
	require.ErrorIs(t, err, appointment.ErrNotFound)
}

func apptIDs(list []appointment.Appointment) []int64 {
	out := make([]int64, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/appointment"
	"github.com/gin-gonic/gin"
)

type AppointmentsRepo interface {
	Create(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error)
	GetByID(ctx context.Context, id int64) (appointment.Appointment, error)
	ListByUser(ctx context.Context, userID int64, f appointment.ListFilter) ([]appointment.Appointment, error)
	Update(ctx context.Context, id int64, req appointment.WriteRequest) (appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status appointment.Status) (appointment.Appointment, error)
	Delete(ctx context.Context, id int64) error
	CountByUser(ctx context.Context, userID int64, status *appointment.Status) (int64, error)
}

type AppointmentsHandler struct {
	repo AppointmentsRepo
	now  func() time.Time
}

func NewAppointmentsHandler(repo AppointmentsRepo) *AppointmentsHandler {
	return &AppointmentsHandler{repo: repo, now: time.Now}
}

func (h *AppointmentsHandler) Create(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var req appointment.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, err := h.repo.Create(cctx, appointment.NewFromRequest(id.UserID, req))
	if err != nil {
		RespondInternal(ctx, "Could not create appointment", err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Appointment created successfully", a)
}

// GET /api/appointments?status=CONFIRMED&upcoming=true&date=2025-04-01
func (h *AppointmentsHandler) List(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var f appointment.ListFilter

	if s := optionalString(ctx, "status"); s != nil {
		st := appointment.Status(*s)
		if !st.IsValid() {
			RespondBadRequest(ctx, "status is invalid", nil)
			return
		}
		f.Status = &st
	}

	if d := optionalString(ctx, "date"); d != nil {
		if _, err := time.Parse(appointment.DateLayout, *d); err != nil {
			RespondBadRequest(ctx, "date must be YYYY-MM-DD", nil)
			return
		}
		f.Date = d
	}

	if up := optionalBool(ctx, "upcoming"); up != nil && *up {
		f.Upcoming = true
		f.From = h.now().UTC()
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, id.UserID, f)
	if err != nil {
		RespondInternal(ctx, "Could not list appointments", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{
		Success: true,
		Message: "Appointments retrieved",
		Data:    gin.H{"items": items, "count": len(items)},
	})
}

// GET /api/appointments/count?status=SCHEDULED
func (h *AppointmentsHandler) Count(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var status *appointment.Status
	if s := optionalString(ctx, "status"); s != nil {
		st := appointment.Status(*s)
		if !st.IsValid() {
			RespondBadRequest(ctx, "status is invalid", nil)
			return
		}
		status = &st
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	n, err := h.repo.CountByUser(cctx, id.UserID, status)
	if err != nil {
		RespondInternal(ctx, "Could not count appointments", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Appointments counted", gin.H{"count": n})
}

// load fetches the appointment and enforces ownership. It writes the error
// response itself and reports whether the caller may proceed.
func (h *AppointmentsHandler) load(cctx context.Context, ctx *gin.Context) (appointment.Appointment, bool) {
	caller, ok := identity(ctx)
	if !ok {
		return appointment.Appointment{}, false
	}

	apptID, ok := idParam(ctx, "id")
	if !ok {
		return appointment.Appointment{}, false
	}

	a, err := h.repo.GetByID(cctx, apptID)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return appointment.Appointment{}, false
		}
		RespondInternal(ctx, "Could not fetch appointment", err)
		return appointment.Appointment{}, false
	}

	if !caller.CanAccess(a.UserID) {
		RespondForbidden(ctx, "You do not have access to this appointment")
		return appointment.Appointment{}, false
	}

	return a, true
}

func (h *AppointmentsHandler) Get(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Message: "Appointment retrieved", Data: a})
}

func (h *AppointmentsHandler) Update(ctx *gin.Context) {
	var req appointment.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	updated, err := h.repo.Update(cctx, a.ID, req)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}
		RespondInternal(ctx, "Could not update appointment", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Appointment updated successfully", updated)
}

func (h *AppointmentsHandler) UpdateStatus(ctx *gin.Context) {
	var req appointment.StatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	updated, err := h.repo.UpdateStatus(cctx, a.ID, req.Status)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}
		RespondInternal(ctx, "Could not update appointment status", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Appointment status updated", updated)
}

func (h *AppointmentsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	if err := h.repo.Delete(cctx, a.ID); err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}
		RespondInternal(ctx, "Could not delete appointment", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Appointment deleted successfully", nil)
}

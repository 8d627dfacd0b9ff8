package appointment

import (
	"errors"
	"time"
)

type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("appointment not found")

// DateLayout and TimeLayout are the wire formats of the appointment slot.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"userId"`
	DoctorName           string    `json:"doctorName"`
	DoctorSpecialization *string   `json:"doctorSpecialization,omitempty"`
	DoctorPhone          *string   `json:"doctorPhone,omitempty"`
	DoctorEmail          *string   `json:"doctorEmail,omitempty"`
	AppointmentDate      string    `json:"appointmentDate"`
	AppointmentTime      string    `json:"appointmentTime"`
	Location             *string   `json:"location,omitempty"`
	Address              *string   `json:"address,omitempty"`
	Latitude             *float64  `json:"latitude,omitempty"`
	Longitude            *float64  `json:"longitude,omitempty"`
	Status               Status    `json:"status"`
	Notes                *string   `json:"notes,omitempty"`
	PatientConcerns      *string   `json:"patientConcerns,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// a full write payload, used for both create and update
type WriteRequest struct {
	DoctorName           string   `json:"doctorName" binding:"required,max=100"`
	DoctorSpecialization *string  `json:"doctorSpecialization" binding:"omitempty,max=100"`
	DoctorPhone          *string  `json:"doctorPhone" binding:"omitempty,max=20"`
	DoctorEmail          *string  `json:"doctorEmail" binding:"omitempty,email,max=100"`
	AppointmentDate      string   `json:"appointmentDate" binding:"required,datetime=2006-01-02"`
	AppointmentTime      string   `json:"appointmentTime" binding:"required,datetime=15:04"`
	Location             *string  `json:"location" binding:"omitempty,max=255"`
	Address              *string  `json:"address"`
	Latitude             *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude            *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Notes                *string  `json:"notes"`
	PatientConcerns      *string  `json:"patientConcerns"`
}

type StatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=SCHEDULED CONFIRMED COMPLETED CANCELLED RESCHEDULED"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Status *Status
	// Upcoming restricts to appointments on or after From, ascending.
	Upcoming bool
	From     time.Time
	Date     *string
}

func NewFromRequest(userID int64, req WriteRequest) Appointment {
	now := time.Now().UTC()

	return Appointment{
		UserID:               userID,
		DoctorName:           req.DoctorName,
		DoctorSpecialization: req.DoctorSpecialization,
		DoctorPhone:          req.DoctorPhone,
		DoctorEmail:          req.DoctorEmail,
		AppointmentDate:      req.AppointmentDate,
		AppointmentTime:      req.AppointmentTime,
		Location:             req.Location,
		Address:              req.Address,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		Status:               StatusScheduled,
		Notes:                req.Notes,
		PatientConcerns:      req.PatientConcerns,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

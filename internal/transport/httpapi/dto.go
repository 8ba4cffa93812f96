package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

type appointmentRequest struct {
	EmployeeID   string `json:"employeeId"`
	Date         string `json:"date"`
	Start        string `json:"start"`
	Duration     int    `json:"duration"`
	ServiceID    string `json:"serviceId"`
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Notes        string `json:"notes"`
}

type appointmentPatchRequest struct {
	EmployeeID   *string `json:"employeeId"`
	Date         *string `json:"date"`
	Start        *string `json:"start"`
	Duration     *int    `json:"duration"`
	ServiceID    *string `json:"serviceId"`
	CustomerName *string `json:"customerName"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Notes        *string `json:"notes"`
}

type appointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	EmployeeID      uuid.UUID `json:"employeeId"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	Duration        int       `json:"duration"`
	ServiceID       string    `json:"serviceId,omitempty"`
	CustomerName    string    `json:"customerName"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	EmployeeMissing bool      `json:"employeeMissing"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		EmployeeID:      a.EmployeeID,
		Date:            a.Date.String(),
		Start:           a.Start.String(),
		End:             a.End().String(),
		Duration:        a.DurationMinutes,
		ServiceID:       a.ServiceID,
		CustomerName:    a.CustomerName,
		Phone:           a.Phone,
		Email:           a.Email,
		Notes:           a.Notes,
		EmployeeMissing: a.EmployeeMissing,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type employeeRequest struct {
	FirstName   *string             `json:"firstName"`
	LastName    *string             `json:"lastName"`
	Color       *string             `json:"color"`
	WeeklyHours *domain.WeeklyHours `json:"weeklyHours"`
	Holidays    *domain.Holidays    `json:"holidays"`
}

type employeeResponse struct {
	ID          uuid.UUID          `json:"id"`
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Color       string             `json:"color"`
	WeeklyHours domain.WeeklyHours `json:"weeklyHours"`
	Holidays    domain.Holidays    `json:"holidays"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toEmployeeResponse(e domain.Employee) employeeResponse {
	out := employeeResponse{
		ID:          e.ID,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		Color:       e.Color,
		WeeklyHours: e.WeeklyHours,
		Holidays:    e.Holidays,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if out.WeeklyHours == nil {
		out.WeeklyHours = domain.WeeklyHours{}
	}
	if out.Holidays == nil {
		out.Holidays = domain.Holidays{}
	}
	return out
}

type settingsBody struct {
	Name        string             `json:"name"`
	WeeklyHours domain.WeeklyHours `json:"weeklyHours"`
	Holidays    domain.Holidays    `json:"holidays"`
	Services    domain.Services    `json:"services"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
}

func toSettingsBody(s domain.CalendarSettings) settingsBody {
	out := settingsBody{
		Name:        s.Name,
		WeeklyHours: s.WeeklyHours,
		Holidays:    s.Holidays,
		Services:    s.Services,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		out.UpdatedAt = &updated
	}
	if out.WeeklyHours == nil {
		out.WeeklyHours = domain.WeeklyHours{}
	}
	if out.Holidays == nil {
		out.Holidays = domain.Holidays{}
	}
	if out.Services == nil {
		out.Services = domain.Services{}
	}
	return out
}

func (b settingsBody) toDomain() domain.CalendarSettings {
	return domain.CalendarSettings{
		Name:        b.Name,
		WeeklyHours: b.WeeklyHours,
		Holidays:    b.Holidays,
		Services:    b.Services,
	}
}
